package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

// fakeDirectory is an in-memory hierarchy with cursor pagination.
type fakeDirectory struct {
	mu       sync.Mutex
	root     hierarchy.Root
	rootErr  error
	accounts map[string][]string
	ous      map[string][]string
	names    map[string]string
	pageSize int

	listErr     map[string]error
	describeErr map[string]error

	listCalls     []string
	describeCalls []string
}

func newFakeDirectory(rootID, rootName string) *fakeDirectory {
	return &fakeDirectory{
		root:        hierarchy.Root{ID: rootID, Name: rootName},
		accounts:    map[string][]string{},
		ous:         map[string][]string{},
		names:       map[string]string{},
		pageSize:    2,
		listErr:     map[string]error{},
		describeErr: map[string]error{},
	}
}

func (f *fakeDirectory) addAccount(parent, id, name string) *fakeDirectory {
	f.accounts[parent] = append(f.accounts[parent], id)
	f.names[id] = name
	return f
}

func (f *fakeDirectory) addOU(parent, id, name string) *fakeDirectory {
	f.ous[parent] = append(f.ous[parent], id)
	f.names[id] = name
	return f
}

func listKey(parentID string, kind hierarchy.Kind) string {
	return string(kind) + ":" + parentID
}

func (f *fakeDirectory) Root(context.Context) (hierarchy.Root, error) {
	if f.rootErr != nil {
		return hierarchy.Root{}, f.rootErr
	}
	return f.root, nil
}

func (f *fakeDirectory) ListChildren(ctx context.Context, parentID string, kind hierarchy.Kind, cursor string) (hierarchy.ChildPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, listKey(parentID, kind)+"@"+cursor)

	if err := f.listErr[listKey(parentID, kind)]; err != nil {
		return hierarchy.ChildPage{}, err
	}
	var ids []string
	switch kind {
	case hierarchy.KindAccount:
		ids = f.accounts[parentID]
	case hierarchy.KindOrganizationalUnit:
		ids = f.ous[parentID]
	default:
		return hierarchy.ChildPage{}, fmt.Errorf("unexpected kind %s", kind)
	}

	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return hierarchy.ChildPage{}, err
		}
		offset = n
	}
	end := offset + f.pageSize
	if end > len(ids) {
		end = len(ids)
	}
	page := hierarchy.ChildPage{}
	for _, id := range ids[offset:end] {
		page.Children = append(page.Children, hierarchy.Child{ID: id, Kind: kind})
	}
	if end < len(ids) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeDirectory) describe(id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.describeCalls = append(f.describeCalls, id)
	if err := f.describeErr[id]; err != nil {
		return "", err
	}
	return f.names[id], nil
}

func (f *fakeDirectory) DescribeAccount(_ context.Context, id string) (string, error) {
	return f.describe(id)
}

func (f *fakeDirectory) DescribeOrganizationalUnit(_ context.Context, id string) (string, error) {
	return f.describe(id)
}

func (f *fakeDirectory) listedParents(kind hierarchy.Kind) map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]int{}
	for _, call := range f.listCalls {
		k, rest, _ := strings.Cut(call, ":")
		if k != string(kind) {
			continue
		}
		parent, _, _ := strings.Cut(rest, "@")
		out[parent]++
	}
	return out
}

// staticDirectory serves canned pages keyed by kind, parent and cursor.
type staticDirectory struct {
	*fakeDirectory
	pages map[string]hierarchy.ChildPage
}

func (s *staticDirectory) ListChildren(_ context.Context, parentID string, kind hierarchy.Kind, cursor string) (hierarchy.ChildPage, error) {
	return s.pages[listKey(parentID, kind)+"@"+cursor], nil
}
