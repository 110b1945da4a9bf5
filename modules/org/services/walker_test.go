package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/org-hierarchy/modules/org/domain/hierarchy"
)

func ids(nodes []hierarchy.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestWalker_OrderAccountsBeforeOUsDepthFirst(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root").
		addAccount("r-1", "A1", "alpha").
		addOU("r-1", "O1", "first").
		addAccount("O1", "A2", "beta").
		addOU("r-1", "O2", "second")

	nodes, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"A1", "O1", "A2", "O2"}, ids(nodes))

	require.Equal(t, hierarchy.Node{ID: "A1", Name: "alpha", Kind: hierarchy.KindAccount, ParentID: "r-1"}, nodes[0])
	require.Equal(t, hierarchy.Node{ID: "O1", Name: "first", Kind: hierarchy.KindOrganizationalUnit, ParentID: "r-1"}, nodes[1])
	require.Equal(t, hierarchy.Node{ID: "A2", Name: "beta", Kind: hierarchy.KindAccount, ParentID: "O1"}, nodes[2])
	require.Equal(t, hierarchy.Node{ID: "O2", Name: "second", Kind: hierarchy.KindOrganizationalUnit, ParentID: "r-1"}, nodes[3])
}

func TestWalker_SubtreeFinishesBeforeNextSiblingAcrossPages(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root")
	dir.pageSize = 1
	dir.addOU("r-1", "O1", "").
		addOU("O1", "O1a", "").
		addAccount("O1a", "A1", "").
		addOU("O1", "O1b", "").
		addOU("r-1", "O2", "").
		addAccount("O2", "A2", "").
		addAccount("O2", "A3", "").
		addOU("O2", "O2a", "")

	nodes, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"O1", "O1a", "A1", "O1b", "O2", "A2", "A3", "O2a"}, ids(nodes))
}

func TestWalker_NeverListsUnderAccounts(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root").
		addAccount("r-1", "A1", "").
		addOU("r-1", "O1", "").
		addAccount("O1", "A2", "")

	_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.NoError(t, err)

	for _, kind := range []hierarchy.Kind{hierarchy.KindAccount, hierarchy.KindOrganizationalUnit} {
		parents := dir.listedParents(kind)
		require.Equal(t, map[string]int{"r-1": 1, "O1": 1}, parents, "kind %s", kind)
	}
}

func TestWalker_DrainsPaginationForBothKinds(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root")
	dir.pageSize = 2
	for i := 0; i < 5; i++ {
		dir.addAccount("r-1", fmt.Sprintf("A%d", i), "")
		dir.addOU("r-1", fmt.Sprintf("O%d", i), "")
	}

	nodes, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.NoError(t, err)
	require.Equal(t, []string{"A0", "A1", "A2", "A3", "A4", "O0", "O1", "O2", "O3", "O4"}, ids(nodes))
	// 3 pages per kind under the root, one empty page per kind under each OU.
	require.Equal(t, 3, dir.listedParents(hierarchy.KindAccount)["r-1"])
	require.Equal(t, 3, dir.listedParents(hierarchy.KindOrganizationalUnit)["r-1"])
}

func TestWalker_EmptyNodeYieldsNothing(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root")
	cur := NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1")
	require.False(t, cur.Next())
	require.NoError(t, cur.Err())
	require.Zero(t, cur.Yielded())
	require.Len(t, dir.listCalls, 2)
}

func TestWalker_YieldsLazily(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root")
	dir.pageSize = 1
	dir.addAccount("r-1", "A1", "").
		addAccount("r-1", "A2", "").
		addOU("r-1", "O1", "").
		addAccount("O1", "A3", "")

	cur := NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1")
	require.Empty(t, dir.listCalls)

	require.True(t, cur.Next())
	require.Equal(t, "A1", cur.Node().ID)
	require.Len(t, dir.listCalls, 1)
	require.Equal(t, []string{"A1"}, dir.describeCalls)

	require.True(t, cur.Next())
	require.Equal(t, "A2", cur.Node().ID)
	require.Len(t, dir.listCalls, 2)
}

func TestWalker_DeepHierarchyUsesExplicitStack(t *testing.T) {
	const depth = 20000
	dir := newFakeDirectory("r-1", "Root")
	parent := "r-1"
	for i := 0; i < depth; i++ {
		id := fmt.Sprintf("ou-%d", i)
		dir.addOU(parent, id, "")
		parent = id
	}
	dir.addAccount(parent, "leaf", "bottom")

	cur := NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1")
	var last hierarchy.Node
	for cur.Next() {
		last = cur.Node()
	}
	require.NoError(t, cur.Err())
	require.Equal(t, depth+1, cur.Yielded())
	require.Equal(t, depth+1, cur.MaxDepth())
	require.Equal(t, hierarchy.Node{ID: "leaf", Name: "bottom", Kind: hierarchy.KindAccount, ParentID: parent}, last)
}

func TestWalker_ListFailureAbortsWalk(t *testing.T) {
	boom := errors.New("TooManyRequestsException: rate exceeded")
	dir := newFakeDirectory("r-1", "Root").
		addAccount("r-1", "A1", "").
		addOU("r-1", "O1", "").
		addOU("O1", "O1a", "").
		addOU("r-1", "O2", "")
	dir.listErr[listKey("O1", hierarchy.KindOrganizationalUnit)] = boom

	cur := NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1")
	var seen []string
	for cur.Next() {
		seen = append(seen, cur.Node().ID)
	}
	require.Equal(t, []string{"A1", "O1"}, seen)
	require.Same(t, boom, cur.Err())
	require.False(t, cur.Next())
	require.Equal(t, hierarchy.Node{}, cur.Node())

	nodes, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.Nil(t, nodes)
	require.Same(t, boom, err)
}

func TestWalker_ResolutionFailureAbortsWalk(t *testing.T) {
	throttled := errors.New("throttled")
	dir := newFakeDirectory("r-1", "Root").
		addAccount("r-1", "A1", "").
		addAccount("r-1", "A2", "")
	dir.describeErr["A2"] = throttled

	_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.Same(t, throttled, err)
}

func TestWalker_NotFoundNameStillWalksChildren(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root").
		addOU("r-1", "O1", "gone").
		addAccount("O1", "A1", "kept")
	dir.describeErr["O1"] = fmt.Errorf("%w: OrganizationalUnitNotFoundException", hierarchy.ErrNotFound)

	nodes, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
	require.NoError(t, err)
	require.Equal(t, []hierarchy.Node{
		{ID: "O1", Name: "", Kind: hierarchy.KindOrganizationalUnit, ParentID: "r-1"},
		{ID: "A1", Name: "kept", Kind: hierarchy.KindAccount, ParentID: "O1"},
	}, nodes)
}

func TestWalker_CancelledContext(t *testing.T) {
	dir := newFakeDirectory("r-1", "Root").addAccount("r-1", "A1", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(ctx, "r-1"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, dir.listCalls)
}

func TestWalker_MalformedPages(t *testing.T) {
	t.Run("missing id", func(t *testing.T) {
		dir := &staticDirectory{fakeDirectory: newFakeDirectory("r-1", "Root"), pages: map[string]hierarchy.ChildPage{
			listKey("r-1", hierarchy.KindAccount) + "@": {Children: []hierarchy.Child{{Kind: hierarchy.KindAccount}}},
		}}
		_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
		require.ErrorIs(t, err, hierarchy.ErrMalformedResponse)
	})

	t.Run("kind mismatch", func(t *testing.T) {
		dir := &staticDirectory{fakeDirectory: newFakeDirectory("r-1", "Root"), pages: map[string]hierarchy.ChildPage{
			listKey("r-1", hierarchy.KindAccount) + "@": {Children: []hierarchy.Child{{ID: "O1", Kind: hierarchy.KindOrganizationalUnit}}},
		}}
		_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
		require.ErrorIs(t, err, hierarchy.ErrMalformedResponse)
	})

	t.Run("repeated cursor", func(t *testing.T) {
		dir := &staticDirectory{fakeDirectory: newFakeDirectory("r-1", "Root"), pages: map[string]hierarchy.ChildPage{
			listKey("r-1", hierarchy.KindAccount) + "@":   {NextCursor: "c1"},
			listKey("r-1", hierarchy.KindAccount) + "@c1": {NextCursor: "c1"},
		}}
		_, err := Collect(NewWalker(dir, NewNodeResolver(dir)).Walk(context.Background(), "r-1"))
		require.ErrorIs(t, err, hierarchy.ErrMalformedResponse)
	})
}
