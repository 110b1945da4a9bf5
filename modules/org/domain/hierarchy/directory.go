package hierarchy

import (
	"context"
	"errors"
)

var (
	// ErrNotFound marks point lookups for ids the directory does not know.
	ErrNotFound = errors.New("node not found")
	// ErrMalformedResponse marks directory responses with an unexpected shape.
	ErrMalformedResponse = errors.New("malformed directory response")
)

// Directory is the remote hierarchy service.
//
// ListChildren returns one page of the children of parentID filtered by kind
// (KindAccount or KindOrganizationalUnit). The first page is requested with an
// empty cursor; callers keep passing NextCursor until it comes back empty.
//
// DescribeAccount and DescribeOrganizationalUnit return the display name of a
// node, or "" when the service has no name for it. Unknown ids yield an error
// for which errors.Is(err, ErrNotFound) holds.
type Directory interface {
	Root(ctx context.Context) (Root, error)
	ListChildren(ctx context.Context, parentID string, kind Kind, cursor string) (ChildPage, error)
	DescribeAccount(ctx context.Context, id string) (string, error)
	DescribeOrganizationalUnit(ctx context.Context, id string) (string, error)
}
