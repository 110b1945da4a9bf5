package hierarchy

import "fmt"

// Kind is the node type as reported by the directory service.
type Kind string

const (
	KindRoot               Kind = "ROOT"
	KindOrganizationalUnit Kind = "ORGANIZATIONAL_UNIT"
	KindAccount            Kind = "ACCOUNT"
)

func (k Kind) String() string { return string(k) }

// ParseKind accepts the exact upper-case kind names.
func ParseKind(v string) (Kind, error) {
	switch Kind(v) {
	case KindRoot, KindOrganizationalUnit, KindAccount:
		return Kind(v), nil
	default:
		return "", fmt.Errorf("%w: unknown node kind %q", ErrMalformedResponse, v)
	}
}

// Node is one row of the flattened hierarchy.
type Node struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Kind     Kind   `json:"kind" yaml:"kind"`
	ParentID string `json:"parent_id" yaml:"parent_id"`
}

// Root is the single top-level node returned by the directory service.
type Root struct {
	ID   string
	Name string
}

// Child is a listing entry; names are not part of listings.
type Child struct {
	ID   string
	Kind Kind
}

// ChildPage is one page of a child listing. An empty NextCursor ends the listing.
type ChildPage struct {
	Children   []Child
	NextCursor string
}
