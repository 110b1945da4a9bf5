package hierarchy

import "fmt"

// Columns is the header of the flat relation, in output order.
var Columns = []string{"id", "name", "kind", "parent_id"}

// Relation is the flattened hierarchy: root first, then depth-first pre-order.
type Relation struct {
	Rows []Node
}

func (r *Relation) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Root returns the first row, which is the root for relations built by a walk.
func (r *Relation) Root() (Node, bool) {
	if r.Len() == 0 {
		return Node{}, false
	}
	return r.Rows[0], true
}

// Counts returns the number of rows per kind.
func (r *Relation) Counts() map[Kind]int {
	out := map[Kind]int{
		KindRoot:               0,
		KindOrganizationalUnit: 0,
		KindAccount:            0,
	}
	if r == nil {
		return out
	}
	for _, n := range r.Rows {
		out[n.Kind]++
	}
	return out
}

// Children returns the rows whose parent is id, in relation order.
func (r *Relation) Children(id string) []Node {
	if r == nil {
		return nil
	}
	var out []Node
	for _, n := range r.Rows {
		if n.ParentID == id && n.Kind != KindRoot {
			out = append(out, n)
		}
	}
	return out
}

// Record renders a row as strings in Columns order.
func (n Node) Record() []string {
	return []string{n.ID, n.Name, string(n.Kind), n.ParentID}
}

const (
	RuleSingleRoot         = "single_root"
	RuleUniqueID           = "unique_id"
	RuleReferentialClosure = "referential_closure"
	RuleLeafAccount        = "leaf_account"
	RuleParentPresent      = "parent_present"
)

// Violation is one broken relation invariant.
type Violation struct {
	Rule    string `json:"rule"`
	NodeID  string `json:"node_id"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Rule, v.Message, v.NodeID)
}

// Validate checks the relation invariants and returns every violation found.
func (r *Relation) Validate() []Violation {
	if r == nil {
		return []Violation{{Rule: RuleSingleRoot, Message: "relation is empty"}}
	}
	var out []Violation

	roots := 0
	byID := make(map[string]Node, len(r.Rows))
	for _, n := range r.Rows {
		if n.Kind == KindRoot {
			roots++
			if n.ParentID != "" {
				out = append(out, Violation{Rule: RuleSingleRoot, NodeID: n.ID, Message: "root has a parent"})
			}
		} else if n.ParentID == "" {
			out = append(out, Violation{Rule: RuleParentPresent, NodeID: n.ID, Message: "non-root row without parent"})
		}
		if _, dup := byID[n.ID]; dup {
			out = append(out, Violation{Rule: RuleUniqueID, NodeID: n.ID, Message: "id appears more than once"})
			continue
		}
		byID[n.ID] = n
	}
	if roots != 1 {
		out = append(out, Violation{Rule: RuleSingleRoot, Message: fmt.Sprintf("expected exactly one root, got %d", roots)})
	}

	for _, n := range r.Rows {
		if n.ParentID == "" {
			continue
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			out = append(out, Violation{Rule: RuleReferentialClosure, NodeID: n.ID, Message: "parent " + n.ParentID + " is not in the relation"})
			continue
		}
		if parent.Kind == KindAccount {
			out = append(out, Violation{Rule: RuleLeafAccount, NodeID: n.ID, Message: "parent " + n.ParentID + " is an account"})
		}
	}
	return out
}
