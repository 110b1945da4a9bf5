package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRelation() *Relation {
	return &Relation{Rows: []Node{
		{ID: "r-1", Name: "Root", Kind: KindRoot},
		{ID: "111111111111", Name: "mgmt", Kind: KindAccount, ParentID: "r-1"},
		{ID: "ou-1", Name: "Workloads", Kind: KindOrganizationalUnit, ParentID: "r-1"},
		{ID: "222222222222", Name: "prod", Kind: KindAccount, ParentID: "ou-1"},
	}}
}

func TestRelation_ValidateClean(t *testing.T) {
	require.Empty(t, sampleRelation().Validate())
}

func TestRelation_ValidateReportsBrokenInvariants(t *testing.T) {
	rel := sampleRelation()
	rel.Rows = append(rel.Rows,
		Node{ID: "ou-1", Name: "again", Kind: KindOrganizationalUnit, ParentID: "r-1"},
		Node{ID: "333333333333", Kind: KindAccount, ParentID: "ou-missing"},
		Node{ID: "444444444444", Kind: KindAccount, ParentID: "111111111111"},
		Node{ID: "555555555555", Kind: KindAccount},
	)

	rules := map[string]int{}
	for _, v := range rel.Validate() {
		rules[v.Rule]++
	}
	require.Equal(t, 1, rules[RuleUniqueID])
	require.Equal(t, 1, rules[RuleReferentialClosure])
	require.Equal(t, 1, rules[RuleLeafAccount])
	require.Equal(t, 1, rules[RuleParentPresent])
	require.Zero(t, rules[RuleSingleRoot])
}

func TestRelation_ValidateRequiresSingleRoot(t *testing.T) {
	rel := &Relation{Rows: []Node{
		{ID: "r-1", Kind: KindRoot},
		{ID: "r-2", Kind: KindRoot},
	}}
	var got []string
	for _, v := range rel.Validate() {
		got = append(got, v.Rule)
	}
	require.Contains(t, got, RuleSingleRoot)

	var empty *Relation
	require.Len(t, empty.Validate(), 1)
}

func TestRelation_CountsAndChildren(t *testing.T) {
	rel := sampleRelation()
	require.Equal(t, map[Kind]int{KindRoot: 1, KindOrganizationalUnit: 1, KindAccount: 2}, rel.Counts())

	children := rel.Children("r-1")
	require.Len(t, children, 2)
	require.Equal(t, "111111111111", children[0].ID)
	require.Equal(t, "ou-1", children[1].ID)
	require.Empty(t, rel.Children("222222222222"))

	root, ok := rel.Root()
	require.True(t, ok)
	require.Equal(t, []string{"r-1", "Root", "ROOT", ""}, root.Record())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("ORGANIZATIONAL_UNIT")
	require.NoError(t, err)
	require.Equal(t, KindOrganizationalUnit, k)

	_, err = ParseKind("account")
	require.ErrorIs(t, err, ErrMalformedResponse)
}
