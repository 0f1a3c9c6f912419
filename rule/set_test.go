package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
	"github.com/pulsehr/engine/rule"
)

// testGraph builds the minimal graph rule validation needs: one subject,
// one cohort and two action templates.
func testGraph(t *testing.T) *graph.Graph {
	t.Helper()

	g := graph.New()
	require.NoError(t, g.AddNode(graph.NewNode("emp-1", graph.TypeSubject)))
	require.NoError(t, g.AddNode(graph.NewNode("dept-eng", graph.TypeCohort)))
	require.NoError(t, g.AddNode(graph.NewNode("act-checkin", graph.TypeActionTemplate)))
	require.NoError(t, g.AddNode(graph.NewNode("act-training", graph.TypeActionTemplate)))
	require.NoError(t, g.AddEdge(graph.NewEdge("emp-1", "dept-eng", graph.RelationBelongsTo)))
	return g
}

func engagementIs(band string) rule.Condition {
	return rule.Condition{Feature: &rule.FeaturePredicate{
		Name:    "engagement",
		Op:      rule.OpEq,
		Literal: feature.Text(band),
	}}
}

func TestLoadOrdering(t *testing.T) {
	g := testGraph(t)
	rules := []rule.Rule{
		{ID: "c", Priority: 10, When: engagementIs("low"), Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5}},
		{ID: "a", Priority: 20, When: engagementIs("low"), Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5}},
		{ID: "b", Priority: 10, When: engagementIs("low"), Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5}},
	}

	set, err := rule.Load(rules, g)
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	var ids []string
	for _, r := range set.Rules() {
		ids = append(ids, r.ID)
	}
	// Priority descending, declaration order within equal priority.
	assert.Equal(t, []string{"a", "c", "b"}, ids)

	// Repeated iteration yields the identical order.
	for i := 0; i < 5; i++ {
		var again []string
		for _, r := range set.Rules() {
			again = append(again, r.ID)
		}
		assert.Equal(t, ids, again)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	g := testGraph(t)
	rules := []rule.Rule{
		{ID: "dup", When: engagementIs("low"), Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5}},
		{ID: "dup", When: engagementIs("high"), Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5}},
	}
	_, err := rule.Load(rules, g)
	assert.ErrorIs(t, err, rule.ErrDuplicateRule)
}

func TestLoadValidatesGraphReferences(t *testing.T) {
	g := testGraph(t)

	t.Run("unknown relation", func(t *testing.T) {
		rules := []rule.Rule{{
			ID: "r",
			When: rule.Condition{Graph: &rule.GraphPredicate{
				Kind:       rule.PredicateConnected,
				Relation:   "made_up",
				TargetType: graph.TypeCohort,
			}},
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("unknown path target", func(t *testing.T) {
		rules := []rule.Rule{{
			ID: "r",
			When: rule.Condition{Graph: &rule.GraphPredicate{
				Kind:     rule.PredicatePathExists,
				TargetID: "ghost",
				MaxHops:  2,
			}},
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("action must exist", func(t *testing.T) {
		rules := []rule.Rule{{
			ID:     "r",
			When:   engagementIs("low"),
			Action: rule.ActionRef{ActionID: "act-ghost", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("action must be an action template", func(t *testing.T) {
		rules := []rule.Rule{{
			ID:     "r",
			When:   engagementIs("low"),
			Action: rule.ActionRef{ActionID: "dept-eng", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})
}

func TestLoadValidatesConditionStructure(t *testing.T) {
	g := testGraph(t)

	t.Run("empty condition", func(t *testing.T) {
		rules := []rule.Rule{{
			ID:     "r",
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("two variants on one node", func(t *testing.T) {
		cond := engagementIs("low")
		cond.Graph = &rule.GraphPredicate{Kind: rule.PredicateConnected, Relation: graph.RelationBelongsTo, TargetType: graph.TypeCohort}
		rules := []rule.Rule{{
			ID:     "r",
			When:   cond,
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("ordered operator with categorical literal", func(t *testing.T) {
		rules := []rule.Rule{{
			ID: "r",
			When: rule.Condition{Feature: &rule.FeaturePredicate{
				Name:    "engagement",
				Op:      rule.OpLt,
				Literal: feature.Text("low"),
			}},
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})

	t.Run("empty in-set", func(t *testing.T) {
		rules := []rule.Rule{{
			ID: "r",
			When: rule.Condition{Feature: &rule.FeaturePredicate{
				Name: "engagement",
				Op:   rule.OpIn,
			}},
			Action: rule.ActionRef{ActionID: "act-checkin", BaseScore: 0.5},
		}}
		_, err := rule.Load(rules, g)
		assert.ErrorIs(t, err, rule.ErrRuleInvalid)
	})
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		actual  feature.Value
		op      rule.Op
		literal feature.Value
		want    bool
	}{
		{"text equality", feature.Text("low"), rule.OpEq, feature.Text("low"), true},
		{"text inequality", feature.Text("low"), rule.OpNe, feature.Text("high"), true},
		{"cross-kind equality is false", feature.Number(1), rule.OpEq, feature.Text("1"), false},
		{"numeric less-than", feature.Number(2), rule.OpLt, feature.Number(3), true},
		{"numeric boundary", feature.Number(3), rule.OpLe, feature.Number(3), true},
		{"categorical never satisfies ordered op", feature.Text("low"), rule.OpGt, feature.Number(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.Compare(tt.actual, tt.op, tt.literal))
		})
	}

	assert.True(t, rule.In(feature.Text("low"), []feature.Value{feature.Text("low"), feature.Text("medium")}))
	assert.False(t, rule.In(feature.Text("high"), []feature.Value{feature.Text("low")}))
}
