package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
	"github.com/pulsehr/engine/rule"
)

func TestParseExprFeaturePredicates(t *testing.T) {
	t.Run("string equality", func(t *testing.T) {
		cond, err := rule.ParseExpr(`engagement == "low"`)
		require.NoError(t, err)
		require.NotNil(t, cond.Feature)
		assert.Equal(t, "engagement", cond.Feature.Name)
		assert.Equal(t, rule.OpEq, cond.Feature.Op)
		assert.True(t, cond.Feature.Literal.Equal(feature.Text("low")))
	})

	t.Run("numeric comparison", func(t *testing.T) {
		cond, err := rule.ParseExpr(`score <= 2`)
		require.NoError(t, err)
		require.NotNil(t, cond.Feature)
		assert.Equal(t, rule.OpLe, cond.Feature.Op)
		f, ok := cond.Feature.Literal.Float()
		require.True(t, ok)
		assert.Equal(t, 2.0, f)
	})

	t.Run("in-set", func(t *testing.T) {
		cond, err := rule.ParseExpr(`engagement in ["low", "medium"]`)
		require.NoError(t, err)
		require.NotNil(t, cond.Feature)
		assert.Equal(t, rule.OpIn, cond.Feature.Op)
		assert.Len(t, cond.Feature.Set, 2)
	})
}

func TestParseExprGraphPredicates(t *testing.T) {
	t.Run("connected", func(t *testing.T) {
		cond, err := rule.ParseExpr(`connected("has_skill", "topic")`)
		require.NoError(t, err)
		require.NotNil(t, cond.Graph)
		assert.Equal(t, rule.PredicateConnected, cond.Graph.Kind)
		assert.Equal(t, graph.RelationHasSkill, cond.Graph.Relation)
		assert.Equal(t, graph.TypeTopic, cond.Graph.TargetType)
	})

	t.Run("path_exists", func(t *testing.T) {
		cond, err := rule.ParseExpr(`path_exists("act-training", 2)`)
		require.NoError(t, err)
		require.NotNil(t, cond.Graph)
		assert.Equal(t, rule.PredicatePathExists, cond.Graph.Kind)
		assert.Equal(t, "act-training", cond.Graph.TargetID)
		assert.Equal(t, 2, cond.Graph.MaxHops)
	})

	t.Run("attribute on self", func(t *testing.T) {
		cond, err := rule.ParseExpr(`attribute("self", "level") == "Senior"`)
		require.NoError(t, err)
		require.NotNil(t, cond.Graph)
		assert.Equal(t, rule.PredicateAttribute, cond.Graph.Kind)
		assert.Equal(t, "", cond.Graph.Relation)
		assert.Equal(t, "level", cond.Graph.Attr)
	})

	t.Run("attribute on neighbor", func(t *testing.T) {
		cond, err := rule.ParseExpr(`attribute("belongs_to", "headcount") > 10`)
		require.NoError(t, err)
		require.NotNil(t, cond.Graph)
		assert.Equal(t, graph.RelationBelongsTo, cond.Graph.Relation)
		assert.Equal(t, rule.OpGt, cond.Graph.Op)
	})
}

func TestParseExprComposition(t *testing.T) {
	t.Run("and chain flattens", func(t *testing.T) {
		cond, err := rule.ParseExpr(`a == 1 && b == 2 && c == 3`)
		require.NoError(t, err)
		assert.Len(t, cond.All, 3)
	})

	t.Run("or with negation", func(t *testing.T) {
		cond, err := rule.ParseExpr(`engagement == "low" || !connected("has_skill", "topic")`)
		require.NoError(t, err)
		require.Len(t, cond.Any, 2)
		require.NotNil(t, cond.Any[1].Not)
		assert.NotNil(t, cond.Any[1].Not.Graph)
	})

	t.Run("parenthesized nesting", func(t *testing.T) {
		cond, err := rule.ParseExpr(`(a == 1 || b == 2) && c == 3`)
		require.NoError(t, err)
		require.Len(t, cond.All, 2)
		assert.Len(t, cond.All[0].Any, 2)
	})
}

func TestParseExprErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"bare identifier", `engagement`},
		{"comparison of two features", `a == b`},
		{"unknown function", `reachable("x")`},
		{"arithmetic", `score + 1 > 2`},
		{"bad connected arity", `connected("belongs_to")`},
		{"non-literal in set", `engagement in [other]`},
		{"syntax error", `engagement ==`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rule.ParseExpr(tt.src)
			assert.ErrorIs(t, err, rule.ErrExprInvalid)
		})
	}
}
