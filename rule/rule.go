// Package rule defines the declarative rule model the decision engine
// evaluates: rules with priorities, boolean condition trees over feature
// and graph predicates, and action consequences.
//
// Conditions are data, not code. They form a tagged expression tree that
// is validated when a Set is loaded, serialized to and from YAML, and
// optionally authored as a CEL expression that is lowered into the same
// tree at load time. Nothing is executed dynamically during evaluation.
package rule

import "fmt"

// Rule is one declarative condition→consequence rule. Rules are immutable
// once loaded into a Set.
type Rule struct {
	// ID uniquely identifies the rule within a set.
	ID string `yaml:"id"`

	// Priority orders evaluation: higher priorities evaluate first.
	// Ties are broken by declaration order.
	Priority int `yaml:"priority"`

	// When is the condition tree that must hold for the rule to fire.
	When Condition `yaml:"-"`

	// Action is the consequence: the action template to suggest and the
	// base score to suggest it with.
	Action ActionRef `yaml:"action"`

	// Explain is the rationale template. Placeholders of the form
	// {name} are substituted with matched feature values; {subject_id},
	// {rule_id}, {action_id} and {score} are always available.
	Explain string `yaml:"explain,omitempty"`
}

// ActionRef names an action template and the base score a firing rule
// contributes for it.
type ActionRef struct {
	// ActionID is the ID of an ActionTemplate node in the graph.
	ActionID string `yaml:"id"`

	// BaseScore is the score before the confidence multiplier.
	BaseScore float64 `yaml:"base_score"`
}

// Validate checks the structural well-formedness of a single rule. Graph
// references (relations, node IDs, action templates) are checked by
// Set.Load, which has the graph at hand.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: rule ID is required", ErrRuleInvalid)
	}
	if r.Action.ActionID == "" {
		return fmt.Errorf("%w: rule %s names no action", ErrRuleInvalid, r.ID)
	}
	if r.Action.BaseScore < 0 {
		return fmt.Errorf("%w: rule %s has negative base score", ErrRuleInvalid, r.ID)
	}
	if err := r.When.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}
