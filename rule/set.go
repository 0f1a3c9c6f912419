package rule

import (
	"fmt"
	"sort"

	"github.com/pulsehr/engine/graph"
)

// Set is an immutable, ordered collection of rules. Order is descending
// priority with declaration index as the tie-break, so iteration is
// reproducible across runs given identical input.
type Set struct {
	rules []Rule
}

// Load validates a slice of rules against a graph and produces a Set in
// evaluation order. Validation covers rule structure (unique IDs,
// well-formed condition trees, operator/literal agreement) and graph
// references (relation labels, path targets, action templates). Any
// failure aborts the load with ErrRuleInvalid or ErrDuplicateRule; a
// rule that passes Load cannot fail structurally during evaluation.
//
// The input slice is copied; later caller mutations do not affect the
// set.
func Load(rules []Rule, g *graph.Graph) (*Set, error) {
	seen := make(map[string]struct{}, len(rules))
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)

	for i := range ordered {
		r := &ordered[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = struct{}{}

		if err := r.When.validateGraphRefs(g); err != nil {
			return nil, fmt.Errorf("rule %s: %w", r.ID, err)
		}
		node, err := g.Node(r.Action.ActionID)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: action %q not in graph", ErrRuleInvalid, r.ID, r.Action.ActionID)
		}
		if node.Type != graph.TypeActionTemplate {
			return nil, fmt.Errorf("%w: rule %s: node %q is %s, not an action template",
				ErrRuleInvalid, r.ID, r.Action.ActionID, node.Type)
		}
	}

	// Stable sort keeps declaration order within equal priorities.
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	return &Set{rules: ordered}, nil
}

// Rules returns the rules in evaluation order. The returned slice is a
// copy; iterating it never mutates the set.
func (s *Set) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Len returns the number of rules in the set.
func (s *Set) Len() int {
	return len(s.rules)
}
