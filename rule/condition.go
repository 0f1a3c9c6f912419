package rule

import (
	"fmt"

	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
)

// Op is a comparison operator in a feature or attribute predicate.
type Op int

const (
	// OpEq matches values that are equal.
	OpEq Op = iota

	// OpNe matches values that are not equal.
	OpNe

	// OpLt matches numeric values strictly below the literal.
	OpLt

	// OpLe matches numeric values at or below the literal.
	OpLe

	// OpGt matches numeric values strictly above the literal.
	OpGt

	// OpGe matches numeric values at or above the literal.
	OpGe

	// OpIn matches values contained in a literal set.
	OpIn
)

// String returns the operator's symbol.
func (o Op) String() string {
	switch o {
	case OpEq:
		return "=="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpIn:
		return "in"
	default:
		return fmt.Sprintf("Op(%d)", o)
	}
}

// IsValid returns true if the operator is one of the enumerated values.
func (o Op) IsValid() bool {
	return o >= OpEq && o <= OpIn
}

// Ordered reports whether the operator requires numeric operands.
func (o Op) Ordered() bool {
	return o == OpLt || o == OpLe || o == OpGt || o == OpGe
}

// ParseOp parses an operator symbol ("==", "!=", "<", "<=", ">", ">=",
// "in"); the spellings "eq", "ne", "lt", "le", "gt", "ge" are also
// accepted.
func ParseOp(s string) (Op, error) {
	switch s {
	case "==", "=", "eq":
		return OpEq, nil
	case "!=", "ne":
		return OpNe, nil
	case "<", "lt":
		return OpLt, nil
	case "<=", "le":
		return OpLe, nil
	case ">", "gt":
		return OpGt, nil
	case ">=", "ge":
		return OpGe, nil
	case "in":
		return OpIn, nil
	default:
		return 0, fmt.Errorf("invalid operator: %s", s)
	}
}

// Condition is one node of the boolean expression tree. Exactly one
// field must be set: All (conjunction), Any (disjunction), Not
// (negation), Feature (feature predicate) or Graph (graph predicate).
//
// Evaluation is left to right with short-circuiting, except that a
// top-level Any evaluates every branch so the evaluator can derive a
// confidence multiplier from the fraction of matched branches.
type Condition struct {
	All     []Condition
	Any     []Condition
	Not     *Condition
	Feature *FeaturePredicate
	Graph   *GraphPredicate
}

// FeaturePredicate compares a subject feature against a literal.
// For OpIn the literal is the Set; for every other operator it is
// Literal.
type FeaturePredicate struct {
	// Name is the feature to read from the subject's vector.
	Name string

	// Op is the comparison operator.
	Op Op

	// Literal is the right-hand side for scalar operators.
	Literal feature.Value

	// Set is the right-hand side for OpIn.
	Set []feature.Value
}

// GraphPredicateKind discriminates the graph predicate forms.
type GraphPredicateKind int

const (
	// PredicateConnected holds when the subject has an outgoing edge of
	// the given relation to a node of the given type.
	PredicateConnected GraphPredicateKind = iota

	// PredicatePathExists holds when a bounded BFS from the subject
	// reaches the target node.
	PredicatePathExists

	// PredicateAttribute compares an attribute of the subject node, or
	// of a neighbor, against a literal.
	PredicateAttribute
)

// String returns the string representation of the kind.
func (k GraphPredicateKind) String() string {
	switch k {
	case PredicateConnected:
		return "connected"
	case PredicatePathExists:
		return "path_exists"
	case PredicateAttribute:
		return "attribute"
	default:
		return fmt.Sprintf("GraphPredicateKind(%d)", k)
	}
}

// GraphPredicate tests the subject's surroundings in the knowledge
// graph. The populated fields depend on Kind.
type GraphPredicate struct {
	Kind GraphPredicateKind

	// Relation is the edge label for PredicateConnected, or the
	// neighbor selector for PredicateAttribute (empty selector means
	// the subject node itself).
	Relation string

	// TargetType is the required neighbor type for PredicateConnected.
	TargetType graph.NodeType

	// TargetID and MaxHops parameterize PredicatePathExists.
	TargetID string
	MaxHops  int

	// Attr, Op and Literal parameterize PredicateAttribute. With a
	// neighbor selector the predicate holds if any selected neighbor's
	// attribute matches.
	Attr    string
	Op      Op
	Literal feature.Value
}

// Validate checks the structural well-formedness of the tree: exactly
// one variant per node, no empty conjunctions or disjunctions, valid
// operators, and operator/literal type agreement. Graph references are
// validated separately by Set.Load.
func (c *Condition) Validate() error {
	variants := 0
	if len(c.All) > 0 {
		variants++
	}
	if len(c.Any) > 0 {
		variants++
	}
	if c.Not != nil {
		variants++
	}
	if c.Feature != nil {
		variants++
	}
	if c.Graph != nil {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("%w: condition node must set exactly one of all/any/not/feature/graph", ErrRuleInvalid)
	}

	for i := range c.All {
		if err := c.All[i].Validate(); err != nil {
			return err
		}
	}
	for i := range c.Any {
		if err := c.Any[i].Validate(); err != nil {
			return err
		}
	}
	if c.Not != nil {
		return c.Not.Validate()
	}
	if c.Feature != nil {
		return c.Feature.validate()
	}
	if c.Graph != nil {
		return c.Graph.validate()
	}
	return nil
}

func (p *FeaturePredicate) validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: feature predicate names no feature", ErrRuleInvalid)
	}
	if !p.Op.IsValid() {
		return fmt.Errorf("%w: feature %s: invalid operator", ErrRuleInvalid, p.Name)
	}
	if p.Op == OpIn {
		if len(p.Set) == 0 {
			return fmt.Errorf("%w: feature %s: 'in' requires a non-empty set", ErrRuleInvalid, p.Name)
		}
		return nil
	}
	if p.Op.Ordered() {
		if _, ok := p.Literal.Float(); !ok {
			return fmt.Errorf("%w: feature %s: operator %s requires a numeric literal", ErrRuleInvalid, p.Name, p.Op)
		}
	}
	return nil
}

func (p *GraphPredicate) validate() error {
	switch p.Kind {
	case PredicateConnected:
		if p.Relation == "" {
			return fmt.Errorf("%w: connected predicate names no relation", ErrRuleInvalid)
		}
		if !p.TargetType.IsValid() {
			return fmt.Errorf("%w: connected(%s): invalid target type", ErrRuleInvalid, p.Relation)
		}
	case PredicatePathExists:
		if p.TargetID == "" {
			return fmt.Errorf("%w: path_exists predicate names no target", ErrRuleInvalid)
		}
		if p.MaxHops <= 0 {
			return fmt.Errorf("%w: path_exists(%s): max hops must be positive", ErrRuleInvalid, p.TargetID)
		}
	case PredicateAttribute:
		if p.Attr == "" {
			return fmt.Errorf("%w: attribute predicate names no attribute", ErrRuleInvalid)
		}
		if !p.Op.IsValid() || p.Op == OpIn {
			return fmt.Errorf("%w: attribute %s: invalid operator", ErrRuleInvalid, p.Attr)
		}
		if p.Op.Ordered() {
			if _, ok := p.Literal.Float(); !ok {
				return fmt.Errorf("%w: attribute %s: operator %s requires a numeric literal", ErrRuleInvalid, p.Attr, p.Op)
			}
		}
	default:
		return fmt.Errorf("%w: unknown graph predicate kind %d", ErrRuleInvalid, p.Kind)
	}
	return nil
}

// validateGraphRefs checks every relation label and node reference in
// the tree against the graph.
func (c *Condition) validateGraphRefs(g *graph.Graph) error {
	for i := range c.All {
		if err := c.All[i].validateGraphRefs(g); err != nil {
			return err
		}
	}
	for i := range c.Any {
		if err := c.Any[i].validateGraphRefs(g); err != nil {
			return err
		}
	}
	if c.Not != nil {
		return c.Not.validateGraphRefs(g)
	}
	if p := c.Graph; p != nil {
		switch p.Kind {
		case PredicateConnected:
			if !g.HasRelation(p.Relation) {
				return fmt.Errorf("%w: unknown relation %q", ErrRuleInvalid, p.Relation)
			}
		case PredicatePathExists:
			if !g.HasNode(p.TargetID) {
				return fmt.Errorf("%w: path_exists target %q not in graph", ErrRuleInvalid, p.TargetID)
			}
		case PredicateAttribute:
			if p.Relation != "" && !g.HasRelation(p.Relation) {
				return fmt.Errorf("%w: unknown relation %q", ErrRuleInvalid, p.Relation)
			}
		}
	}
	return nil
}

// Compare applies op to an actual value and a literal. Equality works
// across kinds (and is false when kinds differ); ordered operators
// require both sides numeric and yield false otherwise, so a
// categorical value never satisfies a numeric comparison.
func Compare(actual feature.Value, op Op, literal feature.Value) bool {
	switch op {
	case OpEq:
		return actual.Equal(literal)
	case OpNe:
		return !actual.Equal(literal)
	case OpLt, OpLe, OpGt, OpGe:
		a, aok := actual.Float()
		b, bok := literal.Float()
		if !aok || !bok {
			return false
		}
		switch op {
		case OpLt:
			return a < b
		case OpLe:
			return a <= b
		case OpGt:
			return a > b
		default:
			return a >= b
		}
	default:
		return false
	}
}

// In reports whether the actual value equals any member of the set.
func In(actual feature.Value, set []feature.Value) bool {
	for _, member := range set {
		if actual.Equal(member) {
			return true
		}
	}
	return false
}
