// Package evaluate runs a loaded rule set against one subject's feature
// vector and graph context, producing candidate decisions.
//
// Evaluation is side-effect-free: the graph and rule set are read-only
// for the duration of a run, so one Evaluator serves any number of
// concurrent subject evaluations without locking.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/pulsehr/engine/decision"
	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
	"github.com/pulsehr/engine/rule"
)

// ErrGraphNotFrozen indicates an Evaluator was constructed over a graph
// that can still mutate. The engine must freeze the graph before
// evaluation begins.
var ErrGraphNotFrozen = errors.New("evaluate: graph must be frozen")

// Evaluator evaluates every rule in a set for one subject at a time.
type Evaluator struct {
	graph  *graph.Graph
	rules  []rule.Rule
	logger *slog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger used for per-rule recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// New creates an Evaluator over a frozen graph and a loaded rule set.
func New(g *graph.Graph, set *rule.Set, opts ...Option) (*Evaluator, error) {
	if !g.Frozen() {
		return nil, ErrGraphNotFrozen
	}
	e := &Evaluator{
		graph:  g,
		rules:  set.Rules(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Subject evaluates all rules for one subject and returns the
// candidates of every rule whose condition held, in rule evaluation
// order. A missing feature fails only the rule that referenced it; the
// remaining rules still evaluate. The context is checked between rules
// so a cancelled run stops promptly.
func (e *Evaluator) Subject(ctx context.Context, subjectID string, vec feature.Vector) ([]decision.Candidate, error) {
	sc := subjectContext{id: subjectID, vec: vec, graph: e.graph}

	var candidates []decision.Candidate
	for i := range e.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := &e.rules[i]

		matched, multiplier, err := evalTopLevel(&r.When, sc)
		if err != nil {
			// Absence of data yields "condition false", never a
			// fabricated value. Only the current rule is affected.
			e.logger.Debug("rule condition recovered as false",
				"subject_id", subjectID,
				"rule_id", r.ID,
				"error", err)
			continue
		}
		if !matched {
			continue
		}

		score := r.Action.BaseScore * multiplier
		candidates = append(candidates, decision.Candidate{
			SubjectID: subjectID,
			RuleID:    r.ID,
			ActionID:  r.Action.ActionID,
			Score:     score,
			Rationale: resolveRationale(r, subjectID, score, vec),
		})
	}
	return candidates, nil
}

type subjectContext struct {
	id    string
	vec   feature.Vector
	graph *graph.Graph
}

// evalTopLevel evaluates the root of a condition tree. A root
// disjunction evaluates every branch so the confidence multiplier can
// be derived from the fraction of matched branches; everywhere else
// evaluation short-circuits.
func evalTopLevel(c *rule.Condition, sc subjectContext) (bool, float64, error) {
	if len(c.Any) > 0 {
		matched := 0
		for i := range c.Any {
			ok, err := evalCondition(&c.Any[i], sc)
			if err != nil {
				return false, 0, err
			}
			if ok {
				matched++
			}
		}
		if matched == 0 {
			return false, 0, nil
		}
		return true, float64(matched) / float64(len(c.Any)), nil
	}
	ok, err := evalCondition(c, sc)
	if err != nil {
		return false, 0, err
	}
	return ok, 1.0, nil
}

// evalCondition evaluates a condition node with left-to-right
// short-circuiting: a conjunction stops on the first false branch, a
// disjunction on the first true one.
func evalCondition(c *rule.Condition, sc subjectContext) (bool, error) {
	switch {
	case len(c.All) > 0:
		for i := range c.All {
			ok, err := evalCondition(&c.All[i], sc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case len(c.Any) > 0:
		for i := range c.Any {
			ok, err := evalCondition(&c.Any[i], sc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case c.Not != nil:
		ok, err := evalCondition(c.Not, sc)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case c.Feature != nil:
		return evalFeature(c.Feature, sc)
	case c.Graph != nil:
		return evalGraph(c.Graph, sc)
	default:
		// Load validation rejects empty nodes; an empty node here is a
		// programming error, treated as false.
		return false, fmt.Errorf("empty condition node")
	}
}

func evalFeature(p *rule.FeaturePredicate, sc subjectContext) (bool, error) {
	v, err := sc.vec.Get(p.Name)
	if err != nil {
		return false, err
	}
	if p.Op == rule.OpIn {
		return rule.In(v, p.Set), nil
	}
	return rule.Compare(v, p.Op, p.Literal), nil
}

func evalGraph(p *rule.GraphPredicate, sc subjectContext) (bool, error) {
	switch p.Kind {
	case rule.PredicateConnected:
		neighbors, err := sc.graph.Neighbors(sc.id, p.Relation, graph.DirectionOut)
		if err != nil {
			return false, err
		}
		for _, n := range neighbors {
			if n.Type == p.TargetType {
				return true, nil
			}
		}
		return false, nil
	case rule.PredicatePathExists:
		return sc.graph.HasPath(sc.id, p.TargetID, p.MaxHops)
	case rule.PredicateAttribute:
		if p.Relation == "" {
			node, err := sc.graph.Node(sc.id)
			if err != nil {
				return false, err
			}
			return attrMatches(node, p), nil
		}
		neighbors, err := sc.graph.Neighbors(sc.id, p.Relation, graph.DirectionOut)
		if err != nil {
			return false, err
		}
		for _, n := range neighbors {
			if attrMatches(n, p) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown graph predicate kind %d", p.Kind)
	}
}

func attrMatches(n *graph.Node, p *rule.GraphPredicate) bool {
	raw, ok := n.Attribute(p.Attr)
	if !ok {
		return false
	}
	v, err := feature.FromAny(raw)
	if err != nil {
		return false
	}
	return rule.Compare(v, p.Op, p.Literal)
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// resolveRationale substitutes template placeholders with the subject's
// feature values and the builtin fields. Placeholders with no binding
// are left in place so a broken template stays visible in the output.
func resolveRationale(r *rule.Rule, subjectID string, score float64, vec feature.Vector) string {
	if r.Explain == "" {
		return fmt.Sprintf("rule %s matched with score %.2f", r.ID, score)
	}
	return placeholderRe.ReplaceAllStringFunc(r.Explain, func(m string) string {
		name := strings.Trim(m, "{}")
		switch name {
		case "subject_id":
			return subjectID
		case "rule_id":
			return r.ID
		case "action_id":
			return r.Action.ActionID
		case "score":
			return fmt.Sprintf("%.2f", score)
		}
		if v, err := vec.Get(name); err == nil {
			return v.String()
		}
		return m
	})
}
