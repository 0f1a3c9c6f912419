package rule

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pulsehr/engine/feature"
	"github.com/pulsehr/engine/graph"
)

// Pack is the YAML document format for a rule pack.
//
// Example:
//
//	name: people-analytics
//	version: 1
//	rules:
//	  - id: burnout-risk
//	    priority: 100
//	    when:
//	      feature: {name: engagement, op: "==", value: low}
//	    action: {id: act-checkin, base_score: 0.7}
//	    explain: "Engagement is {engagement}; schedule a check-in"
//
// A condition may alternatively be written as a CEL expression:
//
//	when:
//	  expr: 'engagement == "low" && connected("belongs_to", "cohort")'
type Pack struct {
	// Name labels the pack for logs and the registry.
	Name string `yaml:"name,omitempty"`

	// Version is the pack schema version; currently always 1.
	Version int `yaml:"version,omitempty"`

	// Rules are the rule definitions in declaration order.
	Rules []PackRule `yaml:"rules"`
}

// PackRule is the YAML form of one rule.
type PackRule struct {
	ID       string       `yaml:"id"`
	Priority int          `yaml:"priority"`
	When     ConditionDoc `yaml:"when"`
	Action   ActionRef    `yaml:"action"`
	Explain  string       `yaml:"explain,omitempty"`
}

// ConditionDoc is the YAML form of a condition tree node. Exactly one
// field may be set; Expr holds a CEL expression lowered into the same
// tree shape.
type ConditionDoc struct {
	All     []ConditionDoc `yaml:"all,omitempty"`
	Any     []ConditionDoc `yaml:"any,omitempty"`
	Not     *ConditionDoc  `yaml:"not,omitempty"`
	Feature *FeatureDoc    `yaml:"feature,omitempty"`
	Graph   *GraphDoc      `yaml:"graph,omitempty"`
	Expr    string         `yaml:"expr,omitempty"`
}

// FeatureDoc is the YAML form of a feature predicate.
type FeatureDoc struct {
	Name   string `yaml:"name"`
	Op     string `yaml:"op"`
	Value  any    `yaml:"value,omitempty"`
	Values []any  `yaml:"values,omitempty"`
}

// GraphDoc is the YAML form of a graph predicate; exactly one of the
// three predicate forms may be set.
type GraphDoc struct {
	Connected  *ConnectedDoc  `yaml:"connected,omitempty"`
	PathExists *PathExistsDoc `yaml:"path_exists,omitempty"`
	Attribute  *AttributeDoc  `yaml:"attribute,omitempty"`
}

// ConnectedDoc parameterizes a connected(relation, type) predicate.
type ConnectedDoc struct {
	Relation string `yaml:"relation"`
	Type     string `yaml:"type"`
}

// PathExistsDoc parameterizes a path_exists(target, max_hops) predicate.
type PathExistsDoc struct {
	Target  string `yaml:"target"`
	MaxHops int    `yaml:"max_hops"`
}

// AttributeDoc parameterizes an attribute comparison. Ref selects the
// node: empty or "self" is the subject, any other value is a neighbor
// relation label.
type AttributeDoc struct {
	Ref   string `yaml:"ref,omitempty"`
	Name  string `yaml:"name"`
	Op    string `yaml:"op"`
	Value any    `yaml:"value"`
}

// LoadPack parses a YAML rule pack and loads it into a validated Set
// against the given graph.
func LoadPack(r io.Reader, g *graph.Graph) (*Set, error) {
	pack, err := ParsePack(r)
	if err != nil {
		return nil, err
	}
	rules, err := pack.Compile()
	if err != nil {
		return nil, err
	}
	return Load(rules, g)
}

// LoadPackFile opens path and loads a YAML rule pack from it.
func LoadPackFile(path string, g *graph.Graph) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule pack: %w", err)
	}
	defer f.Close()
	return LoadPack(f, g)
}

// ParsePack decodes a YAML rule pack without compiling or validating
// the rules. The registry stores packs in this form.
func ParsePack(r io.Reader) (*Pack, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	return &pack, nil
}

// Compile lowers the pack's documents into Rule values with condition
// trees, resolving CEL expressions. The result still needs Load for
// validation against a graph.
func (p *Pack) Compile() ([]Rule, error) {
	rules := make([]Rule, 0, len(p.Rules))
	for i, pr := range p.Rules {
		cond, err := pr.When.lower()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, pr.ID, err)
		}
		rules = append(rules, Rule{
			ID:       pr.ID,
			Priority: pr.Priority,
			When:     cond,
			Action:   pr.Action,
			Explain:  pr.Explain,
		})
	}
	return rules, nil
}

func (d *ConditionDoc) lower() (Condition, error) {
	if d.Expr != "" {
		return ParseExpr(d.Expr)
	}

	var cond Condition
	for i := range d.All {
		sub, err := d.All[i].lower()
		if err != nil {
			return Condition{}, err
		}
		cond.All = append(cond.All, sub)
	}
	for i := range d.Any {
		sub, err := d.Any[i].lower()
		if err != nil {
			return Condition{}, err
		}
		cond.Any = append(cond.Any, sub)
	}
	if d.Not != nil {
		sub, err := d.Not.lower()
		if err != nil {
			return Condition{}, err
		}
		cond.Not = &sub
	}
	if d.Feature != nil {
		pred, err := d.Feature.lower()
		if err != nil {
			return Condition{}, err
		}
		cond.Feature = pred
	}
	if d.Graph != nil {
		pred, err := d.Graph.lower()
		if err != nil {
			return Condition{}, err
		}
		cond.Graph = pred
	}
	return cond, nil
}

func (d *FeatureDoc) lower() (*FeaturePredicate, error) {
	op, err := ParseOp(d.Op)
	if err != nil {
		return nil, fmt.Errorf("%w: feature %s: %v", ErrRuleInvalid, d.Name, err)
	}
	pred := &FeaturePredicate{Name: d.Name, Op: op}
	if op == OpIn {
		for _, raw := range d.Values {
			v, err := feature.FromAny(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: feature %s: %v", ErrRuleInvalid, d.Name, err)
			}
			pred.Set = append(pred.Set, v)
		}
		return pred, nil
	}
	v, err := feature.FromAny(d.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: feature %s: %v", ErrRuleInvalid, d.Name, err)
	}
	pred.Literal = v
	return pred, nil
}

func (d *GraphDoc) lower() (*GraphPredicate, error) {
	set := 0
	if d.Connected != nil {
		set++
	}
	if d.PathExists != nil {
		set++
	}
	if d.Attribute != nil {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: graph predicate must set exactly one of connected/path_exists/attribute", ErrRuleInvalid)
	}

	switch {
	case d.Connected != nil:
		targetType, err := graph.ParseNodeType(d.Connected.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: connected: %v", ErrRuleInvalid, err)
		}
		return &GraphPredicate{
			Kind:       PredicateConnected,
			Relation:   d.Connected.Relation,
			TargetType: targetType,
		}, nil
	case d.PathExists != nil:
		return &GraphPredicate{
			Kind:     PredicatePathExists,
			TargetID: d.PathExists.Target,
			MaxHops:  d.PathExists.MaxHops,
		}, nil
	default:
		op, err := ParseOp(d.Attribute.Op)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", ErrRuleInvalid, d.Attribute.Name, err)
		}
		v, err := feature.FromAny(d.Attribute.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %s: %v", ErrRuleInvalid, d.Attribute.Name, err)
		}
		ref := d.Attribute.Ref
		if ref == "self" {
			ref = ""
		}
		return &GraphPredicate{
			Kind:     PredicateAttribute,
			Relation: ref,
			Attr:     d.Attribute.Name,
			Op:       op,
			Literal:  v,
		}, nil
	}
}
