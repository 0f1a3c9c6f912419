package graph

import "fmt"

// Canonical relation labels. A graph accepts these out of the box; custom
// labels can be registered per graph with RegisterRelation.
const (
	RelationBelongsTo = "belongs_to"
	RelationRelatedTo = "related_to"
	RelationTriggers  = "triggers"
	RelationReportsTo = "reports_to"
	RelationHasSkill  = "has_skill"
)

// CanonicalRelations returns the relation labels every graph accepts by
// default.
func CanonicalRelations() []string {
	return []string{
		RelationBelongsTo,
		RelationRelatedTo,
		RelationTriggers,
		RelationReportsTo,
		RelationHasSkill,
	}
}

// Edge is a directed, typed, weighted connection between two nodes.
// Multiple edges between the same pair are permitted as long as their
// relations differ; self-loops are rejected.
type Edge struct {
	// Source is the source node ID.
	Source string `json:"source" yaml:"source"`

	// Target is the target node ID.
	Target string `json:"target" yaml:"target"`

	// Relation is the typed edge label (e.g. "belongs_to", "triggers").
	Relation string `json:"relation" yaml:"relation"`

	// Weight is the edge weight. Zero means unset; it defaults to 1.0
	// when the edge is added to a graph.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// NewEdge creates an Edge with the given endpoints and relation and the
// default weight of 1.0.
func NewEdge(source, target, relation string) *Edge {
	return &Edge{
		Source:   source,
		Target:   target,
		Relation: relation,
		Weight:   1.0,
	}
}

// WithWeight sets the edge weight and returns the edge for chaining.
func (e *Edge) WithWeight(w float64) *Edge {
	e.Weight = w
	return e
}

// Validate checks that the edge names both endpoints and a relation.
// Endpoint existence is checked by Graph.AddEdge, not here.
func (e *Edge) Validate() error {
	if e.Source == "" || e.Target == "" {
		return fmt.Errorf("%w: edge endpoints are required", ErrInvalidEdge)
	}
	if e.Relation == "" {
		return fmt.Errorf("%w: edge %s->%s has no relation", ErrInvalidEdge, e.Source, e.Target)
	}
	return nil
}
