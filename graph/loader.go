package graph

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Snapshot is the YAML document format for a serialized graph.
//
// Example:
//
//	relations: [mentors]
//	nodes:
//	  - id: emp-1
//	    type: subject
//	    attributes:
//	      level: Senior
//	edges:
//	  - source: emp-1
//	    target: dept-eng
//	    relation: belongs_to
type Snapshot struct {
	// Relations lists custom relation labels to register in addition to
	// the canonical set.
	Relations []string `yaml:"relations,omitempty"`

	// Nodes are the node definitions in declaration order.
	Nodes []SnapshotNode `yaml:"nodes"`

	// Edges are the edge definitions in declaration order.
	Edges []Edge `yaml:"edges,omitempty"`
}

// SnapshotNode is the YAML form of a node; Type is the lowercase node
// type name ("subject", "cohort", "topic", "action_template").
type SnapshotNode struct {
	ID         string         `yaml:"id"`
	Type       string         `yaml:"type"`
	Attributes map[string]any `yaml:"attributes,omitempty"`
}

// Load parses a YAML graph snapshot and builds a graph from it. The
// returned graph is not frozen; the caller freezes it before evaluation.
// Construction errors carry the offending node or edge identity.
func Load(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read graph snapshot: %w", err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse graph snapshot: %w", err)
	}
	return FromSnapshot(&snap)
}

// LoadFile opens path and loads a YAML graph snapshot from it.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph snapshot: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// FromSnapshot builds a graph from an already-decoded snapshot document.
func FromSnapshot(snap *Snapshot) (*Graph, error) {
	g := New()
	for _, rel := range snap.Relations {
		if err := g.RegisterRelation(rel); err != nil {
			return nil, err
		}
	}
	for i, sn := range snap.Nodes {
		nodeType, err := ParseNodeType(sn.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d (%s): %v", ErrInvalidNode, i, sn.ID, err)
		}
		node := NewNode(sn.ID, nodeType).WithAttributes(sn.Attributes)
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for i := range snap.Edges {
		e := snap.Edges[i]
		if err := g.AddEdge(&e); err != nil {
			return nil, fmt.Errorf("edge %d: %w", i, err)
		}
	}
	return g, nil
}
