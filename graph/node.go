package graph

import "fmt"

// NodeType classifies a node in the knowledge graph.
type NodeType int

const (
	// TypeSubject is an entity decisions are computed for (e.g. a survey respondent).
	TypeSubject NodeType = iota

	// TypeCohort is a grouping of subjects (team, department, segment).
	TypeCohort

	// TypeTopic is a subject-matter node (skill, theme, interest).
	TypeTopic

	// TypeActionTemplate is a dispatchable action a rule may select.
	TypeActionTemplate
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case TypeSubject:
		return "subject"
	case TypeCohort:
		return "cohort"
	case TypeTopic:
		return "topic"
	case TypeActionTemplate:
		return "action_template"
	default:
		return fmt.Sprintf("NodeType(%d)", t)
	}
}

// IsValid returns true if the type is one of the enumerated values.
func (t NodeType) IsValid() bool {
	return t >= TypeSubject && t <= TypeActionTemplate
}

// ParseNodeType parses a string into a NodeType value.
func ParseNodeType(s string) (NodeType, error) {
	switch s {
	case "subject":
		return TypeSubject, nil
	case "cohort":
		return TypeCohort, nil
	case "topic":
		return TypeTopic, nil
	case "action_template":
		return TypeActionTemplate, nil
	default:
		return 0, fmt.Errorf("invalid node type: %s", s)
	}
}

// AllNodeTypes returns all valid node type values.
func AllNodeTypes() []NodeType {
	return []NodeType{TypeSubject, TypeCohort, TypeTopic, TypeActionTemplate}
}

// Node is a typed entity in the knowledge graph. ID must be unique within
// a graph; Type is fixed at creation.
type Node struct {
	// ID is the unique, opaque node identifier.
	ID string `json:"id" yaml:"id"`

	// Type classifies the node. Immutable after creation.
	Type NodeType `json:"type" yaml:"-"`

	// Attributes holds arbitrary key-value attributes for the node.
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// NewNode creates a Node with the given ID and type and an initialized
// attribute map.
func NewNode(id string, nodeType NodeType) *Node {
	return &Node{
		ID:         id,
		Type:       nodeType,
		Attributes: make(map[string]any),
	}
}

// WithAttribute sets a single attribute and returns the node for chaining.
func (n *Node) WithAttribute(key string, value any) *Node {
	if n.Attributes == nil {
		n.Attributes = make(map[string]any)
	}
	n.Attributes[key] = value
	return n
}

// WithAttributes replaces the attribute map and returns the node for chaining.
func (n *Node) WithAttributes(attrs map[string]any) *Node {
	n.Attributes = attrs
	return n
}

// Attribute returns the named attribute and whether it is present.
func (n *Node) Attribute(name string) (any, bool) {
	v, ok := n.Attributes[name]
	return v, ok
}

// Validate checks that the node has an ID and a valid type.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: node ID is required", ErrInvalidNode)
	}
	if !n.Type.IsValid() {
		return fmt.Errorf("%w: node %s has invalid type %d", ErrInvalidNode, n.ID, n.Type)
	}
	return nil
}
