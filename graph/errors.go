package graph

import "errors"

// Sentinel errors for graph construction and queries.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrDuplicateNode indicates an AddNode call with an ID that is
	// already present in the graph.
	ErrDuplicateNode = errors.New("graph: duplicate node")

	// ErrDanglingEdge indicates an AddEdge call where one or both
	// endpoints do not exist in the graph.
	ErrDanglingEdge = errors.New("graph: edge endpoint not found")

	// ErrSelfLoop indicates an AddEdge call where source and target are
	// the same node.
	ErrSelfLoop = errors.New("graph: self-loop not allowed")

	// ErrFrozen indicates a mutation attempt after Freeze. This is a
	// programming-contract violation and is fatal to the run.
	ErrFrozen = errors.New("graph: graph is frozen")

	// ErrNodeNotFound indicates a query referenced a node ID that does
	// not exist in the graph.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrInvalidNode indicates a structurally malformed node definition.
	ErrInvalidNode = errors.New("graph: invalid node")

	// ErrInvalidEdge indicates a structurally malformed edge definition.
	ErrInvalidEdge = errors.New("graph: invalid edge")

	// ErrUnknownRelation indicates an edge or query used a relation label
	// that is neither canonical nor registered on the graph.
	ErrUnknownRelation = errors.New("graph: unknown relation")
)
