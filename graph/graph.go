package graph

import "fmt"

// Direction selects which edges a neighbor query follows.
type Direction int

const (
	// DirectionOut follows edges whose source is the queried node.
	DirectionOut Direction = iota

	// DirectionIn follows edges whose target is the queried node.
	DirectionIn

	// DirectionBoth follows edges in either orientation. Outgoing edges
	// are visited before incoming ones.
	DirectionBoth
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case DirectionOut:
		return "out"
	case DirectionIn:
		return "in"
	case DirectionBoth:
		return "both"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// IsValid returns true if the direction is a valid value.
func (d Direction) IsValid() bool {
	return d >= DirectionOut && d <= DirectionBoth
}

// ParseDirection parses a string into a Direction value.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "out":
		return DirectionOut, nil
	case "in":
		return DirectionIn, nil
	case "both":
		return DirectionBoth, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s", s)
	}
}

// adjEntry records one edge endpoint in insertion order.
type adjEntry struct {
	peer     int // index of the node on the other end
	relation string
	edge     int // index into g.edges
}

// Graph is an in-memory knowledge graph of typed nodes and directed,
// typed, weighted edges. Nodes and edges live in arenas indexed by
// insertion order; adjacency lists keyed by node index preserve edge
// insertion order so queries are deterministic.
//
// A Graph is built once, frozen with Freeze, and then queried read-only.
// Mutation after Freeze fails with ErrFrozen. A frozen graph is safe for
// concurrent readers without locking.
type Graph struct {
	nodes   []Node
	edges   []Edge
	byID    map[string]int // node ID -> index into nodes
	out     map[int][]adjEntry
	in      map[int][]adjEntry
	rels    map[string]struct{}
	edgeSet map[string]struct{} // source|relation|target dedup key
	frozen  bool
}

// New creates an empty graph accepting the canonical relation labels.
func New() *Graph {
	g := &Graph{
		byID:    make(map[string]int),
		out:     make(map[int][]adjEntry),
		in:      make(map[int][]adjEntry),
		rels:    make(map[string]struct{}),
		edgeSet: make(map[string]struct{}),
	}
	for _, r := range CanonicalRelations() {
		g.rels[r] = struct{}{}
	}
	return g
}

// RegisterRelation adds a custom relation label to the set the graph
// accepts. Fails with ErrFrozen after Freeze.
func (g *Graph) RegisterRelation(relation string) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot register relation %q", ErrFrozen, relation)
	}
	if relation == "" {
		return fmt.Errorf("%w: empty relation label", ErrInvalidEdge)
	}
	g.rels[relation] = struct{}{}
	return nil
}

// HasRelation reports whether the relation label is known to the graph.
func (g *Graph) HasRelation(relation string) bool {
	_, ok := g.rels[relation]
	return ok
}

// AddNode adds a node to the graph. Fails with ErrDuplicateNode if the ID
// is already present and ErrFrozen after Freeze. The node is copied; the
// caller's value is not retained.
func (g *Graph) AddNode(n *Node) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot add node %q", ErrFrozen, n.ID)
	}
	if err := n.Validate(); err != nil {
		return err
	}
	if _, exists := g.byID[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	g.byID[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, *n)
	return nil
}

// AddEdge adds a directed edge to the graph. Both endpoints must already
// exist (ErrDanglingEdge), source and target must differ (ErrSelfLoop),
// and the relation label must be known (ErrUnknownRelation). A second
// edge between the same pair with the same relation is ignored; the same
// pair may be connected by any number of distinct relations. A zero
// weight defaults to 1.0.
func (g *Graph) AddEdge(e *Edge) error {
	if g.frozen {
		return fmt.Errorf("%w: cannot add edge %s->%s", ErrFrozen, e.Source, e.Target)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if e.Source == e.Target {
		return fmt.Errorf("%w: %s", ErrSelfLoop, e.Source)
	}
	src, ok := g.byID[e.Source]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrDanglingEdge, e.Source)
	}
	dst, ok := g.byID[e.Target]
	if !ok {
		return fmt.Errorf("%w: target %s", ErrDanglingEdge, e.Target)
	}
	if !g.HasRelation(e.Relation) {
		return fmt.Errorf("%w: %s", ErrUnknownRelation, e.Relation)
	}
	key := e.Source + "|" + e.Relation + "|" + e.Target
	if _, dup := g.edgeSet[key]; dup {
		return nil
	}
	stored := *e
	if stored.Weight == 0 {
		stored.Weight = 1.0
	}
	idx := len(g.edges)
	g.edges = append(g.edges, stored)
	g.edgeSet[key] = struct{}{}
	g.out[src] = append(g.out[src], adjEntry{peer: dst, relation: stored.Relation, edge: idx})
	g.in[dst] = append(g.in[dst], adjEntry{peer: src, relation: stored.Relation, edge: idx})
	return nil
}

// Freeze marks the graph immutable. Queries remain available; any later
// AddNode, AddEdge or RegisterRelation fails with ErrFrozen. Freeze is
// idempotent.
func (g *Graph) Freeze() {
	g.frozen = true
}

// Frozen reports whether Freeze has been called.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given ID, or ErrNodeNotFound.
func (g *Graph) Node(id string) (*Node, error) {
	idx, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	n := g.nodes[idx]
	return &n, nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.byID[id]
	return ok
}

// Neighbors returns the nodes one hop from the given node, following
// edges per direction and optionally filtered by relation (empty string
// matches every relation). Results are in edge insertion order; for
// DirectionBoth, outgoing neighbors precede incoming ones. A node
// reachable over several matching edges appears once per edge.
func (g *Graph) Neighbors(id string, relation string, direction Direction) ([]*Node, error) {
	idx, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if relation != "" && !g.HasRelation(relation) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRelation, relation)
	}
	var result []*Node
	collect := func(entries []adjEntry) {
		for _, entry := range entries {
			if relation != "" && entry.relation != relation {
				continue
			}
			n := g.nodes[entry.peer]
			result = append(result, &n)
		}
	}
	switch direction {
	case DirectionOut:
		collect(g.out[idx])
	case DirectionIn:
		collect(g.in[idx])
	case DirectionBoth:
		collect(g.out[idx])
		collect(g.in[idx])
	default:
		return nil, fmt.Errorf("invalid direction: %d", direction)
	}
	return result, nil
}

// HasPath reports whether target is reachable from source over outgoing
// edges in at most maxHops hops. The search is a bounded breadth-first
// traversal with a visited set, so it terminates on cyclic graphs.
// maxHops <= 0 always yields false unless source == target is queried,
// which returns true at zero hops.
func (g *Graph) HasPath(source, target string, maxHops int) (bool, error) {
	src, ok := g.byID[source]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	dst, ok := g.byID[target]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	if src == dst {
		return true, nil
	}
	if maxHops <= 0 {
		return false, nil
	}
	visited := make(map[int]bool, len(g.nodes))
	visited[src] = true
	frontier := []int{src}
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []int
		for _, cur := range frontier {
			for _, entry := range g.out[cur] {
				if entry.peer == dst {
					return true, nil
				}
				if !visited[entry.peer] {
					visited[entry.peer] = true
					next = append(next, entry.peer)
				}
			}
		}
		frontier = next
	}
	return false, nil
}
