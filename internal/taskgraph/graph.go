// Package taskgraph implements a directed dependency graph over string
// identifiers with an arbitrary payload per node. An edge (from, to) means
// "from depends on to" and to must complete first.
//
// The graph is deterministic: node iteration follows insertion order, and all
// derived orderings (topological sort, levels, executable sets) break ties by
// insertion order. Instances are not safe for concurrent mutation; build a
// graph, then share it read-only.
package taskgraph

// ConflictPolicy controls what AddNode does when a node id is added twice
// with a payload.
type ConflictPolicy int

const (
	// ReplacePayload overwrites the existing payload on repeated AddNode calls.
	ReplacePayload ConflictPolicy = iota
	// KeepExisting keeps the first payload and ignores later AddNode calls
	// for the same id.
	KeepExisting
)

// Graph is a directed dependency graph with payloads of type P.
// The zero value is not usable; construct instances with New.
type Graph[P any] struct {
	policy ConflictPolicy

	order    []string     // node ids in insertion order
	payloads map[string]P // id -> payload, present only for defined nodes
	defined  map[string]bool

	deps       map[string][]string // id -> direct dependencies, insertion order
	depSet     map[string]map[string]bool
	dependents map[string][]string // reverse index, insertion order
}

// New creates an empty graph with the given node conflict policy.
func New[P any](policy ConflictPolicy) *Graph[P] {
	return &Graph[P]{
		policy:     policy,
		payloads:   make(map[string]P),
		defined:    make(map[string]bool),
		deps:       make(map[string][]string),
		depSet:     make(map[string]map[string]bool),
		dependents: make(map[string][]string),
	}
}

// ensureNode registers an id without marking it defined. Reports whether the
// node was newly created.
func (g *Graph[P]) ensureNode(id string) bool {
	if _, ok := g.depSet[id]; ok {
		return false
	}
	g.order = append(g.order, id)
	g.deps[id] = nil
	g.depSet[id] = make(map[string]bool)
	return true
}

// AddNode inserts a node with the given payload. When the id already carries
// a payload, the conflict policy decides whether the payload is replaced or
// kept. Either way the call is idempotent with respect to graph shape: edges
// and insertion position are unaffected.
func (g *Graph[P]) AddNode(id string, payload P) {
	g.ensureNode(id)
	if g.defined[id] && g.policy == KeepExisting {
		return
	}
	g.defined[id] = true
	g.payloads[id] = payload
}

// AddEdge registers that from depends on to. Unknown ids are auto-created as
// payload-less nodes, so edges may be declared before their nodes are fully
// populated; Validate flags nodes that remain payload-less. Duplicate edges
// collapse. Self-edges are recorded so Validate can report them.
func (g *Graph[P]) AddEdge(from, to string) {
	g.ensureNode(from)
	g.ensureNode(to)
	if g.depSet[from][to] {
		return
	}
	g.depSet[from][to] = true
	g.deps[from] = append(g.deps[from], to)
	g.dependents[to] = append(g.dependents[to], from)
}

// Len returns the number of nodes, including payload-less ones.
func (g *Graph[P]) Len() int {
	return len(g.order)
}

// Nodes returns all node ids in insertion order.
func (g *Graph[P]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// HasNode reports whether the id is present, payload-less or not.
func (g *Graph[P]) HasNode(id string) bool {
	_, ok := g.depSet[id]
	return ok
}

// Defined reports whether the id has been given a payload via AddNode.
func (g *Graph[P]) Defined(id string) bool {
	return g.defined[id]
}

// Payload returns the payload for id and whether one was set.
func (g *Graph[P]) Payload(id string) (P, bool) {
	p, ok := g.payloads[id]
	return p, ok
}

// Dependencies returns the direct dependencies of id in insertion order.
func (g *Graph[P]) Dependencies(id string) []string {
	return append([]string(nil), g.deps[id]...)
}

// Dependents returns all nodes whose dependency set contains id, in the
// order their edges were added.
func (g *Graph[P]) Dependents(id string) []string {
	return append([]string(nil), g.dependents[id]...)
}
