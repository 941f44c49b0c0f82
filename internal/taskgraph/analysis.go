package taskgraph

import (
	"github.com/planforge/planforge/internal/errors"
)

// Traversal colors for cycle detection.
const (
	colorWhite = iota // unvisited
	colorGrey         // on the current traversal stack
	colorBlack        // fully explored
)

// frame is one entry of the explicit DFS stack. next indexes the first
// unexplored dependency of id.
type frame struct {
	id   string
	next int
}

// HasCycle reports whether the graph contains a dependency cycle, including
// self-edges. O(V+E).
func (g *Graph[P]) HasCycle() bool {
	return g.findCycle(true) != nil
}

// findCycle returns the first cycle found as a node path whose first and last
// entries match, or nil when the graph is acyclic. The traversal is an
// iterative three-color DFS with an explicit stack, so arbitrarily deep
// dependency chains cannot exhaust the goroutine stack. When includeSelf is
// false, self-edges are skipped; Validate reports those separately.
func (g *Graph[P]) findCycle(includeSelf bool) []string {
	colors := make(map[string]int, len(g.order))
	parent := make(map[string]string, len(g.order))

	for _, root := range g.order {
		if colors[root] != colorWhite {
			continue
		}

		stack := []frame{{id: root}}
		colors[root] = colorGrey

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			deps := g.deps[f.id]

			if f.next < len(deps) {
				next := deps[f.next]
				f.next++

				if next == f.id && !includeSelf {
					continue
				}

				switch colors[next] {
				case colorWhite:
					colors[next] = colorGrey
					parent[next] = f.id
					stack = append(stack, frame{id: next})
				case colorGrey:
					// Back-edge to a node on the stack closes a cycle.
					return reconstructCycle(parent, f.id, next)
				}
			} else {
				colors[f.id] = colorBlack
				stack = stack[:len(stack)-1]
			}
		}
	}
	return nil
}

// reconstructCycle builds the cycle path ending the back-edge from -> to,
// where to is an ancestor of from on the traversal stack. The result follows
// edge direction: [to, ..., from, to].
func reconstructCycle(parent map[string]string, from, to string) []string {
	chain := []string{}
	for cur := from; ; cur = parent[cur] {
		chain = append(chain, cur)
		if cur == to {
			break
		}
	}

	// chain is [from, ..., to]; reverse it and close the loop.
	path := make([]string, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, chain[i])
	}
	return append(path, to)
}

// TopologicalOrder returns every node ordered so that dependencies precede
// their dependents. When several nodes are simultaneously eligible, ties go
// to the earlier-inserted node, so the result is stable across runs. Returns
// a CycleError carrying the offending path when the graph is cyclic.
func (g *Graph[P]) TopologicalOrder() ([]string, error) {
	if cycle := g.findCycle(true); cycle != nil {
		return nil, errors.NewCycleError(cycle)
	}

	visited := make(map[string]bool, len(g.order))
	order := make([]string, 0, len(g.order))

	for _, root := range g.order {
		if visited[root] {
			continue
		}

		stack := []frame{{id: root}}
		visited[root] = true

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			deps := g.deps[f.id]

			if f.next < len(deps) {
				next := deps[f.next]
				f.next++
				if !visited[next] {
					visited[next] = true
					stack = append(stack, frame{id: next})
				}
			} else {
				// Postorder append: all dependencies are already placed.
				order = append(order, f.id)
				stack = stack[:len(stack)-1]
			}
		}
	}
	return order, nil
}

// ComputeLevels assigns each node its dependency depth: leaves sit at level
// 0 and every other node sits one past its deepest dependency. Nodes caught
// in or downstream of a cycle default to level 0 rather than failing, so the
// result is always complete. Nodes sharing a level have no ordering
// constraints between them and may be processed concurrently.
func (g *Graph[P]) ComputeLevels() map[string]int {
	levels := make(map[string]int, len(g.order))
	unmet := make(map[string]int, len(g.order))

	var ready []string
	for _, id := range g.order {
		unmet[id] = len(g.deps[id])
		if unmet[id] == 0 {
			levels[id] = 0
			ready = append(ready, id)
		}
	}

	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]

		for _, dep := range g.dependents[id] {
			if levels[id]+1 > levels[dep] {
				levels[dep] = levels[id] + 1
			}
			unmet[dep]--
			if unmet[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	// Anything never peeled is in or behind a cycle; default those to 0.
	for _, id := range g.order {
		if unmet[id] > 0 {
			levels[id] = 0
		}
	}
	return levels
}

// ExecutableSet returns, in insertion order, every node that is not yet
// completed and whose full dependency set is completed.
func (g *Graph[P]) ExecutableSet(completed map[string]bool) []string {
	var executable []string
	for _, id := range g.order {
		if completed[id] {
			continue
		}
		blocked := false
		for _, dep := range g.deps[id] {
			if !completed[dep] {
				blocked = true
				break
			}
		}
		if !blocked {
			executable = append(executable, id)
		}
	}
	return executable
}
