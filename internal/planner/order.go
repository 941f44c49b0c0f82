package planner

import (
	"sort"

	"github.com/planforge/planforge/internal/taskgraph"
)

// OrderOptions controls how an execution order is computed.
type OrderOptions struct {
	// GroupByCategory keeps tasks of the same category adjacent where
	// dependencies allow, in category rank order (setup first, deployment
	// last). When false the order is a plain dependency-safe sort.
	GroupByCategory bool
}

// ComputeExecutionOrder produces a full execution order plus parallel batches
// for the given tasks.
//
// For acyclic dependency graphs the order is dependency-safe: every task
// appears after all of its dependencies. When the graph contains a cycle no
// such order exists; instead of failing, the optimizer degrades to a
// deterministic category/priority sort and marks the result Degraded so that
// callers can surface the weaker guarantee.
//
// Batches group tasks that can run concurrently: each batch only depends on
// tasks in earlier batches. The same input always yields the same output.
func ComputeExecutionOrder(tasks []Task, opts OrderOptions) *ExecutionOrder {
	g := BuildGraph(tasks)

	order := &ExecutionOrder{
		Order:   make([]string, 0, len(tasks)),
		Batches: computeBatches(g),
	}

	if g.HasCycle() {
		order.Order = degradedOrder(tasks)
		order.Degraded = true
		return order
	}

	if opts.GroupByCategory {
		order.Order = groupedOrder(g)
		return order
	}

	ids, err := g.TopologicalOrder()
	if err != nil {
		// Unreachable after the cycle check; degrade rather than panic.
		order.Order = degradedOrder(tasks)
		order.Degraded = true
		return order
	}
	for _, id := range ids {
		if g.Defined(id) {
			order.Order = append(order.Order, id)
		}
	}
	return order
}

// degradedOrder sorts tasks without regard to dependencies: category rank
// ascending, then priority descending, then original position. Used when the
// graph is cyclic and no dependency-safe order exists.
func degradedOrder(tasks []Task) []string {
	idx := make([]int, len(tasks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ta, tb := tasks[idx[a]], tasks[idx[b]]
		ra, rb := ta.Category.Rank(), tb.Category.Rank()
		if ra != rb {
			return ra < rb
		}
		if ta.Priority != tb.Priority {
			return ta.Priority > tb.Priority
		}
		return idx[a] < idx[b]
	})

	out := make([]string, len(tasks))
	for i, j := range idx {
		out[i] = tasks[j].ID
	}
	return out
}

// groupedOrder is a constrained topological sort: among the tasks whose
// dependencies are all satisfied, it always picks the one with the lowest
// category rank, breaking ties by insertion order. The result is
// dependency-safe and keeps same-category tasks adjacent whenever the graph
// allows it. Requires an acyclic graph.
func groupedOrder(g *taskgraph.Graph[*Task]) []string {
	nodes := g.Nodes()
	position := make(map[string]int, len(nodes))
	indegree := make(map[string]int, len(nodes))
	rank := make(map[string]int, len(nodes))
	for i, id := range nodes {
		position[id] = i
		indegree[id] = len(g.Dependencies(id))
		if task, ok := g.Payload(id); ok && task != nil {
			rank[id] = task.Category.Rank()
		} else {
			// Undefined nodes exist only as missing dependency targets;
			// release them first so they never delay real work.
			rank[id] = -1
		}
	}

	ready := make([]string, 0, len(nodes))
	for _, id := range nodes {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	out := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			a, b := ready[i], ready[best]
			if rank[a] < rank[b] || (rank[a] == rank[b] && position[a] < position[b]) {
				best = i
			}
		}
		id := ready[best]
		ready = append(ready[:best], ready[best+1:]...)

		if g.Defined(id) {
			out = append(out, id)
		}
		for _, dep := range g.Dependents(id) {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return out
}

// computeBatches converts dependency levels into ordered parallel batches.
// Tasks within one batch share a level and can run concurrently; batch order
// follows level order, and tasks within a batch keep their original order.
func computeBatches(g *taskgraph.Graph[*Task]) [][]string {
	levels := g.ComputeLevels()
	if len(levels) == 0 {
		return nil
	}

	maxLevel := 0
	for _, lvl := range levels {
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	batches := make([][]string, maxLevel+1)
	for _, id := range g.Nodes() {
		if !g.Defined(id) {
			continue
		}
		lvl := levels[id]
		batches[lvl] = append(batches[lvl], id)
	}

	out := batches[:0]
	for _, batch := range batches {
		if len(batch) > 0 {
			out = append(out, batch)
		}
	}
	return out
}
