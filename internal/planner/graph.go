package planner

import "github.com/planforge/planforge/internal/taskgraph"

// BuildGraph constructs a dependency graph from a task list. Nodes are added
// in list order (graph tie-breaks follow list position) and every DependsOn
// entry becomes an edge, auto-creating payload-less nodes for references to
// tasks that do not exist; taskgraph.Validate flags those as dangling.
//
// Graphs are built fresh from the current task list on every orchestration
// attempt and discarded on regeneration, never patched across contexts.
func BuildGraph(tasks []Task) *taskgraph.Graph[*Task] {
	g := taskgraph.New[*Task](taskgraph.ReplacePayload)
	for i := range tasks {
		g.AddNode(tasks[i].ID, &tasks[i])
	}
	for i := range tasks {
		for _, dep := range tasks[i].DependsOn {
			g.AddEdge(tasks[i].ID, dep)
		}
	}
	return g
}

// graphIssues converts taskgraph structural findings into validation issues
// under the dependencies component. Severity carries over directly, so the
// dangling-reference policy (error) is decided once, in taskgraph.
func graphIssues(g *taskgraph.Graph[*Task]) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range g.Validate() {
		out = append(out, ValidationIssue{
			Component:       ComponentDependencies,
			Severity:        IssueSeverity(issue.Severity),
			Message:         issue.Message,
			AffectedTaskIDs: append([]string(nil), issue.NodeIDs...),
		})
	}
	return out
}
