package taskgraph

import (
	"fmt"

	"github.com/planforge/planforge/internal/errors"
)

// Severity grades a structural issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IssueKind identifies the class of a structural issue.
type IssueKind string

const (
	// IssueCycle reports a dependency cycle; the issue message carries the path.
	IssueCycle IssueKind = "cycle"
	// IssueDangling reports a dependency reference to a node that was never defined.
	IssueDangling IssueKind = "dangling"
	// IssueSelfDependency reports a node that depends on itself.
	IssueSelfDependency IssueKind = "self_dependency"
	// IssueIsolated reports a node with neither dependencies nor dependents.
	IssueIsolated IssueKind = "isolated"
)

// Issue is one structural finding from Validate.
type Issue struct {
	Kind     IssueKind
	Severity Severity
	Message  string
	// NodeIDs lists the nodes affected by the issue. For dangling references
	// these are the referencing nodes; the missing id itself is in MissingRef.
	NodeIDs []string
	// MissingRef is set for dangling issues: the id that was referenced but
	// never defined.
	MissingRef string
	// CyclePath is set for cycle issues: the offending path, first and last
	// entries matching.
	CyclePath []string
}

// Validate inspects the graph's structure and returns all findings. It never
// fails: cycles, dangling references, and self-dependencies come back as
// error issues, isolated nodes as info. Exactly one dangling issue is
// produced per distinct missing reference.
func (g *Graph[P]) Validate() []Issue {
	var issues []Issue

	// Self-dependencies are reported individually, then excluded from the
	// cycle search so a pure self-loop is not double-reported.
	for _, id := range g.order {
		if g.depSet[id][id] {
			issues = append(issues, Issue{
				Kind:     IssueSelfDependency,
				Severity: SeverityError,
				Message:  fmt.Sprintf("task '%s' depends on itself", id),
				NodeIDs:  []string{id},
			})
		}
	}

	if cycle := g.findCycle(false); cycle != nil {
		issues = append(issues, Issue{
			Kind:      IssueCycle,
			Severity:  SeverityError,
			Message:   errors.NewCycleError(cycle).Error(),
			NodeIDs:   uniquePath(cycle),
			CyclePath: cycle,
		})
	}

	// One issue per distinct payload-less node.
	for _, id := range g.order {
		if g.defined[id] {
			continue
		}
		refs := g.dependents[id]
		issue := Issue{
			Kind:       IssueDangling,
			Severity:   SeverityError,
			MissingRef: id,
		}
		switch len(refs) {
		case 0:
			issue.Message = fmt.Sprintf("node '%s' declares dependencies but is never defined", id)
			issue.NodeIDs = []string{id}
		case 1:
			issue.Message = errors.NewDanglingError(refs[0], id).Error()
			issue.NodeIDs = append([]string(nil), refs...)
		default:
			issue.Message = fmt.Sprintf("%d tasks depend on unknown task '%s'", len(refs), id)
			issue.NodeIDs = append([]string(nil), refs...)
		}
		issues = append(issues, issue)
	}

	if len(g.order) > 1 {
		for _, id := range g.order {
			if len(g.deps[id]) == 0 && len(g.dependents[id]) == 0 {
				issues = append(issues, Issue{
					Kind:     IssueIsolated,
					Severity: SeverityInfo,
					Message:  fmt.Sprintf("task '%s' has no dependencies and no dependents", id),
					NodeIDs:  []string{id},
				})
			}
		}
	}

	return issues
}

// uniquePath returns the distinct nodes of a cycle path, preserving order.
func uniquePath(path []string) []string {
	seen := make(map[string]bool, len(path))
	var out []string
	for _, id := range path {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
