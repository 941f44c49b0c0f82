// Package planner turns a free-text product brief (PRD) into an ordered,
// validated set of implementation tasks.
//
// The package is organized around four cooperating pieces:
//   - BuildGraph constructs a task dependency graph (internal/taskgraph)
//   - Validator is a pure rule engine cross-checking architecture, file
//     structure, tasks, and PRD coverage
//   - ComputeExecutionOrder turns the graph into a category-grouped linear
//     order plus parallel batches
//   - Orchestrator drives generation, validation, ordering, and a bounded
//     refine-and-revalidate loop against an external collaborator
//
// All pieces except the Orchestrator's generator/refiner calls are
// synchronous and side-effect-free over their inputs.
package planner

import (
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Task Category
// -----------------------------------------------------------------------------

// TaskCategory classifies a task within the plan lifecycle.
//
// Categories carry a fixed rank used for category-grouped ordering:
// setup < architecture < feature < testing < documentation < deployment.
type TaskCategory string

const (
	// CategorySetup covers project scaffolding, tooling, and environment work.
	CategorySetup TaskCategory = "setup"

	// CategoryArchitecture covers core structure and foundational components.
	// The generator alias "core" parses to this category.
	CategoryArchitecture TaskCategory = "architecture"

	// CategoryFeature covers user-facing functionality.
	CategoryFeature TaskCategory = "feature"

	// CategoryTesting covers test suites and verification work.
	CategoryTesting TaskCategory = "testing"

	// CategoryDocumentation covers docs and usage guides.
	CategoryDocumentation TaskCategory = "documentation"

	// CategoryDeployment covers release, packaging, and rollout work.
	CategoryDeployment TaskCategory = "deployment"
)

// categoryRanks is the fixed ordering table for category grouping.
var categoryRanks = map[TaskCategory]int{
	CategorySetup:         0,
	CategoryArchitecture:  1,
	CategoryFeature:       2,
	CategoryTesting:       3,
	CategoryDocumentation: 4,
	CategoryDeployment:    5,
}

// String returns the string representation of the category.
func (c TaskCategory) String() string {
	return string(c)
}

// IsValid returns true if this is a recognized category value.
func (c TaskCategory) IsValid() bool {
	_, ok := categoryRanks[c]
	return ok
}

// Rank returns the category's position in the fixed ordering table.
// Unknown categories rank after every known one.
func (c TaskCategory) Rank() int {
	if r, ok := categoryRanks[c]; ok {
		return r
	}
	return len(categoryRanks)
}

// ParseCategory normalizes a raw category string from generator output.
// Matching is case-insensitive; "core" is accepted as an alias for
// architecture. Unrecognized values fall back to feature.
func ParseCategory(raw string) TaskCategory {
	switch TaskCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case CategorySetup:
		return CategorySetup
	case CategoryArchitecture, "core":
		return CategoryArchitecture
	case CategoryFeature:
		return CategoryFeature
	case CategoryTesting:
		return CategoryTesting
	case CategoryDocumentation:
		return CategoryDocumentation
	case CategoryDeployment:
		return CategoryDeployment
	default:
		return CategoryFeature
	}
}

// -----------------------------------------------------------------------------
// Task Status
// -----------------------------------------------------------------------------

// TaskStatus tracks a task's position in its execution lifecycle.
//
// Status is owned by the orchestrator, not the graph: the orchestrator flips
// statuses based on graph queries after each build.
type TaskStatus string

const (
	// StatusPending means the task is ready to be scheduled.
	StatusPending TaskStatus = "pending"

	// StatusBlocked means a dependency is unresolved (for example a
	// dangling reference after a context edit).
	StatusBlocked TaskStatus = "blocked"

	// StatusInProgress means the task is currently being worked.
	StatusInProgress TaskStatus = "in_progress"

	// StatusCompleted means the task finished successfully.
	StatusCompleted TaskStatus = "completed"

	// StatusFailed means the task terminated with an error.
	StatusFailed TaskStatus = "failed"
)

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized status value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusBlocked, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// -----------------------------------------------------------------------------
// Task
// -----------------------------------------------------------------------------

// Task is an atomic unit of planned work with a category, priority, and
// declared dependencies.
//
// Task IDs are unique within a project context. DependsOn may reference IDs
// that are not yet materialized; such forward references are tolerated while
// a plan is being assembled and flagged by validation if they never resolve.
type Task struct {
	// ID uniquely identifies this task within the context.
	// Missing IDs are auto-assigned ("task-N") at the generator boundary.
	ID string `json:"id"`

	// Title is a short, human-readable name. A task without a title is
	// rejected as invalid at the generator boundary.
	Title string `json:"title"`

	// Details contains the full description of the work.
	Details string `json:"details,omitempty"`

	// Category classifies the task; unknown categories normalize to feature.
	Category TaskCategory `json:"category"`

	// Priority orders tasks within the degraded fallback; higher values are
	// more urgent.
	Priority int `json:"priority"`

	// DependsOn lists task IDs that must complete before this task starts.
	DependsOn []string `json:"depends_on,omitempty"`

	// Files lists file paths this task expects to touch. Used by the
	// file-structure alignment check.
	Files []string `json:"files,omitempty"`

	// EstimatedDuration is an optional effort estimate.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`

	// Status tracks the task's execution lifecycle.
	Status TaskStatus `json:"status"`
}

// HasDependencies returns true if this task depends on other tasks.
func (t *Task) HasDependencies() bool {
	return len(t.DependsOn) > 0
}

// DependsOnTask returns true if id appears in the task's direct dependencies.
func (t *Task) DependsOnTask(id string) bool {
	for _, dep := range t.DependsOn {
		if dep == id {
			return true
		}
	}
	return false
}

// cloneTasks deep-copies a task slice, including dependency and file lists.
func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].DependsOn = append([]string(nil), t.DependsOn...)
		out[i].Files = append([]string(nil), t.Files...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Validation Types
// -----------------------------------------------------------------------------

// IssueComponent identifies which cross-component check produced an issue.
type IssueComponent string

const (
	// ComponentArchitecture covers architecture-completeness findings.
	ComponentArchitecture IssueComponent = "architecture"

	// ComponentFileStructure covers file-tree alignment findings.
	ComponentFileStructure IssueComponent = "fileStructure"

	// ComponentTasks covers task-level findings (missing categories,
	// ordering).
	ComponentTasks IssueComponent = "tasks"

	// ComponentDependencies covers graph-structural findings (cycles,
	// dangling references, self-dependencies).
	ComponentDependencies IssueComponent = "dependencies"

	// ComponentPRDCoverage covers requirement-coverage findings.
	ComponentPRDCoverage IssueComponent = "prdCoverage"
)

// String returns the string representation of the component.
func (c IssueComponent) String() string {
	return string(c)
}

// IssueSeverity grades a validation issue.
type IssueSeverity string

const (
	SeverityInfo    IssueSeverity = "info"
	SeverityWarning IssueSeverity = "warning"
	SeverityError   IssueSeverity = "error"
)

// String returns the string representation of the severity.
func (s IssueSeverity) String() string {
	return string(s)
}

// ValidationIssue is one finding from a consistency check. Issues are
// produced fresh each validation pass and never mutated in place.
type ValidationIssue struct {
	// Component identifies the check family that produced the issue.
	Component IssueComponent `json:"component"`

	// Severity grades the issue.
	Severity IssueSeverity `json:"severity"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// AffectedTaskIDs lists the tasks involved, when the issue is
	// task-scoped.
	AffectedTaskIDs []string `json:"affected_task_ids,omitempty"`
}

// IsError returns true if this issue is an error.
func (i *ValidationIssue) IsError() bool {
	return i.Severity == SeverityError
}

// IsWarning returns true if this issue is a warning.
func (i *ValidationIssue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// ValidationStatus is the aggregate outcome of one validation pass.
type ValidationStatus string

const (
	// ValidationPassed means every check passed cleanly.
	ValidationPassed ValidationStatus = "passed"

	// ValidationWarning means at least one check warned, or no checks ran.
	ValidationWarning ValidationStatus = "warning"

	// ValidationFailed means at least one check produced an error.
	ValidationFailed ValidationStatus = "failed"
)

// String returns the string representation of the status.
func (s ValidationStatus) String() string {
	return string(s)
}

// ValidationReport is the complete result of one validation pass: every
// issue found, per-check counts, and an aggregate status.
type ValidationReport struct {
	// Issues contains all findings from this pass.
	Issues []ValidationIssue `json:"issues"`

	// Total is the number of checks executed.
	Total int `json:"total"`

	// Passed is the number of checks that emitted no warning or error.
	Passed int `json:"passed"`

	// Failed is the number of checks that emitted at least one error.
	Failed int `json:"failed"`

	// Warnings is the number of checks that warned without failing.
	Warnings int `json:"warnings"`

	// Status is the aggregate outcome.
	Status ValidationStatus `json:"status"`

	// Summary is a one-line human-readable digest.
	Summary string `json:"summary"`
}

// Score returns the fraction of checks that passed, in [0, 1].
// A report with zero checks scores 0.
func (r *ValidationReport) Score() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// HasErrors returns true if any check failed.
func (r *ValidationReport) HasErrors() bool {
	return r.Failed > 0
}

// IssuesFor returns all issues attributed to the given component.
func (r *ValidationReport) IssuesFor(component IssueComponent) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Component == component {
			out = append(out, issue)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Execution Order
// -----------------------------------------------------------------------------

// ExecutionOrder is the scheduling output for one graph: a linear order,
// parallel batches, and a flag marking the dependency-unsafe fallback.
type ExecutionOrder struct {
	// Order lists every task ID in execution order.
	Order []string `json:"order"`

	// Degraded is true when the graph was cyclic and the order is the
	// category-then-priority fallback, which is not dependency-safe.
	Degraded bool `json:"degraded"`

	// Batches groups task IDs by graph level. Tasks within a batch have no
	// ordering constraints between them and may run concurrently; batches
	// are consumed strictly in increasing level order.
	Batches [][]string `json:"batches"`
}

// BatchCount returns the number of parallel batches.
func (o *ExecutionOrder) BatchCount() int {
	return len(o.Batches)
}

// -----------------------------------------------------------------------------
// Generator Boundary Types
// -----------------------------------------------------------------------------

// GenerationRequest carries the textual inputs for one generation call.
type GenerationRequest struct {
	PRD            string `json:"prd"`
	Architecture   string `json:"architecture,omitempty"`
	Specifications string `json:"specifications,omitempty"`
	FileStructure  string `json:"file_structure,omitempty"`
}

// RefinedContext is a partial context update produced by a refiner. Nil
// fields mean "unchanged"; a non-nil Tasks slice replaces the task list
// wholesale and passes back through the generator boundary checks.
type RefinedContext struct {
	Architecture   *string `json:"architecture,omitempty"`
	Specifications *string `json:"specifications,omitempty"`
	FileStructure  *string `json:"file_structure,omitempty"`
	Tasks          []Task  `json:"tasks,omitempty"`
}

// IsEmpty returns true if the refinement changes nothing.
func (rc *RefinedContext) IsEmpty() bool {
	return rc == nil || (rc.Architecture == nil && rc.Specifications == nil &&
		rc.FileStructure == nil && rc.Tasks == nil)
}
