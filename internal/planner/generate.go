package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/planforge/planforge/internal/errors"
)

// TaskGenerator produces an initial project plan from a PRD. Implementations
// live outside this package; the orchestrator only depends on the contract.
type TaskGenerator interface {
	// Generate derives architecture, file structure, and tasks from the
	// request. Returned tasks are raw: the caller normalizes IDs and
	// categories before use.
	Generate(ctx context.Context, req GenerationRequest) (*RefinedContext, error)
}

// Refiner improves an existing plan using validation feedback.
type Refiner interface {
	// Refine proposes replacements for parts of the context based on the
	// report. Nil fields in the result leave the corresponding part
	// unchanged.
	Refine(ctx context.Context, pc *ProjectContext, report *ValidationReport) (*RefinedContext, error)
}

// NormalizeTasks repairs fixable defects in generated tasks and rejects
// unfixable ones. Applied in order:
//
//   - empty or duplicate IDs are replaced with a positional "task-N" ID
//   - unknown categories are coerced via ParseCategory
//   - self-dependencies and duplicate dependency entries are dropped
//   - empty statuses default to pending
//
// A missing title or an ID collision that survives repair is unfixable and
// fails the whole batch with an InvalidTaskError.
func NormalizeTasks(tasks []Task) ([]Task, error) {
	out := cloneTasks(tasks)
	seen := make(map[string]int, len(out))

	for i := range out {
		t := &out[i]

		if strings.TrimSpace(t.Title) == "" {
			return nil, errors.NewInvalidTaskError(i, "task has no title")
		}

		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			t.ID = fmt.Sprintf("task-%d", i+1)
		}
		if prev, dup := seen[t.ID]; dup {
			repaired := fmt.Sprintf("task-%d", i+1)
			if _, taken := seen[repaired]; taken || repaired == t.ID {
				return nil, errors.NewInvalidTaskError(i,
					fmt.Sprintf("duplicate task ID %q (first used by task %d)", t.ID, prev))
			}
			t.ID = repaired
		}
		seen[t.ID] = i

		if !t.Category.IsValid() {
			t.Category = ParseCategory(string(t.Category))
		}

		t.DependsOn = dedupeDeps(t.ID, t.DependsOn)

		if t.Status == "" {
			t.Status = StatusPending
		}
	}
	return out, nil
}

// dedupeDeps drops self-references, blanks, and duplicates while keeping the
// original order of first appearance.
func dedupeDeps(id string, deps []string) []string {
	if len(deps) == 0 {
		return deps
	}
	out := deps[:0]
	seen := make(map[string]bool, len(deps))
	for _, dep := range deps {
		dep = strings.TrimSpace(dep)
		if dep == "" || dep == id || seen[dep] {
			continue
		}
		seen[dep] = true
		out = append(out, dep)
	}
	return out
}

// InjectImplicitDependencies adds the structural edges a plan needs even when
// the generator omits them: a non-setup task with no declared dependency on
// any setup task gains one on the first setup task, and a feature task with
// no declared dependency on any architecture task gains one on the first
// architecture task. Declared dependencies are preserved and the operation is
// idempotent.
func InjectImplicitDependencies(tasks []Task) []Task {
	out := cloneTasks(tasks)

	idsOf := func(cat TaskCategory) []string {
		var ids []string
		for _, t := range out {
			if t.Category == cat {
				ids = append(ids, t.ID)
			}
		}
		return ids
	}
	setupIDs := idsOf(CategorySetup)
	archIDs := idsOf(CategoryArchitecture)

	dependsOnAny := func(t *Task, ids []string) bool {
		for _, id := range ids {
			if t.DependsOnTask(id) {
				return true
			}
		}
		return false
	}

	for i := range out {
		t := &out[i]
		if len(setupIDs) > 0 && t.Category != CategorySetup && !dependsOnAny(t, setupIDs) {
			t.DependsOn = appendDep(t.DependsOn, t.ID, setupIDs[0])
		}
		if len(archIDs) > 0 && t.Category == CategoryFeature && !dependsOnAny(t, archIDs) {
			t.DependsOn = appendDep(t.DependsOn, t.ID, archIDs[0])
		}
	}
	return out
}

func appendDep(deps []string, id, dep string) []string {
	if dep == id {
		return deps
	}
	for _, d := range deps {
		if d == dep {
			return deps
		}
	}
	return append(deps, dep)
}

// FallbackTasks is the minimal plan used when generation fails or produces
// nothing usable: a setup task and an architecture task. Implicit dependency
// injection links them.
func FallbackTasks() []Task {
	return []Task{
		{
			ID:       "task-1",
			Title:    "Initialize Project Setup",
			Details:  "Create the project skeleton, tooling configuration, and dependency manifest.",
			Category: CategorySetup,
			Priority: 10,
			Status:   StatusPending,
		},
		{
			ID:       "task-2",
			Title:    "Implement Core Architecture",
			Details:  "Establish the main components and their interfaces as described in the PRD.",
			Category: CategoryArchitecture,
			Priority: 9,
			Status:   StatusPending,
		},
	}
}
