package collab

import (
	"context"
	"fmt"
	"strings"

	"github.com/planforge/planforge/internal/logging"
	"github.com/planforge/planforge/internal/planner"
)

// OfflineBackend derives a plan from the PRD text alone, with no external
// process. The output is deterministic for identical input, which makes it
// the default for tests and air-gapped environments: a setup task, an
// architecture task, one feature task per extracted requirement, and a
// testing task when any features exist.
type OfflineBackend struct {
	logger *logging.Logger
}

// NewOfflineBackend creates an offline backend.
func NewOfflineBackend(logger *logging.Logger) *OfflineBackend {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &OfflineBackend{logger: logger.WithComponent("collab.offline")}
}

func (o *OfflineBackend) Name() BackendName { return BackendOffline }

func (o *OfflineBackend) DisplayName() string { return "Offline" }

// Generate builds the heuristic plan from the PRD.
func (o *OfflineBackend) Generate(ctx context.Context, req planner.GenerationRequest) (*planner.RefinedContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requirements := planner.ExtractRequirements(req.PRD)
	o.logger.Info("generating offline plan", "requirements", len(requirements))

	arch := offlineArchitecture(req.PRD, requirements)
	tree := offlineFileStructure(requirements)

	tasks := []planner.Task{
		{
			ID:       "task-1",
			Title:    "Initialize Project Setup",
			Details:  "Create the project skeleton, dependency manifest, and development tooling.",
			Category: planner.CategorySetup,
			Priority: 10,
			Files:    []string{"README.md"},
		},
		{
			ID:       "task-2",
			Title:    "Implement Core Architecture",
			Details:  "Build the service components, storage layer, and API surface described in the architecture.",
			Category: planner.CategoryArchitecture,
			Priority: 9,
			Files:    []string{"core"},
		},
	}

	for i, requirement := range requirements {
		tasks = append(tasks, planner.Task{
			ID:       fmt.Sprintf("task-%d", len(tasks)+1),
			Title:    featureTitle(requirement, i),
			Details:  requirement,
			Category: planner.CategoryFeature,
			Priority: 5,
			Files:    []string{fmt.Sprintf("feature_%d.go", i+1)},
		})
	}

	if len(requirements) > 0 {
		tasks = append(tasks, planner.Task{
			ID:       fmt.Sprintf("task-%d", len(tasks)+1),
			Title:    "Write Test Suite",
			Details:  "Cover every implemented requirement with automated tests.",
			Category: planner.CategoryTesting,
			Priority: 7,
			Files:    []string{"tests"},
		})
	}

	return &planner.RefinedContext{
		Architecture:  &arch,
		FileStructure: &tree,
		Tasks:         tasks,
	}, nil
}

// Refine fills the gaps validation found: missing architecture or file
// structure text, and feature tasks for uncovered requirements. Issues it
// cannot address heuristically are left for the next iteration.
func (o *OfflineBackend) Refine(ctx context.Context, pc *planner.ProjectContext, report *planner.ValidationReport) (*planner.RefinedContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requirements := planner.ExtractRequirements(pc.PRD)
	rc := &planner.RefinedContext{}

	if strings.TrimSpace(pc.Architecture) == "" {
		arch := offlineArchitecture(pc.PRD, requirements)
		rc.Architecture = &arch
	}
	if strings.TrimSpace(pc.FileStructure) == "" {
		tree := offlineFileStructure(requirements)
		rc.FileStructure = &tree
	}

	// Append feature tasks for requirements no existing task mentions.
	var haystack strings.Builder
	for _, t := range pc.Tasks {
		haystack.WriteString(t.Title)
		haystack.WriteByte('\n')
		haystack.WriteString(t.Details)
		haystack.WriteByte('\n')
	}
	existing := planner.NormalizeRequirement(haystack.String())

	tasks := append([]planner.Task(nil), pc.Tasks...)
	added := 0
	for i, requirement := range requirements {
		if strings.Contains(existing, planner.NormalizeRequirement(requirement)) {
			continue
		}
		tasks = append(tasks, planner.Task{
			ID:       fmt.Sprintf("task-%d", len(tasks)+1),
			Title:    featureTitle(requirement, i),
			Details:  requirement,
			Category: planner.CategoryFeature,
			Priority: 5,
		})
		added++
	}
	if added > 0 {
		rc.Tasks = tasks
	}

	o.logger.Info("offline refinement",
		"added_tasks", added,
		"filled_architecture", rc.Architecture != nil,
		"filled_file_structure", rc.FileStructure != nil)
	return rc, nil
}

// offlineArchitecture produces a minimal architecture description that names
// the structural, storage, and API concerns a validator expects covered.
func offlineArchitecture(prd string, requirements []string) string {
	title := "the product"
	for _, line := range strings.Split(prd, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			title = line
			break
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Architecture for %s.\n\n", title)
	sb.WriteString("The system is organized as a layered service: a core component implements\n")
	sb.WriteString("the domain rules, a storage layer owns the database schema and persistence,\n")
	sb.WriteString("and an API layer exposes each capability as an endpoint.\n")
	if len(requirements) > 0 {
		fmt.Fprintf(&sb, "\nThe plan covers %d requirement(s); an automated test suite verifies each one.\n", len(requirements))
	}
	return sb.String()
}

// offlineFileStructure produces a directory tree aligned with the offline
// architecture vocabulary.
func offlineFileStructure(requirements []string) string {
	var sb strings.Builder
	sb.WriteString("project/\n")
	sb.WriteString("  README.md\n")
	sb.WriteString("  api/\n")
	sb.WriteString("    handlers.go\n")
	sb.WriteString("  db/\n")
	sb.WriteString("    schema.sql\n")
	sb.WriteString("  internal/\n")
	sb.WriteString("    core/\n")
	sb.WriteString("    features/\n")
	for i := range requirements {
		fmt.Fprintf(&sb, "      feature_%d.go\n", i+1)
	}
	sb.WriteString("  tests/\n")
	return sb.String()
}

// featureTitle derives a short task title from a requirement line.
func featureTitle(requirement string, index int) string {
	s := planner.NormalizeRequirement(requirement)
	s = strings.TrimPrefix(s, "feature:")
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Sprintf("Implement Requirement %d", index+1)
	}

	words := strings.Fields(s)
	if len(words) > 8 {
		words = words[:8]
	}
	return "Implement: " + strings.Join(words, " ")
}
