// Package internal contains integration tests that verify the planning
// packages work together correctly: backend generation, orchestration,
// validation, persistence, and batch execution.
package internal

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/planforge/planforge/internal/collab"
	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/logging"
	"github.com/planforge/planforge/internal/planner"
)

const integrationPRD = `# Widget Service

The system must store widgets in a database.
Users can list widgets through an API.
Users can delete widgets they own.
`

// newOfflineOrchestrator wires the full production stack minus the external
// generator command.
func newOfflineOrchestrator(t *testing.T) *planner.Orchestrator {
	t.Helper()

	cfg := config.Default()
	cfg.Generator.Backend = "offline"

	backend, err := collab.NewFromConfig(cfg, logging.NopLogger())
	if err != nil {
		t.Fatalf("NewFromConfig failed: %v", err)
	}
	return planner.NewOrchestrator(backend, backend, logging.NopLogger())
}

// TestFullPipeline runs PRD-to-plan end to end and checks every artifact the
// pipeline promises: a validated context, a passing report, and a
// dependency-safe execution order.
func TestFullPipeline(t *testing.T) {
	orch := newOfflineOrchestrator(t)
	go func() {
		for range orch.Events() {
		}
	}()

	result, err := orch.Orchestrate(context.Background(), integrationPRD, planner.DefaultOptions())
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	if result.Report.HasErrors() {
		t.Errorf("final plan has errors: %+v", result.Report.Issues)
	}
	if result.Report.Score() < 0.8 {
		t.Errorf("final score %.2f below threshold", result.Report.Score())
	}
	if len(result.Context.Tasks) == 0 {
		t.Fatal("no tasks generated")
	}

	// Every task must appear in the execution order, dependencies first.
	if result.Order.Degraded {
		t.Error("order degraded on an acyclic plan")
	}
	position := make(map[string]int, len(result.Order.Order))
	for i, id := range result.Order.Order {
		position[id] = i
	}
	for _, task := range result.Context.Tasks {
		pos, ok := position[task.ID]
		if !ok {
			t.Errorf("task %s missing from execution order", task.ID)
			continue
		}
		for _, dep := range task.DependsOn {
			if position[dep] >= pos {
				t.Errorf("dependency %s does not precede %s", dep, task.ID)
			}
		}
	}
}

// TestPipelineEventStream verifies the orchestrator narrates a run from
// generation through completion.
func TestPipelineEventStream(t *testing.T) {
	orch := newOfflineOrchestrator(t)

	var (
		mu     sync.Mutex
		phases []planner.Phase
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range orch.Events() {
			mu.Lock()
			phases = append(phases, ev.Phase)
			mu.Unlock()
			if ev.Phase == planner.PhaseComplete || ev.Phase == planner.PhaseFailed {
				return
			}
		}
	}()

	if _, err := orch.Orchestrate(context.Background(), integrationPRD, planner.DefaultOptions()); err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("event stream never reached a terminal phase")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(phases) == 0 {
		t.Fatal("no events emitted")
	}
	if phases[len(phases)-1] != planner.PhaseComplete {
		t.Errorf("last phase = %q, want complete", phases[len(phases)-1])
	}
	var sawOrder bool
	for _, p := range phases {
		if p == planner.PhaseOrder {
			sawOrder = true
		}
	}
	if !sawOrder {
		t.Errorf("phases %v missing the ordering phase", phases)
	}
}

// TestSaveLoadRoundTrip persists an orchestration result and confirms the
// loaded plan still validates identically.
func TestSaveLoadRoundTrip(t *testing.T) {
	orch := newOfflineOrchestrator(t)
	go func() {
		for range orch.Events() {
		}
	}()

	result, err := orch.Orchestrate(context.Background(), integrationPRD, planner.DefaultOptions())
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plan.json")
	saved := planner.NewPlan("Widget service", result)
	if err := planner.SavePlan(saved, path); err != nil {
		t.Fatalf("SavePlan failed: %v", err)
	}

	loaded, err := planner.LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan failed: %v", err)
	}
	if loaded.ID != saved.ID {
		t.Errorf("loaded ID = %q, want %q", loaded.ID, saved.ID)
	}
	if len(loaded.Context.Tasks) != len(result.Context.Tasks) {
		t.Errorf("loaded %d tasks, saved %d", len(loaded.Context.Tasks), len(result.Context.Tasks))
	}

	reloadedReport := planner.NewValidator().Validate(loaded.Context)
	if reloadedReport.Score() != result.Report.Score() {
		t.Errorf("reloaded score %.2f differs from original %.2f",
			reloadedReport.Score(), result.Report.Score())
	}
}

// TestBatchExecutionRespectsDependencies runs the generated plan through the
// batch runner and asserts no task starts before its dependencies finished.
func TestBatchExecutionRespectsDependencies(t *testing.T) {
	orch := newOfflineOrchestrator(t)
	go func() {
		for range orch.Events() {
		}
	}()

	result, err := orch.Orchestrate(context.Background(), integrationPRD, planner.DefaultOptions())
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}

	var mu sync.Mutex
	finished := make(map[string]bool)

	err = planner.RunBatches(context.Background(), result.Context, result.Order, 2,
		func(ctx context.Context, task planner.Task) error {
			mu.Lock()
			defer mu.Unlock()
			for _, dep := range task.DependsOn {
				if !finished[dep] {
					t.Errorf("task %s started before dependency %s finished", task.ID, dep)
				}
			}
			finished[task.ID] = true
			return nil
		})
	if err != nil {
		t.Fatalf("RunBatches failed: %v", err)
	}
	if len(finished) != len(result.Context.Tasks) {
		t.Errorf("ran %d tasks, want %d", len(finished), len(result.Context.Tasks))
	}
}

// TestPRDFrontMatterOverridesOptions confirms per-document settings win over
// the defaults passed in code.
func TestPRDFrontMatterOverridesOptions(t *testing.T) {
	orch := newOfflineOrchestrator(t)
	go func() {
		for range orch.Events() {
		}
	}()

	prd := strings.Join([]string{
		"---",
		"max_iterations: 0",
		"---",
		integrationPRD,
	}, "\n")

	result, err := orch.Orchestrate(context.Background(), prd, planner.DefaultOptions())
	if err != nil {
		t.Fatalf("Orchestrate failed: %v", err)
	}
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0 when front matter disables refinement", result.Iterations)
	}
}
