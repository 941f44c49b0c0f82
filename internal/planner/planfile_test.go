package planner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/planforge/planforge/internal/errors"
)

func samplePlan() *Plan {
	pc := NewProjectContext("# Widgets\n\nThe system must track widgets.").
		WithTasks([]Task{
			{ID: "task-1", Title: "Setup", Category: CategorySetup, Status: StatusPending},
			{ID: "task-2", Title: "Arch", Category: CategoryArchitecture, DependsOn: []string{"task-1"}, Status: StatusPending},
		})
	report := NewValidator().Validate(pc)
	order := ComputeExecutionOrder(pc.Tasks, OrderOptions{GroupByCategory: true})
	return NewPlan("Widgets", &Result{Context: pc, Report: report, Order: order})
}

func TestSavePlan_LoadPlan_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans", "widgets.json")

	saved := samplePlan()
	if err := SavePlan(saved, path); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	loaded, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if loaded.ID != saved.ID || loaded.Title != "Widgets" {
		t.Errorf("loaded ID/Title = %q/%q", loaded.ID, loaded.Title)
	}
	if len(loaded.Context.Tasks) != 2 {
		t.Errorf("loaded %d tasks, want 2", len(loaded.Context.Tasks))
	}
	if loaded.Order == nil || len(loaded.Order.Order) != 2 {
		t.Errorf("loaded order = %+v", loaded.Order)
	}
	if loaded.Report == nil || loaded.Report.Total != 5 {
		t.Errorf("loaded report = %+v", loaded.Report)
	}
}

func TestLoadPlan_Missing(t *testing.T) {
	_, err := LoadPlan(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, errors.ErrPlanNotFound) {
		t.Fatalf("err = %v, want ErrPlanNotFound", err)
	}
}

func TestLoadPlan_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadPlan(path)
	if !errors.Is(err, errors.ErrPlanInvalid) {
		t.Fatalf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestLoadPlan_MissingContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"id":"plan-x","title":"t"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadPlan(path)
	if !errors.Is(err, errors.ErrPlanInvalid) {
		t.Fatalf("err = %v, want ErrPlanInvalid", err)
	}
}

func TestNewPlan_TitleFallsBackToPRDHeading(t *testing.T) {
	pc := NewProjectContext("# Inventory Tracker\n\nbody")
	plan := NewPlan("", &Result{Context: pc})
	if plan.Title != "Inventory Tracker" {
		t.Errorf("Title = %q", plan.Title)
	}
	if !strings.HasPrefix(plan.ID, "plan-") {
		t.Errorf("ID = %q, want plan- prefix", plan.ID)
	}
}

func TestNewPlan_UniqueIDs(t *testing.T) {
	a, b := newPlanID(), newPlanID()
	if a == b {
		t.Errorf("consecutive plan IDs collide: %s", a)
	}
}
