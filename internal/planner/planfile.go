package planner

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/errors"
)

// Plan is the persisted form of a finished orchestration run.
type Plan struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	CreatedAt time.Time         `json:"created_at"`
	Context   *ProjectContext   `json:"context"`
	Report    *ValidationReport `json:"report"`
	Order     *ExecutionOrder   `json:"order"`
}

// NewPlan wraps an orchestration result for persistence. The title falls back
// to the first non-empty PRD line when empty.
func NewPlan(title string, result *Result) *Plan {
	if title == "" && result != nil && result.Context != nil {
		title = firstLine(result.Context.PRD)
	}
	plan := &Plan{
		ID:        newPlanID(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if result != nil {
		plan.Context = result.Context
		plan.Report = result.Report
		plan.Order = result.Order
	}
	return plan
}

// newPlanID generates a short random identifier, e.g. "plan-3f8a92c41d06b7e5".
func newPlanID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "plan-" + hex.EncodeToString([]byte(time.Now().Format("150405")))
	}
	return "plan-" + hex.EncodeToString(buf)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return "untitled plan"
}

// SavePlan writes the plan as indented JSON, creating parent directories as
// needed.
func SavePlan(plan *Plan, path string) error {
	if plan == nil {
		return errors.NewValidationError("plan is nil").WithField("plan")
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling plan")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating plan directory")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "writing plan file")
	}
	return nil
}

// LoadPlan reads a plan saved by SavePlan. A missing file maps to
// ErrPlanNotFound, malformed content to ErrPlanInvalid.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.Join(errors.ErrPlanNotFound, err), path)
		}
		return nil, errors.Wrap(err, "reading plan file")
	}

	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, errors.Wrap(errors.Join(errors.ErrPlanInvalid, err), "parsing plan file")
	}
	if plan.Context == nil {
		return nil, errors.Wrap(errors.ErrPlanInvalid, "plan file has no project context")
	}
	return &plan, nil
}
