package planning

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planforge/planforge/internal/planner"
	"github.com/planforge/planforge/internal/tui"
)

// defaultPlanFile is where the plan command writes when no --output is given
// and where validate and order look when no file argument is given.
const defaultPlanFile = ".planforge-plan.json"

var validateCmd = &cobra.Command{
	Use:   "validate [plan-file]",
	Short: "Re-validate a saved plan file",
	Long: `Validate loads a saved plan JSON file and runs the full consistency
check suite against it.

This command checks:
  - Architecture completeness against the planned tasks
  - File structure alignment with task file references
  - Task integrity (dependencies resolve, no cycles)
  - Logical ordering of setup, architecture, and feature work
  - PRD requirement coverage

The exit code indicates the result:
  0 - Plan is valid (may have warnings)
  1 - Plan has validation errors or could not be loaded

Examples:
  # Validate the default plan file
  planforge validate

  # Validate a specific plan file
  planforge validate my-plan.json

  # Validate with JSON output
  planforge validate --json my-plan.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var validateJSON bool

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output validation result as JSON")
}

// RegisterValidateCmd registers the validate command with the given parent command.
func RegisterValidateCmd(parent *cobra.Command) {
	parent.AddCommand(validateCmd)
}

// ValidationOutput is the JSON output format for validation results.
type ValidationOutput struct {
	Valid    bool                      `json:"valid"`
	FilePath string                    `json:"file_path"`
	PlanID   string                    `json:"plan_id"`
	Score    float64                   `json:"score"`
	Status   planner.ValidationStatus  `json:"status"`
	Issues   []planner.ValidationIssue `json:"issues"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := defaultPlanFile
	if len(args) > 0 {
		path = args[0]
	}

	plan, err := planner.LoadPlan(path)
	if err != nil {
		return err
	}

	report := planner.NewValidator().Validate(plan.Context)

	if validateJSON {
		out := ValidationOutput{
			Valid:    !report.HasErrors(),
			FilePath: path,
			PlanID:   plan.ID,
			Score:    report.Score(),
			Status:   report.Status,
			Issues:   report.Issues,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding validation output: %w", err)
		}
	} else {
		fmt.Printf("Plan %s (%s)\n\n", plan.ID, plan.Title)
		fmt.Println(tui.RenderReport(report, tui.TerminalWidth()))
	}

	if report.HasErrors() {
		return fmt.Errorf("plan failed validation: %s", report.Summary)
	}
	return nil
}
