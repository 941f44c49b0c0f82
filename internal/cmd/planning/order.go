package planning

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/planner"
	"github.com/planforge/planforge/internal/tui"
)

var orderCmd = &cobra.Command{
	Use:   "order [plan-file]",
	Short: "Show or run the execution order of a saved plan",
	Long: `Order loads a saved plan JSON file, recomputes its dependency-respecting
execution order, and prints it with parallel batches.

With --run, tasks are executed batch by batch: tasks within a batch run
concurrently up to --max-parallel, and a batch starts only after the
previous one finished.

Examples:
  # Show the execution order of the default plan file
  planforge order

  # Show a flat topological order without category grouping
  planforge order --no-group my-plan.json

  # Execute the plan, at most 2 tasks at a time
  planforge order --run --max-parallel 2 my-plan.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOrder,
}

var (
	orderRun         bool
	orderMaxParallel int
	orderNoGroup     bool
)

func init() {
	orderCmd.Flags().BoolVar(&orderRun, "run", false, "Execute the plan batch by batch")
	orderCmd.Flags().IntVar(&orderMaxParallel, "max-parallel", 0, "Maximum tasks run concurrently within a batch (0 = unbounded)")
	orderCmd.Flags().BoolVar(&orderNoGroup, "no-group", false, "Do not group same-category tasks in the execution order")
}

// RegisterOrderCmd registers the order command with the given parent command.
func RegisterOrderCmd(parent *cobra.Command) {
	parent.AddCommand(orderCmd)
}

func runOrder(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	path := defaultPlanFile
	if len(args) > 0 {
		path = args[0]
	}

	plan, err := planner.LoadPlan(path)
	if err != nil {
		return err
	}

	groupByCategory := cfg.Planner.GroupByCategory
	if cmd.Flags().Changed("no-group") {
		groupByCategory = !orderNoGroup
	}
	maxParallel := cfg.Planner.MaxParallel
	if cmd.Flags().Changed("max-parallel") {
		maxParallel = orderMaxParallel
	}

	order := planner.ComputeExecutionOrder(plan.Context.Tasks, planner.OrderOptions{
		GroupByCategory: groupByCategory,
	})

	fmt.Printf("Plan %s (%s)\n\n", plan.ID, plan.Title)
	fmt.Println(tui.RenderOrder(plan.Context, order, tui.TerminalWidth()))

	if !orderRun {
		return nil
	}
	return runPlanTasks(cmd.Context(), plan.Context, order, maxParallel)
}

// runPlanTasks executes the plan with a reporting runner that prints each
// task as it starts and finishes.
func runPlanTasks(ctx context.Context, pc *planner.ProjectContext, order *planner.ExecutionOrder, maxParallel int) error {
	fmt.Printf("Running %d tasks in %d batches...\n", len(order.Order), order.BatchCount())

	start := time.Now()
	err := planner.RunBatches(ctx, pc, order, maxParallel, func(ctx context.Context, task planner.Task) error {
		fmt.Printf("  [%s] %s (%s)\n", task.ID, task.Title, task.Category)
		return nil
	})
	if err != nil {
		return fmt.Errorf("plan execution: %w", err)
	}

	fmt.Printf("Done in %s.\n", time.Since(start).Round(time.Millisecond))
	return nil
}
