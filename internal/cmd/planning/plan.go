package planning

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planforge/planforge/internal/collab"
	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/logging"
	"github.com/planforge/planforge/internal/planner"
	"github.com/planforge/planforge/internal/tui"
	"github.com/planforge/planforge/internal/watch"
)

var planCmd = &cobra.Command{
	Use:   "plan <prd-file>",
	Short: "Generate a validated task plan from a PRD",
	Long: `Plan reads a product requirements document, generates implementation
tasks with dependencies, validates the plan, and refines it until it
meets the consistency threshold or the iteration budget runs out.

The PRD may carry YAML front matter overriding planner settings:

  ---
  max_iterations: 5
  consistency_threshold: 0.9
  ---

Examples:
  # Generate a plan and print the report and execution order
  planforge plan docs/prd.md

  # Save the plan for later validation or execution
  planforge plan --output .planforge-plan.json docs/prd.md

  # Re-plan automatically whenever the PRD changes
  planforge plan --watch docs/prd.md

  # Show live progress while the plan is generated
  planforge plan --ui docs/prd.md`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var (
	planMaxIterations int
	planThreshold     float64
	planBackend       string
	planOutputFile    string
	planWatch         bool
	planUI            bool
	planNoGroup       bool
)

func init() {
	planCmd.Flags().IntVar(&planMaxIterations, "max-iterations", 0, "Maximum refinement iterations (0 disables refinement)")
	planCmd.Flags().Float64Var(&planThreshold, "threshold", 0, "Consistency score at which refinement stops early")
	planCmd.Flags().StringVar(&planBackend, "backend", "", "Generation backend: 'command' or 'offline'")
	planCmd.Flags().StringVar(&planOutputFile, "output", "", "Write the plan JSON to this file path")
	planCmd.Flags().BoolVar(&planWatch, "watch", false, "Re-plan whenever the PRD file changes")
	planCmd.Flags().BoolVar(&planUI, "ui", false, "Show live progress in an interactive view")
	planCmd.Flags().BoolVar(&planNoGroup, "no-group", false, "Do not group same-category tasks in the execution order")
}

// RegisterPlanCmd registers the plan command with the given parent command.
func RegisterPlanCmd(parent *cobra.Command) {
	parent.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", config.ValidationErrors(errs))
	}

	// Apply config file settings, CLI flags override
	opts := planner.Options{
		MaxIterations:        cfg.Planner.MaxIterations,
		ConsistencyThreshold: cfg.Planner.ConsistencyThreshold,
		GroupByCategory:      cfg.Planner.GroupByCategory,
		CacheSize:            cfg.Planner.CacheSize,
	}
	if cmd.Flags().Changed("max-iterations") {
		opts.MaxIterations = planMaxIterations
	}
	if cmd.Flags().Changed("threshold") {
		opts.ConsistencyThreshold = planThreshold
	}
	if cmd.Flags().Changed("no-group") {
		opts.GroupByCategory = !planNoGroup
	}
	if cmd.Flags().Changed("backend") {
		cfg.Generator.Backend = planBackend
	}

	logger := newRunLogger(cfg)
	defer func() { _ = logger.Close() }()

	backend, err := collab.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}

	prdPath := args[0]
	orch := planner.NewOrchestrator(backend, backend, logger)

	if err := planOnce(cmd.Context(), orch, prdPath, opts); err != nil {
		return err
	}
	if !planWatch {
		return nil
	}
	return watchAndReplan(cmd.Context(), orch, prdPath, opts, logger)
}

// planOnce runs a single orchestration pass over the PRD file and prints
// the result.
func planOnce(ctx context.Context, orch *planner.Orchestrator, prdPath string, opts planner.Options) error {
	prd, err := os.ReadFile(prdPath)
	if err != nil {
		return fmt.Errorf("reading PRD: %w", err)
	}

	var result *planner.Result
	if planUI {
		result, err = orchestrateWithUI(ctx, orch, string(prd), opts)
	} else {
		fmt.Printf("Planning from %s...\n", prdPath)
		go drainEvents(ctx, orch.Events())
		result, err = orch.Orchestrate(ctx, string(prd), opts)
	}
	if err != nil {
		return err
	}

	fmt.Println(tui.RenderResult(result, tui.TerminalWidth()))

	if planOutputFile != "" {
		p := planner.NewPlan("", result)
		if err := planner.SavePlan(p, planOutputFile); err != nil {
			return fmt.Errorf("saving plan: %w", err)
		}
		fmt.Printf("Plan %s saved to %s\n", p.ID, planOutputFile)
	}
	return nil
}

// orchestrateWithUI runs the pipeline while a progress view consumes its
// event stream. Quitting the view cancels the run.
func orchestrateWithUI(ctx context.Context, orch *planner.Orchestrator, prd string, opts planner.Options) (*planner.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tui.NewProgram(orch.Events())

	var (
		result *planner.Result
		runErr error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = orch.Orchestrate(ctx, prd, opts)
		p.Quit()
	}()

	model, uiErr := p.Run()
	if pm, ok := model.(tui.ProgressModel); ok && pm.Canceled() {
		cancel()
	}
	<-done

	if uiErr != nil {
		return nil, fmt.Errorf("progress view: %w", uiErr)
	}
	return result, runErr
}

// watchAndReplan blocks re-running the pipeline each time the PRD changes,
// until the context is canceled.
func watchAndReplan(ctx context.Context, orch *planner.Orchestrator, prdPath string, opts planner.Options, logger *logging.Logger) error {
	w, err := watch.New(prdPath, logger)
	if err != nil {
		return fmt.Errorf("watching PRD: %w", err)
	}

	// Coalesce change notifications so a run in progress absorbs bursts.
	changes := make(chan struct{}, 1)
	w.SetChangeCallback(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	fmt.Printf("Watching %s for changes (ctrl+c to stop)...\n", prdPath)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			fmt.Printf("\n%s changed, re-planning...\n", prdPath)
			if err := planOnce(ctx, orch, prdPath, opts); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "re-plan failed: %v\n", err)
			}
		}
	}
}

// drainEvents keeps the orchestrator's event channel from filling up when
// no progress view is attached.
func drainEvents(ctx context.Context, events <-chan planner.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
		}
	}
}

// newRunLogger builds the run logger from config, falling back to a no-op
// logger when file logging is disabled or cannot be set up.
func newRunLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	logger, err := logging.NewLoggerWithRotation(cfg.Logging.Dir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: file logging unavailable: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}
