package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/errors"
	"github.com/planforge/planforge/internal/logging"
)

// -----------------------------------------------------------------------------
// Options and results
// -----------------------------------------------------------------------------

// Options tunes one orchestration run. PRD front matter can override
// MaxIterations and ConsistencyThreshold per document.
type Options struct {
	// MaxIterations bounds the refinement loop. The initial generation does
	// not count as an iteration.
	MaxIterations int

	// ConsistencyThreshold is the validation score at which the loop stops
	// early, in [0, 1].
	ConsistencyThreshold float64

	// GroupByCategory keeps same-category tasks adjacent in the final
	// execution order where dependencies allow.
	GroupByCategory bool

	// CacheSize is the number of generation results memoized across runs.
	// Zero disables the cache.
	CacheSize int
}

// DefaultOptions returns the standard orchestration settings.
func DefaultOptions() Options {
	return Options{
		MaxIterations:        3,
		ConsistencyThreshold: 0.8,
		GroupByCategory:      true,
		CacheSize:            32,
	}
}

func (o Options) normalized() Options {
	if o.MaxIterations < 0 {
		o.MaxIterations = 0
	}
	if o.ConsistencyThreshold < 0 {
		o.ConsistencyThreshold = 0
	}
	if o.ConsistencyThreshold > 1 {
		o.ConsistencyThreshold = 1
	}
	return o
}

// IterationRecord captures one refinement attempt for the result history.
type IterationRecord struct {
	// Iteration numbers refinement attempts from 1. Iteration 0 is the
	// initial generation.
	Iteration int `json:"iteration"`

	// Score is the validation score of the candidate produced in this
	// iteration, whether or not it was accepted.
	Score float64 `json:"score"`

	// Accepted reports whether the candidate replaced the best plan so far.
	Accepted bool `json:"accepted"`

	// Note carries a short human-readable outcome, e.g. why a candidate was
	// rejected.
	Note string `json:"note,omitempty"`

	// Report is the full validation report of this iteration's pass,
	// retained for accepted and rejected candidates alike. Nil when the
	// iteration produced nothing to validate.
	Report *ValidationReport `json:"report,omitempty"`
}

// Result is the outcome of a full orchestration run: the best validated
// context, its report and execution order, and the iteration history.
type Result struct {
	Context    *ProjectContext   `json:"context"`
	Report     *ValidationReport `json:"report"`
	Order      *ExecutionOrder   `json:"order"`
	History    []IterationRecord `json:"history"`
	Iterations int               `json:"iterations"`
}

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// Phase identifies a stage of the orchestration pipeline.
type Phase string

const (
	PhaseGenerate Phase = "generate"
	PhaseValidate Phase = "validate"
	PhaseRefine   Phase = "refine"
	PhaseOrder    Phase = "order"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Event is a progress notification emitted while a run is in flight.
// Consumers (TUI, logs) receive them on the orchestrator's event channel.
type Event struct {
	Phase     Phase
	Iteration int
	Message   string
	Score     float64
	Timestamp time.Time
}

// -----------------------------------------------------------------------------
// Orchestrator
// -----------------------------------------------------------------------------

// Orchestrator drives the full planning pipeline: generate a plan from a PRD,
// build and repair its dependency structure, validate it, and refine it until
// the consistency threshold is met or the iteration budget runs out.
//
// The orchestrator never mutates a ProjectContext in place; every pipeline
// stage produces a new version and the best candidate wins.
type Orchestrator struct {
	generator TaskGenerator
	refiner   Refiner
	validator *Validator
	logger    *logging.Logger
	cache     *resultCache

	eventChan chan Event
}

// NewOrchestrator wires an orchestrator from its collaborators. The refiner
// may be nil, disabling the refinement loop. A nil logger falls back to a
// no-op logger.
func NewOrchestrator(generator TaskGenerator, refiner Refiner, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Orchestrator{
		generator: generator,
		refiner:   refiner,
		validator: NewValidator(),
		logger:    logger.WithComponent("orchestrator"),
		eventChan: make(chan Event, 100),
	}
}

// Events exposes the progress event stream. Events are dropped, not blocked
// on, when the consumer falls behind.
func (o *Orchestrator) Events() <-chan Event {
	return o.eventChan
}

func (o *Orchestrator) emit(phase Phase, iteration int, score float64, format string, args ...any) {
	ev := Event{
		Phase:     phase,
		Iteration: iteration,
		Message:   fmt.Sprintf(format, args...),
		Score:     score,
		Timestamp: time.Now(),
	}
	select {
	case o.eventChan <- ev:
	default:
		o.logger.Warn("event channel full, dropping event", "phase", phase, "message", ev.Message)
	}
}

// Orchestrate runs the pipeline for one PRD and returns the best plan it
// could produce. PRD front matter overrides matching option fields for this
// run only.
//
// Generation failures degrade to a minimal fallback plan; refinement failures
// end the loop with the best plan so far. Only context cancellation and
// structurally invalid generator output abort the run.
func (o *Orchestrator) Orchestrate(ctx context.Context, prd string, opts Options) (*Result, error) {
	opts = opts.normalized()

	doc, err := ParsePRDDocument(prd)
	if err != nil {
		return nil, err
	}
	if doc.MaxIterations != nil {
		opts.MaxIterations = *doc.MaxIterations
		opts = opts.normalized()
	}
	if doc.ConsistencyThreshold != nil {
		opts.ConsistencyThreshold = *doc.ConsistencyThreshold
		opts = opts.normalized()
	}
	if strings.TrimSpace(doc.Body) == "" {
		return nil, errors.NewValidationError("PRD has no content").WithField("prd")
	}

	if o.cache == nil && opts.CacheSize > 0 {
		o.cache = newResultCache(opts.CacheSize)
	}

	log := o.logger.WithRun(fmt.Sprintf("run-%d", time.Now().UnixNano()))
	log.Info("starting orchestration",
		"max_iterations", opts.MaxIterations,
		"threshold", opts.ConsistencyThreshold)

	// Initial generation.
	pc, err := o.generate(ctx, log, doc.Body)
	if err != nil {
		o.emit(PhaseFailed, 0, 0, "generation failed: %v", err)
		return nil, err
	}

	report := o.validator.Validate(pc)
	o.emit(PhaseValidate, 0, report.Score(), "initial plan scored %.2f", report.Score())
	log.WithPhase(string(PhaseValidate)).Info("initial validation",
		"score", report.Score(), "status", report.Status, "issues", len(report.Issues))

	result := &Result{Context: pc, Report: report}
	result.History = append(result.History, IterationRecord{
		Iteration: 0,
		Score:     report.Score(),
		Accepted:  true,
		Note:      "initial generation",
		Report:    report,
	})

	// Refinement loop: best-of-N. A candidate only replaces the current best
	// when its validation score is strictly higher.
	for iter := 1; iter <= opts.MaxIterations && o.refiner != nil; iter++ {
		if result.Report.Score() >= opts.ConsistencyThreshold && !result.Report.HasErrors() {
			log.Info("threshold reached, stopping refinement",
				"score", result.Report.Score(), "iteration", iter-1)
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.ErrCanceled
		}

		result.Iterations = iter
		itLog := log.WithIteration(iter)
		o.emit(PhaseRefine, iter, result.Report.Score(), "refining plan (score %.2f)", result.Report.Score())

		refined, err := o.refiner.Refine(ctx, result.Context, result.Report)
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.ErrCanceled
			}
			itLog.Warn("refinement failed, keeping best plan", "error", err)
			result.History = append(result.History, IterationRecord{
				Iteration: iter,
				Score:     result.Report.Score(),
				Note:      fmt.Sprintf("refinement failed: %v", err),
			})
			break
		}

		candidate, candReport, err := o.applyCandidate(result.Context, refined)
		if err != nil {
			itLog.Warn("refined tasks invalid, discarding candidate", "error", err)
			result.History = append(result.History, IterationRecord{
				Iteration: iter,
				Note:      fmt.Sprintf("candidate invalid: %v", err),
			})
			continue
		}

		record := IterationRecord{Iteration: iter, Score: candReport.Score(), Report: candReport}
		if candReport.Score() > result.Report.Score() {
			record.Accepted = true
			result.Context = candidate
			result.Report = candReport
			itLog.Info("candidate accepted", "score", candReport.Score())
			o.emit(PhaseValidate, iter, candReport.Score(), "candidate accepted with score %.2f", candReport.Score())
		} else {
			record.Note = fmt.Sprintf("score %.2f did not beat %.2f", candReport.Score(), result.Report.Score())
			itLog.Info("candidate rejected",
				"candidate_score", candReport.Score(), "best_score", result.Report.Score())
			o.emit(PhaseValidate, iter, candReport.Score(), "candidate rejected (%.2f <= %.2f)",
				candReport.Score(), result.Report.Score())
		}
		result.History = append(result.History, record)
	}

	result.Order = ComputeExecutionOrder(result.Context.Tasks, OrderOptions{GroupByCategory: opts.GroupByCategory})
	o.emit(PhaseOrder, result.Iterations, result.Report.Score(),
		"execution order ready: %d tasks in %d batches", len(result.Order.Order), result.Order.BatchCount())

	log.Info("orchestration complete",
		"score", result.Report.Score(),
		"status", result.Report.Status,
		"iterations", result.Iterations,
		"tasks", len(result.Context.Tasks),
		"degraded_order", result.Order.Degraded)
	o.emit(PhaseComplete, result.Iterations, result.Report.Score(), "plan complete")
	return result, nil
}

// generate produces the initial project context from the PRD body, falling
// back to a minimal plan when the generator fails or returns nothing usable.
func (o *Orchestrator) generate(ctx context.Context, log *logging.Logger, body string) (*ProjectContext, error) {
	genLog := log.WithPhase(string(PhaseGenerate))
	o.emit(PhaseGenerate, 0, 0, "generating plan from PRD (%d bytes)", len(body))

	req := GenerationRequest{PRD: body}
	key := fingerprint(req)

	rc, cached := o.cache.get(key)
	cacheable := false
	if cached {
		genLog.Info("generation cache hit")
	} else {
		var err error
		rc, err = o.generator.Generate(ctx, req)
		switch {
		case err == nil && rc != nil && len(rc.Tasks) > 0:
			cacheable = true
		case err != nil && ctx.Err() != nil:
			return nil, errors.ErrCanceled
		case err != nil && errors.Is(err, errors.ErrInvalidTask):
			return nil, err
		default:
			// Backend failure or empty output: degrade to the fallback plan
			// without caching it, so a later run can retry the backend.
			genLog.Warn("generation unusable, using fallback plan", "error", err)
			o.emit(PhaseGenerate, 0, 0, "generation failed, using fallback plan")
			rc = &RefinedContext{Tasks: FallbackTasks()}
		}
	}

	pc := NewProjectContext(body)
	candidate, _, err := o.applyCandidate(pc, rc)
	if err != nil {
		return nil, err
	}
	if cacheable {
		o.cache.put(key, rc)
	}
	genLog.Info("plan generated", "tasks", len(candidate.Tasks), "cached", cached)
	return candidate, nil
}

// applyCandidate merges a refined context into pc and runs the structural
// pipeline on the merged tasks: normalization, implicit dependency injection,
// and status refresh. The returned context carries exactly one version bump
// over pc, and the returned report is its validation.
func (o *Orchestrator) applyCandidate(pc *ProjectContext, rc *RefinedContext) (*ProjectContext, *ValidationReport, error) {
	merged := pc.ApplyRefinement(&RefinedContext{
		Architecture:   rc.Architecture,
		Specifications: rc.Specifications,
		FileStructure:  rc.FileStructure,
	})

	tasks := rc.Tasks
	if tasks == nil {
		tasks = merged.Tasks
	}
	tasks, err := NormalizeTasks(tasks)
	if err != nil {
		return nil, nil, err
	}
	tasks = InjectImplicitDependencies(tasks)
	refreshStatuses(tasks)

	// Fold the task update into the same refinement so the context version
	// advances once per accepted candidate.
	next := pc.ApplyRefinement(&RefinedContext{
		Architecture:   rc.Architecture,
		Specifications: rc.Specifications,
		FileStructure:  rc.FileStructure,
		Tasks:          tasks,
	})
	return next, o.validator.Validate(next), nil
}

// refreshStatuses derives non-terminal task statuses from the dependency
// structure: a task referencing an undefined dependency is blocked, anything
// else still waiting is pending. Terminal and in-progress statuses are left
// alone.
func refreshStatuses(tasks []Task) {
	defined := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		defined[t.ID] = true
	}
	for i := range tasks {
		t := &tasks[i]
		if t.Status.IsTerminal() || t.Status == StatusInProgress {
			continue
		}
		t.Status = StatusPending
		for _, dep := range t.DependsOn {
			if !defined[dep] {
				t.Status = StatusBlocked
				break
			}
		}
	}
}
