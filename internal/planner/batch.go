package planner

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/planforge/planforge/internal/errors"
)

// TaskRunner executes one task. The orchestrated batch runner guarantees that
// all of the task's dependencies completed before the runner is invoked.
type TaskRunner func(ctx context.Context, task Task) error

// RunBatches executes an execution order batch by batch. Batches run
// sequentially; tasks inside a batch run concurrently, capped at maxParallel
// goroutines (0 means unbounded). The first task failure cancels the
// remaining tasks of its batch and no later batch starts.
func RunBatches(ctx context.Context, pc *ProjectContext, order *ExecutionOrder, maxParallel int, run TaskRunner) error {
	if run == nil {
		return errors.NewValidationError("task runner is nil").WithField("run")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if order == nil || len(order.Batches) == 0 {
		return nil
	}

	for _, batch := range order.Batches {
		if err := ctx.Err(); err != nil {
			return errors.ErrCanceled
		}

		p := pool.New().WithContext(ctx).WithCancelOnError()
		if maxParallel > 0 {
			p = p.WithMaxGoroutines(maxParallel)
		}
		for _, id := range batch {
			task := pc.TaskByID(id)
			if task == nil {
				return errors.NewNotFoundError("task", id)
			}
			p.Go(func(ctx context.Context) error {
				if err := run(ctx, *task); err != nil {
					return fmt.Errorf("task %s: %w", task.ID, err)
				}
				return nil
			})
		}
		if err := p.Wait(); err != nil {
			return err
		}
	}
	return nil
}
