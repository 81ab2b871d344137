package eventloop

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-futures/internal/execution"
	"go.uber.org/zap"
)

// Runner executes broker tasks on background goroutines and posts their
// completions back into the loop.
type Runner struct {
	loop *Loop
	ctx  context.Context
	wg   sync.WaitGroup
}

var _ execution.TaskRunner = (*Runner)(nil)

// NewRunner creates a runner whose tasks receive ctx.
func NewRunner(ctx context.Context, loop *Loop) *Runner {
	return &Runner{loop: loop, ctx: ctx}
}

func (r *Runner) Go(task execution.Task) {
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()

		done := task(r.ctx)
		if done == nil {
			return
		}

		if err := r.loop.Post(done); err != nil {
			r.loop.logger.Warn("Task completion dropped", zap.Error(err))
		}
	}()
}

// Wait blocks until every started task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
