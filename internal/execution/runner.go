package execution

import "context"

// Task performs broker I/O away from the core and returns a completion that the
// runner applies back on the core's thread. A nil completion is ignored.
type Task func(ctx context.Context) func()

// TaskRunner schedules broker I/O. The engine never mutates its own state from
// inside a task; only completions touch engine state.
type TaskRunner interface {
	Go(task Task)
}

// InlineRunner runs each task and its completion immediately on the caller's
// goroutine. It is used by backtests and tests, where the simulated broker
// answers synchronously.
type InlineRunner struct {
	ctx context.Context
}

// NewInlineRunner creates a runner that passes ctx to every task.
func NewInlineRunner(ctx context.Context) *InlineRunner {
	return &InlineRunner{ctx: ctx}
}

func (r *InlineRunner) Go(task Task) {
	if done := task(r.ctx); done != nil {
		done()
	}
}
