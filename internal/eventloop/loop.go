// Package eventloop serializes every state-changing event of a live session
// onto one goroutine. Market data, broker fills, task completions, timers and
// operator commands are all posted here and run one at a time.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

// Loop is a single-consumer event queue.
type Loop struct {
	events   chan func()
	done     chan struct{}
	stopOnce sync.Once
	logger   *logger.Logger
}

// New creates a loop whose queue holds up to buffer pending events.
func New(buffer int, log *logger.Logger) *Loop {
	if buffer <= 0 {
		buffer = 1024
	}

	return &Loop{
		events: make(chan func(), buffer),
		done:   make(chan struct{}),
		logger: log.Named("eventloop"),
	}
}

// Post queues fn to run on the loop. It blocks while the queue is full and
// fails once the loop has stopped.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return errors.New(errors.ErrCodeLoopStopped, "event loop stopped")
	default:
	}

	select {
	case l.events <- fn:
		return nil
	case <-l.done:
		return errors.New(errors.ErrCodeLoopStopped, "event loop stopped")
	}
}

// Call runs fn on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})

	if err := l.Post(func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return errors.New(errors.ErrCodeLoopStopped, "event loop stopped")
	}
}

// Run processes events in arrival order until ctx is cancelled. A panicking
// event is logged and the loop keeps running.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	l.logger.Debug("Event loop started")

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Event loop stopped", zap.Error(ctx.Err()))

			return nil
		case fn := <-l.events:
			l.dispatch(fn)
		}
	}
}

// Every posts fn with the current time every interval until ctx is cancelled.
// It is the loop's timer source for flatten deadlines and time stops.
func (l *Loop) Every(ctx context.Context, interval time.Duration, fn func(now time.Time)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.done:
			return nil
		case now := <-ticker.C:
			if err := l.Post(func() { fn(now) }); err != nil {
				return nil
			}
		}
	}
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Event panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	fn()
}

func (l *Loop) stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}
