package journal

import (
	"sync"
	"sync/atomic"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// AsyncSink hands events to a wrapped sink on its own goroutine. Record never
// blocks: when the buffer is full the event is dropped and counted.
type AsyncSink struct {
	next    Sink
	events  chan types.JournalEvent
	dropped atomic.Int64
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	logger  *logger.Logger
}

// NewAsyncSink starts the delivery goroutine. Close must be called to drain it.
func NewAsyncSink(next Sink, bufferSize int, log *logger.Logger) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = 1024
	}

	a := &AsyncSink{
		next:   next,
		events: make(chan types.JournalEvent, bufferSize),
		done:   make(chan struct{}),
		logger: log,
	}

	go a.run()

	return a
}

func (a *AsyncSink) Record(event types.JournalEvent) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		a.dropped.Add(1)

		return
	}

	select {
	case a.events <- event:
	default:
		if a.dropped.Add(1) == 1 {
			a.logger.Warn("journal buffer full, dropping events", zap.String("kind", string(event.Kind())))
		}
	}
}

// Dropped is the number of events that could not be buffered.
func (a *AsyncSink) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting events and waits until the buffer has been delivered.
func (a *AsyncSink) Close() error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()

	<-a.done

	if dropped := a.dropped.Load(); dropped > 0 {
		a.logger.Warn("journal events dropped", zap.Int64("dropped", dropped))
	}

	return nil
}

func (a *AsyncSink) run() {
	defer close(a.done)

	for event := range a.events {
		a.next.Record(event)
	}
}
