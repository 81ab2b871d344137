// Package journal receives decision, order, fill and risk events from the core.
// Recording is fire-and-forget: sinks never return errors to the caller and the
// core never waits on them.
package journal

import (
	"sync"

	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Sink records journal events.
type Sink interface {
	Record(event types.JournalEvent)
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Record(types.JournalEvent) {}

// MemorySink keeps events in memory. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []types.JournalEvent
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(event types.JournalEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
}

// Events returns a copy of everything recorded so far.
func (m *MemorySink) Events() []types.JournalEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.JournalEvent, len(m.events))
	copy(out, m.events)

	return out
}

// RiskEvents returns the recorded risk events in order.
func (m *MemorySink) RiskEvents() []types.RiskEvent {
	return eventsOf[types.RiskEvent](m)
}

// OrderEvents returns the recorded order events in order.
func (m *MemorySink) OrderEvents() []types.OrderEvent {
	return eventsOf[types.OrderEvent](m)
}

// Fills returns the recorded fills in order.
func (m *MemorySink) Fills() []types.FillEvent {
	return eventsOf[types.FillEvent](m)
}

// Decisions returns the recorded decisions in order.
func (m *MemorySink) Decisions() []types.DecisionEvent {
	return eventsOf[types.DecisionEvent](m)
}

func eventsOf[T types.JournalEvent](m *MemorySink) []T {
	var out []T

	for _, event := range m.Events() {
		if typed, ok := event.(T); ok {
			out = append(out, typed)
		}
	}

	return out
}

// MultiSink fans every event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Record(event types.JournalEvent) {
	for _, sink := range m {
		sink.Record(event)
	}
}
