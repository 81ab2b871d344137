package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind names the journal table an event belongs to.
type EventKind string

const (
	EventKindDecision EventKind = "decision"
	EventKindOrder    EventKind = "order"
	EventKindFill     EventKind = "fill"
	EventKindRisk     EventKind = "risk"
)

// JournalEvent is anything the core hands to a journal sink.
type JournalEvent interface {
	Kind() EventKind
	OccurredAt() time.Time
}

// DecisionEvent records what happened to a strategy signal.
type DecisionEvent struct {
	Time       time.Time `yaml:"time" json:"time"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id"`
	Instrument string    `yaml:"instrument" json:"instrument"`
	Direction  Direction `yaml:"direction" json:"direction"`
	Accepted   bool      `yaml:"accepted" json:"accepted"`
	BracketID  string    `yaml:"bracket_id" json:"bracket_id"`
	Reason     string    `yaml:"reason" json:"reason"`
	Message    string    `yaml:"message" json:"message"`
}

func (e DecisionEvent) Kind() EventKind {
	return EventKindDecision
}

func (e DecisionEvent) OccurredAt() time.Time {
	return e.Time
}

// OrderEvent records a bracket lifecycle transition.
type OrderEvent struct {
	Time       time.Time       `yaml:"time" json:"time"`
	BracketID  string          `yaml:"bracket_id" json:"bracket_id"`
	Instrument string          `yaml:"instrument" json:"instrument"`
	Direction  Direction       `yaml:"direction" json:"direction"`
	State      string          `yaml:"state" json:"state"`
	Reason     string          `yaml:"reason" json:"reason"`
	Quantity   int             `yaml:"quantity" json:"quantity"`
	EntryPrice decimal.Decimal `yaml:"entry_price" json:"entry_price"`
	StrategyID string          `yaml:"strategy_id" json:"strategy_id"`
}

func (e OrderEvent) Kind() EventKind {
	return EventKindOrder
}

func (e OrderEvent) OccurredAt() time.Time {
	return e.Time
}

// RiskEventKind classifies risk governor events.
type RiskEventKind string

const (
	RiskEventReject     RiskEventKind = "reject"
	RiskEventKillSwitch RiskEventKind = "kill_switch"
	RiskEventFlatten    RiskEventKind = "flatten"
	RiskEventHalt       RiskEventKind = "halt"
	RiskEventReset      RiskEventKind = "reset"
)

// RiskEvent is emitted on every reject and every kill.
type RiskEvent struct {
	Time    time.Time     `yaml:"time" json:"time"`
	Type    RiskEventKind `yaml:"type" json:"type"`
	OrderID string        `yaml:"order_id" json:"order_id"`
	Reason  string        `yaml:"reason" json:"reason"`
	State   RiskState     `yaml:"state" json:"state"`
}

func (e RiskEvent) Kind() EventKind {
	return EventKindRisk
}

func (e RiskEvent) OccurredAt() time.Time {
	return e.Time
}
