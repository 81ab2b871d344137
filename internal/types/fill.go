package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FillEvent is an execution of a leg reported by a broker.
type FillEvent struct {
	FillID     string          `yaml:"fill_id" json:"fill_id" csv:"fill_id"`
	LegID      string          `yaml:"leg_id" json:"leg_id" csv:"leg_id"`
	BracketID  string          `yaml:"bracket_id" json:"bracket_id" csv:"bracket_id"`
	Instrument string          `yaml:"instrument" json:"instrument" csv:"instrument"`
	Role       LegRole         `yaml:"role" json:"role" csv:"role"`
	Side       Side            `yaml:"side" json:"side" csv:"side"`
	Quantity   int             `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price      decimal.Decimal `yaml:"price" json:"price" csv:"price"`
	Commission decimal.Decimal `yaml:"commission" json:"commission" csv:"commission"`
	Time       time.Time       `yaml:"time" json:"time" csv:"time"`
}

// SignedQuantity is positive for buys and negative for sells.
func (f FillEvent) SignedQuantity() int {
	return f.Side.Sign() * f.Quantity
}

func (f FillEvent) Kind() EventKind {
	return EventKindFill
}

func (f FillEvent) OccurredAt() time.Time {
	return f.Time
}
