package bracket

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// OrderLeg is one venue order belonging to a bracket. It refers back to its
// bracket by id only.
type OrderLeg struct {
	ID             string                           `json:"id"`
	BracketID      string                           `json:"bracket_id"`
	Role           types.LegRole                    `json:"role"`
	Side           types.Side                       `json:"side"`
	Type           types.OrderType                  `json:"type"`
	RequestedPrice decimal.Decimal                  `json:"requested_price"`
	FilledPrice    optional.Option[decimal.Decimal] `json:"filled_price"`
	Quantity       int                              `json:"quantity"`
	FilledQuantity int                              `json:"filled_quantity"`
	Status         types.LegStatus                  `json:"status"`
	BrokerID       string                           `json:"broker_id"`
	// CancelRequested is set once a cancel has been sent for a live leg.
	CancelRequested bool `json:"cancel_requested"`
}

// RemainingQuantity is the unfilled part of the leg.
func (l *OrderLeg) RemainingQuantity() int {
	return l.Quantity - l.FilledQuantity
}

// ApplyFill records a partial or complete execution and keeps the average fill price.
func (l *OrderLeg) ApplyFill(qty int, price decimal.Decimal) {
	prevQty := decimal.NewFromInt(int64(l.FilledQuantity))
	addQty := decimal.NewFromInt(int64(qty))

	avg := price
	if l.FilledPrice.IsSome() && l.FilledQuantity > 0 {
		avg = l.FilledPrice.Unwrap().Mul(prevQty).Add(price.Mul(addQty)).Div(prevQty.Add(addQty))
	}

	l.FilledQuantity += qty
	l.FilledPrice = optional.Some(avg)

	if l.FilledQuantity >= l.Quantity {
		l.Status = types.LegStatusFilled
	} else {
		l.Status = types.LegStatusWorking
	}
}

// BracketOrder is an entry with its protective stop and optional target, managed
// as one unit. Quantity is fixed at creation.
type BracketOrder struct {
	ID        string                     `json:"id"`
	Signal    types.Signal               `json:"signal"`
	Entry     *OrderLeg                  `json:"entry"`
	Stop      *OrderLeg                  `json:"stop,omitempty"`
	Target    *OrderLeg                  `json:"target,omitempty"`
	Exit      *OrderLeg                  `json:"exit,omitempty"`
	Quantity  int                        `json:"quantity"`
	State     State                      `json:"state"`
	Reason    string                     `json:"reason"`
	CreatedAt time.Time                  `json:"created_at"`
	ClosedAt  optional.Option[time.Time] `json:"closed_at"`
	// EntryFilledAt is set when the entry leg is completely filled.
	EntryFilledAt optional.Option[time.Time] `json:"entry_filled_at"`
	// Closing holds the terminal state requested by a flatten or cancel that
	// is still waiting on venue confirmations.
	Closing       State  `json:"closing,omitempty"`
	ClosingReason string `json:"closing_reason,omitempty"`
}

// New builds a bracket in BUILT state from a signal. A signal without a stop
// produces a bracket without a stop leg; callers reject it before submission.
func New(signal types.Signal, quantity int) *BracketOrder {
	id := uuid.NewString()
	b := &BracketOrder{
		ID:        id,
		Signal:    signal,
		Quantity:  quantity,
		State:     StateBuilt,
		CreatedAt: signal.Timestamp,
	}

	b.Entry = b.newLeg(types.LegRoleEntry, signal.Direction.EntrySide(), signal.EffectiveEntryType(), signal.EntryPrice)

	if signal.StopPrice.IsSome() {
		b.Stop = b.newLeg(types.LegRoleStop, signal.Direction.ExitSide(), types.OrderTypeStop, signal.StopPrice.Unwrap())
	}

	if signal.TargetPrice.IsSome() {
		b.Target = b.newLeg(types.LegRoleTarget, signal.Direction.ExitSide(), types.OrderTypeLimit, signal.TargetPrice.Unwrap())
	}

	return b
}

func (b *BracketOrder) newLeg(role types.LegRole, side types.Side, orderType types.OrderType, price decimal.Decimal) *OrderLeg {
	return &OrderLeg{
		ID:             uuid.NewString(),
		BracketID:      b.ID,
		Role:           role,
		Side:           side,
		Type:           orderType,
		RequestedPrice: price,
		Quantity:       b.Quantity,
		Status:         types.LegStatusPending,
	}
}

// AddExit attaches a market exit for qty contracts. Only one exit leg ever exists.
func (b *BracketOrder) AddExit(qty int, reference decimal.Decimal) *OrderLeg {
	leg := b.newLeg(types.LegRoleExit, b.Signal.Direction.ExitSide(), types.OrderTypeMarket, reference)
	leg.Quantity = qty
	b.Exit = leg

	return leg
}

// Instrument is the traded contract.
func (b *BracketOrder) Instrument() string {
	return b.Signal.Instrument
}

// HasStop reports whether the bracket carries a protective stop leg.
func (b *BracketOrder) HasStop() bool {
	return b.Stop != nil
}

// Transition moves the bracket to the next lifecycle state.
func (b *BracketOrder) Transition(to State, reason string, at time.Time) error {
	if err := checkTransition(b.State, to); err != nil {
		return err
	}

	b.State = to
	if reason != "" {
		b.Reason = reason
	}

	if to.IsTerminal() {
		b.ClosedAt = optional.Some(at)
		b.Closing = ""
	}

	return nil
}

// Legs returns the legs that exist, entry first.
func (b *BracketOrder) Legs() []*OrderLeg {
	legs := make([]*OrderLeg, 0, 4)
	for _, leg := range []*OrderLeg{b.Entry, b.Stop, b.Target, b.Exit} {
		if leg != nil {
			legs = append(legs, leg)
		}
	}

	return legs
}

// Leg finds a leg by id.
func (b *BracketOrder) Leg(id string) (*OrderLeg, bool) {
	for _, leg := range b.Legs() {
		if leg.ID == id {
			return leg, true
		}
	}

	return nil, false
}

// Sibling returns the other protective leg of an OCO pair.
func (b *BracketOrder) Sibling(leg *OrderLeg) *OrderLeg {
	switch leg.Role {
	case types.LegRoleStop:
		return b.Target
	case types.LegRoleTarget:
		return b.Stop
	default:
		return nil
	}
}

// OpenQuantity is the position this bracket currently holds, in contracts.
func (b *BracketOrder) OpenQuantity() int {
	open := b.Entry.FilledQuantity
	for _, leg := range []*OrderLeg{b.Stop, b.Target, b.Exit} {
		if leg != nil {
			open -= leg.FilledQuantity
		}
	}

	return open
}

// LiveLegs returns legs that can still fill at the venue.
func (b *BracketOrder) LiveLegs() []*OrderLeg {
	live := make([]*OrderLeg, 0, 4)
	for _, leg := range b.Legs() {
		if leg.Status.IsLive() {
			live = append(live, leg)
		}
	}

	return live
}

// Clone returns a deep copy for read-only consumers.
func (b *BracketOrder) Clone() BracketOrder {
	clone := *b
	clone.Entry = cloneLeg(b.Entry)
	clone.Stop = cloneLeg(b.Stop)
	clone.Target = cloneLeg(b.Target)
	clone.Exit = cloneLeg(b.Exit)

	return clone
}

func cloneLeg(leg *OrderLeg) *OrderLeg {
	if leg == nil {
		return nil
	}

	c := *leg

	return &c
}

// ToOrderEvent builds the journal record for the current state.
func (b *BracketOrder) ToOrderEvent(at time.Time) types.OrderEvent {
	return types.OrderEvent{
		Time:       at,
		BracketID:  b.ID,
		Instrument: b.Instrument(),
		Direction:  b.Signal.Direction,
		State:      string(b.State),
		Reason:     b.Reason,
		Quantity:   b.Quantity,
		EntryPrice: b.Signal.EntryPrice,
		StrategyID: b.Signal.StrategyID,
	}
}
