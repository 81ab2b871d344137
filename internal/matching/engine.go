// Package matching is a single-account simulated venue. It implements
// broker.Broker and fills resting legs against a replayed or live price tape.
package matching

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching/commission_fee"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the fill model parameters.
type Config struct {
	SlippageTicks int                     `yaml:"slippage_ticks" json:"slippage_ticks" validate:"gte=0"`
	Commission    commission_fee.Schedule `yaml:"commission" json:"commission" validate:"omitempty,oneof=per_side topstep zero"`
}

// DefaultConfig is one tick of slippage and the instrument per-side commission.
func DefaultConfig() Config {
	return Config{
		SlippageTicks: 1,
		Commission:    commission_fee.SchedulePerSide,
	}
}

type restingLeg struct {
	req      broker.LegRequest
	brokerID string
	status   types.LegStatus
}

// Engine keeps one book per instrument. Legs in a book are matched in
// submission order against the same price tape and never cross each other.
type Engine struct {
	mu          sync.Mutex
	config      Config
	instruments map[string]types.InstrumentSpec
	commission  commission_fee.CommissionFee
	books       map[string][]*restingLeg
	legs        map[string]*restingLeg
	positions   map[string]int
	lastPrice   map[string]decimal.Decimal
	handlers    []broker.FillHandler
	logger      *logger.Logger
}

var _ broker.Broker = (*Engine)(nil)

// NewEngine creates a simulated venue for the given contracts.
func NewEngine(config Config, instruments map[string]types.InstrumentSpec, log *logger.Logger) *Engine {
	return &Engine{
		config:      config,
		instruments: instruments,
		commission:  commission_fee.GetCommissionFeeHandler(config.Commission),
		books:       map[string][]*restingLeg{},
		legs:        map[string]*restingLeg{},
		positions:   map[string]int{},
		lastPrice:   map[string]decimal.Decimal{},
		logger:      log.Named("matching"),
	}
}

// SubmitLeg acknowledges a leg and rests it in the instrument book. Market legs
// fill at the open of the next market event.
func (e *Engine) SubmitLeg(_ context.Context, req broker.LegRequest) (broker.LegHandle, error) {
	if err := req.Validate(); err != nil {
		return broker.LegHandle{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.instruments[req.Instrument]; !ok {
		return broker.LegHandle{}, errors.Newf(errors.ErrCodeOrderRejected, "instrument %s is not tradable", req.Instrument)
	}

	if _, exists := e.legs[req.LegID]; exists {
		return broker.LegHandle{}, errors.Newf(errors.ErrCodeDuplicateLeg, "leg %s already submitted", req.LegID)
	}

	leg := &restingLeg{
		req:      req,
		brokerID: uuid.NewString(),
		status:   types.LegStatusWorking,
	}

	e.legs[req.LegID] = leg
	e.books[req.Instrument] = append(e.books[req.Instrument], leg)

	e.logger.Debug("Leg accepted",
		zap.String("leg_id", req.LegID),
		zap.String("bracket_id", req.BracketID),
		zap.String("role", string(req.Role)),
		zap.String("side", string(req.Side)),
		zap.String("type", string(req.Type)),
		zap.String("price", req.Price.String()),
		zap.Int("quantity", req.Quantity),
	)

	return broker.LegHandle{LegID: req.LegID, BrokerID: leg.brokerID}, nil
}

// CancelLeg removes a working leg. Cancelling a cancelled leg is a no-op.
func (e *Engine) CancelLeg(_ context.Context, handle broker.LegHandle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	leg, ok := e.legs[handle.LegID]
	if !ok {
		return errors.Newf(errors.ErrCodeLegNotFound, "leg %s not found", handle.LegID)
	}

	switch leg.status {
	case types.LegStatusCancelled:
		return nil
	case types.LegStatusFilled, types.LegStatusRejected:
		return errors.Newf(errors.ErrCodeLegNotCancellable, "leg %s is %s", handle.LegID, leg.status)
	}

	e.cancel(leg)

	return nil
}

// LegStatus returns the venue status of a leg by client leg id.
func (e *Engine) LegStatus(_ context.Context, legID string) (types.LegStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	leg, ok := e.legs[legID]
	if !ok {
		return "", errors.Newf(errors.ErrCodeLegNotFound, "leg %s not found", legID)
	}

	return leg.status, nil
}

// SubscribeFills registers a handler. Handlers run after the book is updated,
// outside the engine lock, so they may submit or cancel legs.
func (e *Engine) SubscribeFills(handler broker.FillHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, handler)
}

// Positions returns the signed net position per instrument.
func (e *Engine) Positions(context.Context) (map[string]int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	positions := make(map[string]int, len(e.positions))
	for instrument, qty := range e.positions {
		if qty != 0 {
			positions[instrument] = qty
		}
	}

	return positions, nil
}

// LastPrice is the close of the latest market event for the instrument.
func (e *Engine) LastPrice(instrument string) (decimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.lastPrice[instrument]

	return price, ok
}

// WorkingLegs returns the number of legs resting in the instrument book.
func (e *Engine) WorkingLegs(instrument string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.books[instrument])
}

// OnMarketData matches the instrument book against one tick or bar and returns
// the fills in execution order. The same fills are published to subscribers.
// Legs submitted by subscribers while fills are published wait for the next
// market event.
func (e *Engine) OnMarketData(md types.MarketData) []types.FillEvent {
	e.mu.Lock()
	fills := e.match(md)
	handlers := slices.Clone(e.handlers)
	e.mu.Unlock()

	for _, fill := range fills {
		for _, handler := range handlers {
			handler(fill)
		}
	}

	return fills
}

func (e *Engine) match(md types.MarketData) []types.FillEvent {
	e.lastPrice[md.Instrument] = md.Close

	book := e.books[md.Instrument]
	if len(book) == 0 {
		return nil
	}

	spec := e.instruments[md.Instrument]

	triggered := make([]*restingLeg, 0, len(book))
	for _, leg := range book {
		if leg.status == types.LegStatusWorking && triggers(leg.req, md) {
			triggered = append(triggered, leg)
		}
	}

	// a stop and a target touched by the same event resolve stop first
	slices.SortStableFunc(triggered, func(a, b *restingLeg) int {
		return a.req.Role.Priority() - b.req.Role.Priority()
	})

	var fills []types.FillEvent

	for _, leg := range triggered {
		if leg.status != types.LegStatusWorking {
			continue
		}

		fills = append(fills, e.fill(leg, spec, md))

		if leg.req.OCOGroup != "" {
			for _, other := range slices.Clone(e.books[md.Instrument]) {
				if other != leg && other.req.OCOGroup == leg.req.OCOGroup && other.status == types.LegStatusWorking {
					e.cancel(other)
				}
			}
		}
	}

	return fills
}

// triggers reports whether the leg trades inside the event's price range.
func triggers(req broker.LegRequest, md types.MarketData) bool {
	switch req.Type {
	case types.OrderTypeMarket:
		return true
	case types.OrderTypeLimit:
		if req.Side == types.SideBuy {
			return md.Low.LessThanOrEqual(req.Price)
		}

		return md.High.GreaterThanOrEqual(req.Price)
	case types.OrderTypeStop:
		if req.Side == types.SideBuy {
			return md.High.GreaterThanOrEqual(req.Price)
		}

		return md.Low.LessThanOrEqual(req.Price)
	default:
		return false
	}
}

func (e *Engine) fill(leg *restingLeg, spec types.InstrumentSpec, md types.MarketData) types.FillEvent {
	price := leg.req.Price
	if leg.req.Type == types.OrderTypeMarket {
		price = md.Open
	}

	// slippage is always adverse and never applied to profit targets
	if leg.req.Role != types.LegRoleTarget {
		slippage := spec.Ticks(e.config.SlippageTicks)
		if leg.req.Side == types.SideBuy {
			price = price.Add(slippage)
		} else {
			price = price.Sub(slippage)
		}
	}

	leg.status = types.LegStatusFilled
	e.remove(leg)

	fill := types.FillEvent{
		FillID:     uuid.NewString(),
		LegID:      leg.req.LegID,
		BracketID:  leg.req.BracketID,
		Instrument: leg.req.Instrument,
		Role:       leg.req.Role,
		Side:       leg.req.Side,
		Quantity:   leg.req.Quantity,
		Price:      price,
		Commission: e.commission.Calculate(spec, leg.req.Quantity),
		Time:       md.Time,
	}

	e.positions[fill.Instrument] += fill.SignedQuantity()

	e.logger.Debug("Leg filled",
		zap.String("leg_id", fill.LegID),
		zap.String("bracket_id", fill.BracketID),
		zap.String("role", string(fill.Role)),
		zap.String("price", fill.Price.String()),
		zap.Int("quantity", fill.Quantity),
		zap.String("commission", fill.Commission.String()),
	)

	return fill
}

func (e *Engine) cancel(leg *restingLeg) {
	leg.status = types.LegStatusCancelled
	e.remove(leg)

	e.logger.Debug("Leg cancelled",
		zap.String("leg_id", leg.req.LegID),
		zap.String("bracket_id", leg.req.BracketID),
	)
}

func (e *Engine) remove(leg *restingLeg) {
	book := e.books[leg.req.Instrument]
	e.books[leg.req.Instrument] = slices.DeleteFunc(book, func(l *restingLeg) bool {
		return l == leg
	})
}
