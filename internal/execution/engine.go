// Package execution turns approved signals into bracket orders and drives each
// bracket through its lifecycle from broker acknowledgements, fills and timers.
//
// The engine is single threaded. Every exported method must be called from the
// same logical thread (the event loop in live trading, the replay loop in a
// backtest). Broker calls run as tasks through a TaskRunner and their results
// come back as completions on that same thread.
package execution

import (
	"context"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine owns every bracket order for the session.
type Engine struct {
	config   Config
	broker   broker.Broker
	governor *risk.Governor
	window   *session.Window
	runner   TaskRunner
	journal  journal.Sink
	logger   *logger.Logger

	brackets map[string]*bracket.BracketOrder
	order    []string
	legIndex map[string]string
	inflight map[string]struct{}
	fills    map[string]struct{}
	marks    map[string]decimal.Decimal
	now      time.Time
}

var _ risk.Flattener = (*Engine)(nil)

// NewEngine wires an engine to its broker and governor and registers itself as
// the governor's flattener. Fills are not subscribed here; the caller routes
// broker fills to OnFills on the engine's thread.
func NewEngine(config Config, b broker.Broker, governor *risk.Governor, window *session.Window, runner TaskRunner, sink journal.Sink, log *logger.Logger) *Engine {
	if sink == nil {
		sink = journal.NopSink{}
	}

	if config.DefaultQuantity <= 0 {
		config.DefaultQuantity = 1
	}

	e := &Engine{
		config:   config,
		broker:   b,
		governor: governor,
		window:   window,
		runner:   runner,
		journal:  sink,
		logger:   log.Named("execution"),
		brackets: map[string]*bracket.BracketOrder{},
		legIndex: map[string]string{},
		inflight: map[string]struct{}{},
		fills:    map[string]struct{}{},
		marks:    map[string]decimal.Decimal{},
	}

	governor.SetFlattener(e)

	return e
}

// Submit builds a bracket from the signal, runs it through the risk governor and
// places the entry leg. Malformed signals and signals outside the entry window
// return an error without creating a bracket. A risk rejection returns the
// REJECTED bracket together with a *errors.RejectionError. Submitting the same
// signal twice produces two independent brackets.
func (e *Engine) Submit(signal types.Signal) (bracket.BracketOrder, error) {
	e.touch(signal.Timestamp)

	quantity := signal.Quantity
	if quantity == 0 {
		quantity = e.config.DefaultQuantity
	}

	if err := signal.Validate(); err != nil {
		e.recordDecision(signal, "", false, types.ReasonInvalidSignal, err.Error())

		return bracket.BracketOrder{}, err
	}

	if e.window != nil && !e.window.EntryAllowed(signal.Timestamp) {
		err := errors.Newf(errors.ErrCodeOutsideSession, "entries are not allowed at %s", signal.Timestamp.Format(time.RFC3339))
		e.recordDecision(signal, "", false, types.ReasonOutsideSession, err.Message)

		return bracket.BracketOrder{}, err
	}

	b := bracket.New(signal, quantity)
	e.register(b)
	e.transition(b, bracket.StateSubmitted, "")

	decision := e.governor.CheckOrder(b)
	if !decision.Approved {
		e.transition(b, bracket.StateRejected, decision.Reason)
		e.recordDecision(signal, b.ID, false, decision.Reason, decision.Message)

		return b.Clone(), decision.Err()
	}

	e.recordDecision(signal, b.ID, true, "", "")
	e.submitLeg(b, b.Entry)

	return b.Clone(), nil
}

// Cancel cancels a live bracket. A filled bracket is flattened at market.
func (e *Engine) Cancel(bracketID string) error {
	b, ok := e.brackets[bracketID]
	if !ok {
		return errors.Newf(errors.ErrCodeBracketNotFound, "bracket %s not found", bracketID)
	}

	if b.State.IsTerminal() {
		return errors.Newf(errors.ErrCodeInvalidTransition, "bracket %s is already %s", bracketID, b.State)
	}

	e.closeBracket(b, bracket.StateCancelled, types.ReasonUserCancel)

	return nil
}

// FlattenAll cancels every open leg and closes every position. It is called by
// the risk governor after the kill switch is engaged.
func (e *Engine) FlattenAll(reason string) {
	e.logger.Warn("Flattening all brackets", zap.String("reason", reason))

	for _, b := range e.activeBrackets() {
		e.closeBracket(b, bracket.StateCancelled, types.ReasonForceFlatten)
	}
}

// OnMarket revalues open positions at the latest price. A limit breach found
// here flattens everything.
func (e *Engine) OnMarket(md types.MarketData) {
	e.touch(md.Time)
	e.marks[md.Instrument] = md.Price()

	if result := e.governor.MarkToMarket(md.Instrument, md.Price(), md.Time); result.Breached {
		e.governor.ForceFlatten(result.Reason)
	}
}

// OnTimer applies the flatten-time deadline and time stops at now.
func (e *Engine) OnTimer(now time.Time) {
	e.touch(now)

	flatten := e.window != nil && e.window.ShouldFlatten(now)

	for _, b := range e.activeBrackets() {
		if b.Closing != "" {
			continue
		}

		switch {
		case flatten && (b.State == bracket.StateWorking || b.State == bracket.StatePartiallyFilled || b.State == bracket.StateFilled):
			e.closeBracket(b, bracket.StateClosed, types.ReasonFlattenTime)
		case flatten && b.State == bracket.StateSubmitted:
			e.closeBracket(b, bracket.StateCancelled, types.ReasonFlattenTime)
		case e.config.TimeStop > 0 && b.State == bracket.StateFilled && b.EntryFilledAt.IsSome() &&
			!now.Before(b.EntryFilledAt.Unwrap().Add(e.config.TimeStop)):
			e.closeBracket(b, bracket.StateClosed, types.ReasonTimeStop)
		}
	}
}

// Reconcile compares broker positions with the risk ledger in a background
// task. A mismatch halts new submissions.
func (e *Engine) Reconcile() {
	e.runner.Go(func(ctx context.Context) func() {
		positions, err := e.queryPositions(ctx)

		return func() {
			if err != nil {
				e.logger.Error("Position reconciliation skipped", zap.Error(err))

				return
			}

			if err := e.governor.Reconcile(positions, e.now); err != nil {
				e.logger.Error("Position reconciliation failed", zap.Error(err))
			}
		}
	})
}

// Bracket returns a copy of a bracket by id.
func (e *Engine) Bracket(id string) (bracket.BracketOrder, bool) {
	b, ok := e.brackets[id]
	if !ok {
		return bracket.BracketOrder{}, false
	}

	return b.Clone(), true
}

// Brackets returns copies of every bracket in creation order.
func (e *Engine) Brackets() []bracket.BracketOrder {
	out := make([]bracket.BracketOrder, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.brackets[id].Clone())
	}

	return out
}

// OpenBrackets returns copies of the brackets that are not terminal.
func (e *Engine) OpenBrackets() []bracket.BracketOrder {
	active := e.activeBrackets()

	out := make([]bracket.BracketOrder, 0, len(active))
	for _, b := range active {
		out = append(out, b.Clone())
	}

	return out
}

// RiskState returns the governor's current ledger snapshot.
func (e *Engine) RiskState() types.RiskState {
	return e.governor.Snapshot()
}

// Prune drops terminal brackets from memory, keeping the order of the rest.
func (e *Engine) Prune() int {
	removed := 0

	e.order = slices.DeleteFunc(e.order, func(id string) bool {
		b := e.brackets[id]
		if !b.State.IsTerminal() {
			return false
		}

		for _, leg := range b.Legs() {
			delete(e.legIndex, leg.ID)
		}

		delete(e.brackets, id)
		removed++

		return true
	})

	return removed
}

func (e *Engine) register(b *bracket.BracketOrder) {
	e.brackets[b.ID] = b
	e.order = append(e.order, b.ID)

	for _, leg := range b.Legs() {
		e.legIndex[leg.ID] = b.ID
	}
}

func (e *Engine) activeBrackets() []*bracket.BracketOrder {
	active := make([]*bracket.BracketOrder, 0, len(e.order))
	for _, id := range e.order {
		if b := e.brackets[id]; !b.State.IsTerminal() {
			active = append(active, b)
		}
	}

	return active
}

func (e *Engine) lookup(bracketID, legID string) (*bracket.BracketOrder, *bracket.OrderLeg, bool) {
	b, ok := e.brackets[bracketID]
	if !ok {
		return nil, nil, false
	}

	leg, ok := b.Leg(legID)

	return b, leg, ok
}

func (e *Engine) transition(b *bracket.BracketOrder, to bracket.State, reason string) {
	from := b.State
	if err := b.Transition(to, reason, e.now); err != nil {
		e.logger.Error("Bracket transition refused",
			zap.String("bracket_id", b.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Error(err),
		)

		return
	}

	if to.IsTerminal() {
		e.retireUnsentLegs(b)
	}

	e.logger.Debug("Bracket transition",
		zap.String("bracket_id", b.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason),
	)
	e.journal.Record(b.ToOrderEvent(e.now))
}

// retireUnsentLegs gives legs that were never sent to the broker a terminal
// status once their bracket is finished.
func (e *Engine) retireUnsentLegs(b *bracket.BracketOrder) {
	for _, leg := range b.Legs() {
		if leg.Status != types.LegStatusPending {
			continue
		}

		if _, sent := e.inflight[leg.ID]; sent {
			continue
		}

		if b.State == bracket.StateRejected && leg.Role == types.LegRoleEntry {
			leg.Status = types.LegStatusRejected
		} else {
			leg.Status = types.LegStatusCancelled
		}
	}
}

func (e *Engine) recordDecision(signal types.Signal, bracketID string, accepted bool, reason, message string) {
	e.journal.Record(types.DecisionEvent{
		Time:       signal.Timestamp,
		StrategyID: signal.StrategyID,
		Instrument: signal.Instrument,
		Direction:  signal.Direction,
		Accepted:   accepted,
		BracketID:  bracketID,
		Reason:     reason,
		Message:    message,
	})
}

func (e *Engine) touch(at time.Time) {
	if at.After(e.now) {
		e.now = at
	}
}
