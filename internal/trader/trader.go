// Package trader wires market data, strategies, the execution engine and the
// risk governor into one session. A Trader is not safe for concurrent use: the
// backtest replay loop or the live event loop drives it from a single thread.
// Snapshot is the only method safe to call from other goroutines.
package trader

import (
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/execution"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OnSignalCallback is called for every signal a strategy emits, with the
// resulting bracket (zero when none was created) and the submission error.
type OnSignalCallback func(signal types.Signal, order bracket.BracketOrder, err error)

// OnSessionStartCallback is called when the first event of a new session date arrives.
type OnSessionStartCallback func(sessionDate string)

// Callbacks are optional hooks. Nil means no callback is invoked.
type Callbacks struct {
	OnSignal       *OnSignalCallback
	OnSessionStart *OnSessionStartCallback
}

// Options wires a Trader.
type Options struct {
	Execution   execution.Config
	Limits      risk.Limits
	Instruments map[string]types.InstrumentSpec
	Window      *session.Window
	Broker      broker.Broker
	Runner      execution.TaskRunner
	Journal     journal.Sink
	Strategies  []strategy.Strategy
	Callbacks   Callbacks
}

// LastPrice is the most recent price seen for an instrument.
type LastPrice struct {
	Price decimal.Decimal `json:"price"`
	Time  time.Time       `json:"time"`
}

// Snapshot is a read-only view of the session published after every event.
type Snapshot struct {
	At           time.Time              `json:"at"`
	SessionDate  string                 `json:"session_date"`
	Risk         types.RiskState        `json:"risk"`
	OpenBrackets []bracket.BracketOrder `json:"open_brackets"`
	Daily        TradeStats             `json:"daily"`
	Cumulative   TradeStats             `json:"cumulative"`
	Events       int64                  `json:"events"`
	Strategies   []strategy.ID          `json:"strategies"`
	LastPrices   map[string]LastPrice   `json:"last_prices"`
}

// Trader runs one trading session.
type Trader struct {
	engine      *execution.Engine
	governor    *risk.Governor
	window      *session.Window
	strategies  []strategy.Strategy
	stats       *StatsTracker
	callbacks   Callbacks
	logger      *logger.Logger
	sessionDate string
	now         time.Time
	events      int64
	lastPrices  map[string]LastPrice
	snapshot    atomic.Pointer[Snapshot]
}

// New builds the governor and execution engine for a session and returns the
// trader that drives them.
func New(opts Options, log *logger.Logger) *Trader {
	stats := NewStatsTracker(opts.Instruments, log)

	sink := journal.MultiSink{stats}
	if opts.Journal != nil {
		sink = append(sink, opts.Journal)
	}

	governor := risk.NewGovernor(opts.Limits, opts.Instruments, sink, log)
	engine := execution.NewEngine(opts.Execution, opts.Broker, governor, opts.Window, opts.Runner, sink, log)

	t := &Trader{
		engine:     engine,
		governor:   governor,
		window:     opts.Window,
		strategies: opts.Strategies,
		stats:      stats,
		callbacks:  opts.Callbacks,
		logger:     log.Named("trader"),
		lastPrices: map[string]LastPrice{},
	}

	t.publish()

	return t
}

func (t *Trader) Engine() *execution.Engine {
	return t.engine
}

func (t *Trader) Governor() *risk.Governor {
	return t.governor
}

func (t *Trader) Stats() *StatsTracker {
	return t.stats
}

// OnFills applies broker fills. In a backtest these are the fills the
// matching engine produced for the event about to be processed.
func (t *Trader) OnFills(fills []types.FillEvent) {
	if len(fills) == 0 {
		return
	}

	t.rollover(fills[0].Time)
	t.engine.OnFills(fills)
	t.publish()
}

// OnMarketData processes one market event: session rollover, position
// valuation, deadlines, then the strategies for that instrument.
func (t *Trader) OnMarketData(md types.MarketData) {
	t.rollover(md.Time)
	t.now = md.Time
	t.events++
	t.lastPrices[md.Instrument] = LastPrice{Price: md.Price(), Time: md.Time}

	t.engine.OnMarket(md)
	t.engine.OnTimer(md.Time)

	for _, s := range t.strategies {
		if s.Instrument() != md.Instrument {
			continue
		}

		result := s.OnMarketEvent(md)
		if result.IsNone() {
			continue
		}

		t.submit(s, result.Unwrap())
	}

	t.publish()
}

// OnTimer applies flatten deadlines and time stops between market events.
func (t *Trader) OnTimer(now time.Time) {
	t.rollover(now)
	t.now = now
	t.engine.OnTimer(now)
	t.publish()
}

// EngageKillSwitch blocks new entries and flattens everything open.
func (t *Trader) EngageKillSwitch(reason string) {
	t.governor.ForceFlatten(reason)
	t.publish()
}

// FlattenAll closes every open position and cancels working entries without
// engaging the kill switch.
func (t *Trader) FlattenAll(reason string) {
	t.engine.FlattenAll(reason)
	t.publish()
}

// ResetKillSwitch releases a manual or automatic kill switch.
func (t *Trader) ResetKillSwitch() error {
	err := t.governor.ResetKillSwitch()
	t.publish()

	return err
}

// ClearHalt acknowledges a reconciliation halt.
func (t *Trader) ClearHalt() {
	t.governor.ClearHalt()
	t.publish()
}

// CancelBracket cancels one bracket by id.
func (t *Trader) CancelBracket(id string) error {
	err := t.engine.Cancel(id)
	t.publish()

	return err
}

// Reconcile queries broker positions in the background and checks them against
// the risk ledger when the answer arrives.
func (t *Trader) Reconcile() {
	t.engine.Reconcile()
}

// ReconcilePositions checks positions the caller already read from the broker.
// The caller must have delivered every fill that produced them first.
func (t *Trader) ReconcilePositions(positions map[string]int) error {
	err := t.governor.Reconcile(positions, t.now)
	t.publish()

	return err
}

// Snapshot returns the state published after the last event. It is safe to
// call from any goroutine.
func (t *Trader) Snapshot() Snapshot {
	return *t.snapshot.Load()
}

func (t *Trader) submit(s strategy.Strategy, signal types.Signal) {
	order, err := t.engine.Submit(signal)

	if t.callbacks.OnSignal != nil {
		(*t.callbacks.OnSignal)(signal, order, err)
	}

	if err == nil {
		t.logger.Info("Bracket submitted",
			zap.String("strategy", string(s.ID())),
			zap.String("bracket_id", order.ID),
			zap.String("direction", string(signal.Direction)),
		)

		return
	}

	if rejection, ok := errors.IsRejection(err); ok {
		t.logger.Info("Signal rejected by risk",
			zap.String("strategy", string(s.ID())),
			zap.String("reason", rejection.Reason),
		)

		if aware, ok := s.(strategy.RejectionAware); ok {
			aware.OnSignalRejected(signal, rejection.Reason)
		}

		return
	}

	t.logger.Warn("Signal not submitted",
		zap.String("strategy", string(s.ID())),
		zap.Error(err),
	)
}

func (t *Trader) rollover(now time.Time) {
	if t.window == nil {
		return
	}

	date := t.window.SessionDate(now)
	if date == t.sessionDate {
		return
	}

	t.sessionDate = date
	t.governor.ResetSession(date)
	t.stats.HandleDateBoundary(date)

	if pruned := t.engine.Prune(); pruned > 0 {
		t.logger.Debug("Pruned finished brackets", zap.Int("count", pruned))
	}

	if t.callbacks.OnSessionStart != nil {
		(*t.callbacks.OnSessionStart)(date)
	}
}

func (t *Trader) publish() {
	ids := make([]strategy.ID, 0, len(t.strategies))
	for _, s := range t.strategies {
		ids = append(ids, s.ID())
	}

	prices := make(map[string]LastPrice, len(t.lastPrices))
	for instrument, price := range t.lastPrices {
		prices[instrument] = price
	}

	t.snapshot.Store(&Snapshot{
		At:           t.now,
		SessionDate:  t.sessionDate,
		Risk:         t.governor.Snapshot(),
		OpenBrackets: t.engine.OpenBrackets(),
		Daily:        t.stats.Daily(),
		Cumulative:   t.stats.Cumulative(),
		Events:       t.events,
		Strategies:   ids,
		LastPrices:   prices,
	})
}
