package strategy

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// base carries the per-session bookkeeping every strategy shares: trade
// counting, one signal per direction, and the rejection latch.
type base struct {
	cfg        Config
	spec       types.InstrumentSpec
	window     *session.Window
	logger     *logger.Logger
	indicators indicator.IndicatorRegistry

	sessionDate string
	trades      int
	longDone    bool
	shortDone   bool
	blocked     bool
	lastSignal  time.Time
}

func newBase(cfg Config, deps dependencies) base {
	return base{
		cfg:        cfg,
		spec:       deps.spec,
		window:     deps.window,
		logger:     deps.logger,
		indicators: indicator.NewIndicatorRegistry(),
	}
}

func (b *base) ID() ID {
	return b.cfg.ID
}

func (b *base) Instrument() string {
	return b.cfg.Instrument
}

// OnSignalRejected stops the strategy from signalling for the rest of the
// session.
func (b *base) OnSignalRejected(signal types.Signal, reason string) {
	if b.blocked {
		return
	}

	b.blocked = true
	b.logger.Warn("Signal rejected, standing down for the session",
		zap.String("direction", string(signal.Direction)),
		zap.String("reason", reason),
		zap.String("session", b.sessionDate),
	)
}

// begin filters the event and rolls session state. ok is false when the
// event must be ignored; fresh is true on the first event of a session.
func (b *base) begin(marketData types.MarketData) (ok bool, fresh bool) {
	if marketData.Instrument != b.cfg.Instrument || !b.window.IsRTH(marketData.Time) {
		return false, false
	}

	date := b.window.SessionDate(marketData.Time)
	if date != b.sessionDate {
		b.sessionDate = date
		b.trades = 0
		b.longDone = false
		b.shortDone = false
		b.blocked = false
		b.lastSignal = time.Time{}
		b.indicators.ResetAll()
		fresh = true

		b.logger.Debug("New session", zap.String("session", date), zap.String("instrument", b.cfg.Instrument))
	}

	b.indicators.UpdateAll(marketData)

	return true, fresh
}

// sinceOpen is the time elapsed since the regular session opened.
func (b *base) sinceOpen(t time.Time) time.Duration {
	return t.Sub(b.window.ForDay(t).RTHStart)
}

func (b *base) canTrade(direction types.Direction) bool {
	if b.blocked || b.trades >= b.cfg.MaxTrades || !b.cfg.Direction.allows(direction) {
		return false
	}

	if direction == types.DirectionLong {
		return !b.longDone
	}

	return !b.shortDone
}

// emit builds a market entry at the event close with the configured stop and
// target distances.
func (b *base) emit(marketData types.MarketData, direction types.Direction, reason string) optional.Option[types.Signal] {
	entry := marketData.Close
	stopDistance := b.spec.Ticks(b.cfg.StopTicks)
	targetDistance := b.spec.Ticks(b.cfg.TargetTicks)

	signal := types.Signal{
		Instrument: b.cfg.Instrument,
		Direction:  direction,
		EntryType:  types.OrderTypeMarket,
		EntryPrice: entry,
		Quantity:   b.cfg.Quantity,
		StrategyID: string(b.cfg.ID),
		Reason:     reason,
		Timestamp:  marketData.Time,
	}

	if direction == types.DirectionLong {
		signal.StopPrice = optional.Some(entry.Sub(stopDistance))
		if b.cfg.TargetTicks > 0 {
			signal.TargetPrice = optional.Some(entry.Add(targetDistance))
		}

		b.longDone = true
	} else {
		signal.StopPrice = optional.Some(entry.Add(stopDistance))
		if b.cfg.TargetTicks > 0 {
			signal.TargetPrice = optional.Some(entry.Sub(targetDistance))
		}

		b.shortDone = true
	}

	b.trades++
	b.lastSignal = marketData.Time

	b.logger.Info("Signal",
		zap.String("direction", string(direction)),
		zap.String("entry", entry.String()),
		zap.String("stop", signal.StopPrice.Unwrap().String()),
		zap.String("reason", reason),
	)

	return optional.Some(signal)
}
