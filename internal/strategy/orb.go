package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ORB trades a breakout of the opening range, at most once per direction per
// session. Ranges narrower or wider than the configured tick bounds are not
// traded.
type ORB struct {
	base
	openingRange *indicator.OpeningRange
	checked      bool
	tradeable    bool
}

func orbDefaults() Config {
	return Config{
		Quantity:    1,
		Direction:   BiasBoth,
		StopTicks:   8,
		TargetTicks: 16,
		MaxTrades:   2,
		ORB: ORBConfig{
			RangeMinutes:        5,
			BreakoutBufferTicks: 2,
			MinRangeTicks:       4,
			MaxRangeTicks:       40,
		},
	}
}

func newORB(cfg Config, deps dependencies) Strategy {
	s := &ORB{
		base:         newBase(cfg, deps),
		openingRange: indicator.NewOpeningRange(deps.window, minutes(cfg.ORB.RangeMinutes)),
	}

	// A fresh registry never rejects its first indicator.
	_ = s.indicators.RegisterIndicator(s.openingRange)

	return s
}

func (s *ORB) OnMarketEvent(marketData types.MarketData) optional.Option[types.Signal] {
	ok, fresh := s.begin(marketData)
	if !ok {
		return optional.None[types.Signal]()
	}

	if fresh {
		s.checked = false
		s.tradeable = false
	}

	if !s.openingRange.Formed() {
		return optional.None[types.Signal]()
	}

	if !s.checked {
		s.checked = true
		s.tradeable = s.checkRange()
	}

	if !s.tradeable {
		return optional.None[types.Signal]()
	}

	buffer := s.spec.Ticks(s.cfg.ORB.BreakoutBufferTicks)
	longTrigger := s.openingRange.High().Add(buffer)
	shortTrigger := s.openingRange.Low().Sub(buffer)
	price := marketData.Close

	switch {
	case price.GreaterThanOrEqual(longTrigger):
		if s.canTrade(types.DirectionLong) {
			return s.emit(marketData, types.DirectionLong,
				fmt.Sprintf("ORB high breakout %s >= %s", price, longTrigger))
		}
	case price.LessThanOrEqual(shortTrigger):
		if s.canTrade(types.DirectionShort) {
			return s.emit(marketData, types.DirectionShort,
				fmt.Sprintf("ORB low breakout %s <= %s", price, shortTrigger))
		}
	}

	return optional.None[types.Signal]()
}

func (s *ORB) checkRange() bool {
	if !s.openingRange.Ready() {
		s.logger.Warn("Opening range not captured", zap.String("session", s.sessionDate))

		return false
	}

	width := s.openingRange.Width()
	ticks := decimal.Zero

	if s.spec.TickSize.IsPositive() {
		ticks = width.Div(s.spec.TickSize)
	}

	s.logger.Info("Opening range formed",
		zap.String("session", s.sessionDate),
		zap.String("high", s.openingRange.High().String()),
		zap.String("low", s.openingRange.Low().String()),
		zap.String("width_ticks", ticks.String()),
	)

	minTicks := decimal.NewFromInt(int64(s.cfg.ORB.MinRangeTicks))
	maxTicks := decimal.NewFromInt(int64(s.cfg.ORB.MaxRangeTicks))

	if ticks.LessThan(minTicks) || (s.cfg.ORB.MaxRangeTicks > 0 && ticks.GreaterThan(maxTicks)) {
		s.logger.Info("Opening range outside tradeable width, skipping session",
			zap.String("width_ticks", ticks.String()))

		return false
	}

	return true
}
