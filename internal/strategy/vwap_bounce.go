package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/indicator"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

const recentWindow = 5

type trend int

const (
	trendNone trend = iota
	trendBullish
	trendBearish
)

// VWAPBounce buys pullbacks to the session VWAP in an up trend and sells
// rallies to it in a down trend. The trend is established by how many recent
// events closed on one side of VWAP.
type VWAPBounce struct {
	base
	vwap   *indicator.VWAP
	above  int
	below  int
	recent []decimal.Decimal
}

func vwapBounceDefaults() Config {
	return Config{
		Quantity:    1,
		Direction:   BiasBoth,
		StopTicks:   6,
		TargetTicks: 12,
		MaxTrades:   3,
		VWAPBounce: VWAPBounceConfig{
			SkipFirstMinutes:    35,
			TouchThresholdTicks: 3,
			TrendEvents:         20,
			CooldownMinutes:     10,
		},
	}
}

func newVWAPBounce(cfg Config, deps dependencies) Strategy {
	s := &VWAPBounce{
		base: newBase(cfg, deps),
		vwap: indicator.NewVWAP(),
	}

	_ = s.indicators.RegisterIndicator(s.vwap)

	return s
}

func (s *VWAPBounce) OnMarketEvent(marketData types.MarketData) optional.Option[types.Signal] {
	ok, fresh := s.begin(marketData)
	if !ok {
		return optional.None[types.Signal]()
	}

	if fresh {
		s.above = 0
		s.below = 0
		s.recent = s.recent[:0]
	}

	if s.sinceOpen(marketData.Time) < minutes(s.cfg.VWAPBounce.SkipFirstMinutes) {
		return optional.None[types.Signal]()
	}

	value := s.vwap.Value()
	if value.IsNone() {
		return optional.None[types.Signal]()
	}

	vwap := value.Unwrap()
	price := marketData.Close

	s.track(price, vwap)

	if !s.lastSignal.IsZero() && marketData.Time.Sub(s.lastSignal) < minutes(s.cfg.VWAPBounce.CooldownMinutes) {
		return optional.None[types.Signal]()
	}

	if !s.near(price, vwap, s.cfg.VWAPBounce.TouchThresholdTicks) {
		return optional.None[types.Signal]()
	}

	switch s.trend() {
	case trendBullish:
		low := minOf(s.recent)
		if price.GreaterThan(vwap) && price.GreaterThan(low) && s.near(low, vwap, 2) && s.canTrade(types.DirectionLong) {
			return s.emit(marketData, types.DirectionLong,
				fmt.Sprintf("VWAP bounce long %s off %s", price, vwap.StringFixed(2)))
		}
	case trendBearish:
		high := maxOf(s.recent)
		if price.LessThan(vwap) && price.LessThan(high) && s.near(high, vwap, 2) && s.canTrade(types.DirectionShort) {
			return s.emit(marketData, types.DirectionShort,
				fmt.Sprintf("VWAP rejection short %s off %s", price, vwap.StringFixed(2)))
		}
	}

	return optional.None[types.Signal]()
}

func (s *VWAPBounce) track(price, vwap decimal.Decimal) {
	if price.GreaterThan(vwap) {
		s.above++
		s.below = max(0, s.below-1)
	} else {
		s.below++
		s.above = max(0, s.above-1)
	}

	s.recent = append(s.recent, price)
	if len(s.recent) > recentWindow {
		s.recent = s.recent[len(s.recent)-recentWindow:]
	}
}

func (s *VWAPBounce) trend() trend {
	if len(s.recent) < 3 {
		return trendNone
	}

	switch {
	case s.above > s.cfg.VWAPBounce.TrendEvents:
		return trendBullish
	case s.below > s.cfg.VWAPBounce.TrendEvents:
		return trendBearish
	default:
		return trendNone
	}
}

func (s *VWAPBounce) near(price, vwap decimal.Decimal, ticks int) bool {
	return price.Sub(vwap).Abs().LessThanOrEqual(s.spec.Ticks(ticks))
}

func minOf(values []decimal.Decimal) decimal.Decimal {
	return decimal.Min(values[0], values[1:]...)
}

func maxOf(values []decimal.Decimal) decimal.Decimal {
	return decimal.Max(values[0], values[1:]...)
}
