package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// SessionFade fades a stretched move away from the session open: it sells
// when price has run FadeTicks above the open and buys when it has fallen as
// far below. It only trades between the skip window and the cutoff.
type SessionFade struct {
	base
	open decimal.Decimal
	seen bool
}

func sessionFadeDefaults() Config {
	return Config{
		Quantity:    1,
		Direction:   BiasBoth,
		StopTicks:   12,
		TargetTicks: 16,
		MaxTrades:   2,
		SessionFade: SessionFadeConfig{
			SkipFirstMinutes: 15,
			FadeTicks:        24,
			CutoffMinutes:    240,
		},
	}
}

func newSessionFade(cfg Config, deps dependencies) Strategy {
	return &SessionFade{base: newBase(cfg, deps)}
}

func (s *SessionFade) OnMarketEvent(marketData types.MarketData) optional.Option[types.Signal] {
	ok, fresh := s.begin(marketData)
	if !ok {
		return optional.None[types.Signal]()
	}

	if fresh {
		s.open = marketData.Open
		s.seen = true
	}

	elapsed := s.sinceOpen(marketData.Time)
	if !s.seen || elapsed < minutes(s.cfg.SessionFade.SkipFirstMinutes) ||
		elapsed >= minutes(s.cfg.SessionFade.CutoffMinutes) {
		return optional.None[types.Signal]()
	}

	distance := s.spec.Ticks(s.cfg.SessionFade.FadeTicks)
	price := marketData.Close

	switch {
	case price.GreaterThanOrEqual(s.open.Add(distance)):
		if s.canTrade(types.DirectionShort) {
			return s.emit(marketData, types.DirectionShort,
				fmt.Sprintf("Fade %s stretched above open %s", price, s.open))
		}
	case price.LessThanOrEqual(s.open.Sub(distance)):
		if s.canTrade(types.DirectionLong) {
			return s.emit(marketData, types.DirectionLong,
				fmt.Sprintf("Fade %s stretched below open %s", price, s.open))
		}
	}

	return optional.None[types.Signal]()
}
