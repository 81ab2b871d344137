// Package strategy holds the closed set of signal generators. Each strategy is
// a pure function of the market events it has seen: it returns at most one
// Signal per event and never touches orders.
package strategy

import (
	"slices"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// ID identifies a strategy implementation.
type ID string

const (
	IDORB         ID = "orb"
	IDVWAPBounce  ID = "vwap_bounce"
	IDSessionFade ID = "session_fade"
)

// AllIDs lists every strategy id, for schema enums.
var AllIDs = []any{IDORB, IDVWAPBounce, IDSessionFade}

// Strategy turns market events into trade signals.
type Strategy interface {
	// ID returns the strategy identifier stamped on every signal
	ID() ID
	// Instrument returns the symbol the strategy trades
	Instrument() string
	// OnMarketEvent consumes one event for the strategy's instrument
	OnMarketEvent(marketData types.MarketData) optional.Option[types.Signal]
}

// RejectionAware strategies are told when one of their signals was refused
// so they can stop resubmitting it.
type RejectionAware interface {
	OnSignalRejected(signal types.Signal, reason string)
}

// Bias restricts the directions a strategy may trade.
type Bias string

const (
	BiasLong  Bias = "long"
	BiasShort Bias = "short"
	BiasBoth  Bias = "both"
)

func (b Bias) allows(direction types.Direction) bool {
	switch b {
	case BiasLong:
		return direction == types.DirectionLong
	case BiasShort:
		return direction == types.DirectionShort
	default:
		return true
	}
}

// Config selects and parameterizes one strategy instance.
type Config struct {
	ID          ID     `yaml:"id" json:"id" validate:"required,oneof=orb vwap_bounce session_fade" jsonschema:"enum=orb,enum=vwap_bounce,enum=session_fade"`
	Instrument  string `yaml:"instrument" json:"instrument" validate:"required" jsonschema:"default=ES"`
	Quantity    int    `yaml:"quantity" json:"quantity" validate:"gte=0" jsonschema:"minimum=0,default=1"`
	Direction   Bias   `yaml:"direction" json:"direction" validate:"omitempty,oneof=long short both" jsonschema:"enum=long,enum=short,enum=both,default=both"`
	StopTicks   int    `yaml:"stop_ticks" json:"stop_ticks" validate:"gte=0" jsonschema:"minimum=1"`
	TargetTicks int    `yaml:"target_ticks" json:"target_ticks" validate:"gte=0" jsonschema:"minimum=0"`
	MaxTrades   int    `yaml:"max_trades" json:"max_trades" validate:"gte=0" jsonschema:"minimum=0"`

	ORB         ORBConfig         `yaml:"orb" json:"orb"`
	VWAPBounce  VWAPBounceConfig  `yaml:"vwap_bounce" json:"vwap_bounce"`
	SessionFade SessionFadeConfig `yaml:"session_fade" json:"session_fade"`
}

// ORBConfig parameterizes the opening range breakout.
type ORBConfig struct {
	RangeMinutes        int `yaml:"range_minutes" json:"range_minutes" validate:"gte=0" jsonschema:"default=5"`
	BreakoutBufferTicks int `yaml:"breakout_buffer_ticks" json:"breakout_buffer_ticks" validate:"gte=0" jsonschema:"default=2"`
	MinRangeTicks       int `yaml:"min_range_ticks" json:"min_range_ticks" validate:"gte=0" jsonschema:"default=4"`
	MaxRangeTicks       int `yaml:"max_range_ticks" json:"max_range_ticks" validate:"gte=0" jsonschema:"default=40"`
}

// VWAPBounceConfig parameterizes the VWAP bounce.
type VWAPBounceConfig struct {
	SkipFirstMinutes    int `yaml:"skip_first_minutes" json:"skip_first_minutes" validate:"gte=0" jsonschema:"default=35"`
	TouchThresholdTicks int `yaml:"touch_threshold_ticks" json:"touch_threshold_ticks" validate:"gte=0" jsonschema:"default=3"`
	TrendEvents         int `yaml:"trend_events" json:"trend_events" validate:"gte=0" jsonschema:"default=20"`
	CooldownMinutes     int `yaml:"cooldown_minutes" json:"cooldown_minutes" validate:"gte=0" jsonschema:"default=10"`
}

// SessionFadeConfig parameterizes the session open fade.
type SessionFadeConfig struct {
	SkipFirstMinutes int `yaml:"skip_first_minutes" json:"skip_first_minutes" validate:"gte=0" jsonschema:"default=15"`
	FadeTicks        int `yaml:"fade_ticks" json:"fade_ticks" validate:"gte=0" jsonschema:"default=24"`
	CutoffMinutes    int `yaml:"cutoff_minutes" json:"cutoff_minutes" validate:"gte=0" jsonschema:"default=240"`
}

type factory struct {
	defaults func() Config
	build    func(cfg Config, deps dependencies) Strategy
}

type dependencies struct {
	spec   types.InstrumentSpec
	window *session.Window
	logger *logger.Logger
}

var registry = map[ID]factory{
	IDORB:         {defaults: orbDefaults, build: newORB},
	IDVWAPBounce:  {defaults: vwapBounceDefaults, build: newVWAPBounce},
	IDSessionFade: {defaults: sessionFadeDefaults, build: newSessionFade},
}

// IDs returns the registered strategy ids in sorted order.
func IDs() []ID {
	ids := make([]ID, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Parse resolves a configured strategy name. Unknown names fail immediately so
// a typo is caught when configuration loads, not at the first market event.
func Parse(name string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := registry[id]; !ok {
		return "", errors.Newf(errors.ErrCodeUnknownStrategy, "unknown strategy %q, available: %v", name, IDs())
	}

	return id, nil
}

// WithDefaults fills zero fields of cfg from the strategy's defaults.
func WithDefaults(cfg Config) (Config, error) {
	id, err := Parse(string(cfg.ID))
	if err != nil {
		return cfg, err
	}

	base := registry[id].defaults()
	cfg.ID = id

	if cfg.Quantity == 0 {
		cfg.Quantity = base.Quantity
	}

	if cfg.Direction == "" {
		cfg.Direction = base.Direction
	}

	if cfg.StopTicks == 0 {
		cfg.StopTicks = base.StopTicks
	}

	if cfg.TargetTicks == 0 {
		cfg.TargetTicks = base.TargetTicks
	}

	if cfg.MaxTrades == 0 {
		cfg.MaxTrades = base.MaxTrades
	}

	fillZero(&cfg.ORB.RangeMinutes, base.ORB.RangeMinutes)
	fillZero(&cfg.ORB.BreakoutBufferTicks, base.ORB.BreakoutBufferTicks)
	fillZero(&cfg.ORB.MinRangeTicks, base.ORB.MinRangeTicks)
	fillZero(&cfg.ORB.MaxRangeTicks, base.ORB.MaxRangeTicks)
	fillZero(&cfg.VWAPBounce.SkipFirstMinutes, base.VWAPBounce.SkipFirstMinutes)
	fillZero(&cfg.VWAPBounce.TouchThresholdTicks, base.VWAPBounce.TouchThresholdTicks)
	fillZero(&cfg.VWAPBounce.TrendEvents, base.VWAPBounce.TrendEvents)
	fillZero(&cfg.VWAPBounce.CooldownMinutes, base.VWAPBounce.CooldownMinutes)
	fillZero(&cfg.SessionFade.SkipFirstMinutes, base.SessionFade.SkipFirstMinutes)
	fillZero(&cfg.SessionFade.FadeTicks, base.SessionFade.FadeTicks)
	fillZero(&cfg.SessionFade.CutoffMinutes, base.SessionFade.CutoffMinutes)

	return cfg, nil
}

// New builds the strategy named by cfg.ID for the given instrument.
func New(cfg Config, spec types.InstrumentSpec, window *session.Window, log *logger.Logger) (Strategy, error) {
	cfg, err := WithDefaults(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Instrument != spec.Symbol {
		return nil, errors.Newf(errors.ErrCodeUnknownInstrument,
			"strategy %s trades %s but was given the %s contract", cfg.ID, cfg.Instrument, spec.Symbol)
	}

	if cfg.StopTicks <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "strategy %s needs a positive stop_ticks", cfg.ID)
	}

	deps := dependencies{
		spec:   spec,
		window: window,
		logger: log.Named(string(cfg.ID)),
	}

	return registry[cfg.ID].build(cfg, deps), nil
}

// NewAll builds every configured strategy against its contract spec.
func NewAll(configs []Config, instruments map[string]types.InstrumentSpec, window *session.Window, log *logger.Logger) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(configs))

	for _, cfg := range configs {
		spec, ok := instruments[cfg.Instrument]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownInstrument, "strategy %s trades unconfigured instrument %s", cfg.ID, cfg.Instrument)
		}

		s, err := New(cfg, spec, window, log)
		if err != nil {
			return nil, err
		}

		strategies = append(strategies, s)
	}

	return strategies, nil
}

func fillZero(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
