// Package config loads the YAML run configuration shared by the backtest and
// paper commands.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/execution"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/matching"
	"github.com/rxtech-lab/argo-futures/internal/matching/commission_fee"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the root of the configuration file.
type Config struct {
	// Version is the binary version the file was written for.
	Version  string `yaml:"version" json:"version" jsonschema:"title=Version,description=Binary version this file targets (major and minor must match)"`
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`

	Session     session.Config         `yaml:"session" json:"session"`
	Risk        RiskConfig             `yaml:"risk" json:"risk"`
	Instruments []types.InstrumentSpec `yaml:"instruments" json:"instruments" validate:"dive"`
	Execution   execution.Config       `yaml:"execution" json:"execution"`
	Matching    matching.Config        `yaml:"matching" json:"matching"`
	Journal     journal.Config         `yaml:"journal" json:"journal"`
	Strategies  []strategy.Config      `yaml:"strategies" json:"strategies" validate:"required,min=1,dive"`
	Paper       PaperConfig            `yaml:"paper" json:"paper"`
	Status      StatusConfig           `yaml:"status" json:"status"`
}

// RiskConfig holds the session loss limits. A zero dollar limit disables that check.
type RiskConfig struct {
	DailyLossLimit  decimal.Decimal `yaml:"daily_loss_limit" json:"daily_loss_limit" jsonschema:"default=500"`
	MaxDrawdown     decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown" jsonschema:"default=1000"`
	MaxTradesPerDay int             `yaml:"max_trades_per_day" json:"max_trades_per_day" validate:"gte=0" jsonschema:"default=10"`
	MaxRiskPerTrade decimal.Decimal `yaml:"max_risk_per_trade" json:"max_risk_per_trade" jsonschema:"default=100"`
	// KillSwitch starts every session with the kill switch engaged.
	KillSwitch bool `yaml:"kill_switch" json:"kill_switch"`
}

// PaperConfig drives the paper trading command.
type PaperConfig struct {
	// DataPath is the CSV or parquet file replayed as the live feed.
	DataPath string `yaml:"data_path" json:"data_path"`
	// ReplayInterval is the wall-clock pause between replayed bars.
	ReplayInterval time.Duration `yaml:"replay_interval" json:"replay_interval" validate:"gte=0"`
	// TimerInterval is the period of the session clock that enforces flatten time and time stops.
	TimerInterval time.Duration `yaml:"timer_interval" json:"timer_interval" validate:"gt=0"`
	// ReconcileInterval is the period of broker position reconciliation. Zero disables it.
	ReconcileInterval time.Duration `yaml:"reconcile_interval" json:"reconcile_interval" validate:"gte=0"`
	// OrdersPerSecond limits leg submissions and cancels.
	OrdersPerSecond float64 `yaml:"orders_per_second" json:"orders_per_second" validate:"gt=0" jsonschema:"default=5"`
	OrderBurst      int     `yaml:"order_burst" json:"order_burst" validate:"gt=0" jsonschema:"default=5"`
	// EventBuffer is the capacity of the event loop queue.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer" validate:"gte=0" jsonschema:"default=1024"`
}

// StatusConfig configures the HTTP status endpoint.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address" validate:"required_if=Enabled true" jsonschema:"default=127.0.0.1:8089"`
}

// Default returns a configuration with every default applied and no strategies.
func Default() Config {
	limits := risk.DefaultLimits()

	return Config{
		Version:  version.GetVersion(),
		LogLevel: "info",
		Session:  session.DefaultConfig(),
		Risk: RiskConfig{
			DailyLossLimit:  limits.DailyLossLimit,
			MaxDrawdown:     limits.MaxDrawdown,
			MaxTradesPerDay: limits.MaxTradesPerDay,
			MaxRiskPerTrade: limits.MaxRiskPerTrade,
		},
		Instruments: defaultInstruments(),
		Execution:   execution.DefaultConfig(),
		Matching:    matching.DefaultConfig(),
		Journal:     journal.Config{Type: journal.TypeLog, BufferSize: 1024},
		Paper: PaperConfig{
			ReplayInterval:    time.Second,
			TimerInterval:     time.Second,
			ReconcileInterval: time.Minute,
			OrdersPerSecond:   5,
			OrderBurst:        5,
			EventBuffer:       1024,
		},
		Status: StatusConfig{Address: "127.0.0.1:8089"},
	}
}

func defaultInstruments() []types.InstrumentSpec {
	builtins := types.DefaultInstruments()
	specs := make([]types.InstrumentSpec, 0, len(builtins))

	for _, symbol := range []string{"ES", "MES"} {
		specs = append(specs, builtins[symbol])
	}

	return specs
}

// Load reads, interpolates, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	return Parse(data)
}

// Parse builds a validated configuration from YAML text. Missing sections keep
// their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// instruments listed in the file are merged onto the built-ins below
	cfg.Instruments = nil

	if err := yaml.Unmarshal([]byte(Interpolate(string(data))), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	cfg.Instruments = mergeInstruments(defaultInstruments(), cfg.Instruments)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), cfg.Version); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeInstruments overrides built-in specs by symbol. Zero fields of an
// override keep the built-in value.
func mergeInstruments(builtins []types.InstrumentSpec, overrides []types.InstrumentSpec) []types.InstrumentSpec {
	merged := make([]types.InstrumentSpec, 0, len(builtins)+len(overrides))
	index := map[string]int{}

	for _, spec := range builtins {
		index[spec.Symbol] = len(merged)
		merged = append(merged, spec)
	}

	for _, spec := range overrides {
		spec.Symbol = strings.ToUpper(strings.TrimSpace(spec.Symbol))

		i, ok := index[spec.Symbol]
		if !ok {
			index[spec.Symbol] = len(merged)
			merged = append(merged, spec)

			continue
		}

		base := merged[i]
		if !spec.TickSize.IsZero() {
			base.TickSize = spec.TickSize
		}

		if !spec.TickValue.IsZero() {
			base.TickValue = spec.TickValue
		}

		if spec.MaxContracts != 0 {
			base.MaxContracts = spec.MaxContracts
		}

		if !spec.CommissionPerSide.IsZero() {
			base.CommissionPerSide = spec.CommissionPerSide
		}

		merged[i] = base
	}

	return merged
}

func (c *Config) normalize() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Matching.Commission == "" {
		c.Matching.Commission = commission_fee.SchedulePerSide
	}

	if c.Journal.Type == "" {
		c.Journal.Type = journal.TypeLog
	}

	for i := range c.Strategies {
		id, err := strategy.Parse(string(c.Strategies[i].ID))
		if err != nil {
			return err
		}

		c.Strategies[i].ID = id
		c.Strategies[i].Instrument = strings.ToUpper(strings.TrimSpace(c.Strategies[i].Instrument))
		c.Strategies[i].Direction = strategy.Bias(strings.ToLower(string(c.Strategies[i].Direction)))
	}

	return nil
}

// Limits converts the risk section for the governor.
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		DailyLossLimit:    c.Risk.DailyLossLimit,
		MaxDrawdown:       c.Risk.MaxDrawdown,
		MaxTradesPerDay:   c.Risk.MaxTradesPerDay,
		MaxRiskPerTrade:   c.Risk.MaxRiskPerTrade,
		KillSwitchAtStart: c.Risk.KillSwitch,
	}
}

// InstrumentMap indexes the configured contract specs by symbol.
func (c *Config) InstrumentMap() map[string]types.InstrumentSpec {
	specs := make(map[string]types.InstrumentSpec, len(c.Instruments))
	for _, spec := range c.Instruments {
		specs[spec.Symbol] = spec
	}

	return specs
}
