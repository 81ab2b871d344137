package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/matching/commission_fee"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const minimalConfig = `
strategies:
  - id: orb
    instrument: ES
`

type ConfigTestSuite struct {
	suite.Suite
	previousVersion string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.previousVersion = version.Version
	version.Version = "v0.4.0"
}

func (suite *ConfigTestSuite) TearDownTest() {
	version.Version = suite.previousVersion
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (suite *ConfigTestSuite) TestDefaults() {
	cfg, err := Parse([]byte(minimalConfig))
	suite.Require().NoError(err)

	suite.Equal("info", cfg.LogLevel)
	suite.Equal("America/New_York", cfg.Session.Timezone)
	suite.Equal("09:30", cfg.Session.RTHStart)
	suite.Equal("16:00", cfg.Session.RTHEnd)
	suite.Equal("15:55", cfg.Session.FlattenTime)

	limits := cfg.Limits()
	suite.True(d("500").Equal(limits.DailyLossLimit))
	suite.True(d("1000").Equal(limits.MaxDrawdown))
	suite.True(d("100").Equal(limits.MaxRiskPerTrade))
	suite.Equal(10, limits.MaxTradesPerDay)
	suite.False(limits.KillSwitchAtStart)

	instruments := cfg.InstrumentMap()
	suite.Equal(2, instruments["ES"].MaxContracts)
	suite.Equal(10, instruments["MES"].MaxContracts)

	suite.Equal(1, cfg.Matching.SlippageTicks)
	suite.Equal(commission_fee.SchedulePerSide, cfg.Matching.Commission)
	suite.Equal(1, cfg.Execution.DefaultQuantity)
	suite.Equal(3, cfg.Execution.StatusRetries)
	suite.Equal(journal.TypeLog, cfg.Journal.Type)
	suite.Equal(time.Second, cfg.Paper.TimerInterval)
	suite.False(cfg.Status.Enabled)
}

func (suite *ConfigTestSuite) TestFullConfig() {
	cfg, err := Parse([]byte(`
version: v0.4.2
log_level: DEBUG
session:
  timezone: America/Chicago
  rth_start: "08:30"
  rth_end: "15:00"
  flatten_time: "14:50"
risk:
  daily_loss_limit: 750.50
  max_drawdown: "1500"
  max_trades_per_day: 4
  max_risk_per_trade: 0
  kill_switch: true
instruments:
  - symbol: es
    max_contracts: 1
  - symbol: NQ
    tick_size: 0.25
    tick_value: 5
    max_contracts: 1
    commission_per_side: 1.40
execution:
  time_stop: 45m
  status_retries: 5
matching:
  slippage_ticks: 2
  commission: topstep
journal:
  type: duckdb
  path: /tmp/journal.duckdb
paper:
  data_path: bars.csv
  replay_interval: 250ms
status:
  enabled: true
  address: ":9090"
strategies:
  - id: ORB
    instrument: es
    direction: LONG
  - id: vwap_bounce
    instrument: NQ
    stop_ticks: 10
`))
	suite.Require().NoError(err)

	suite.Equal("debug", cfg.LogLevel)
	suite.Equal("America/Chicago", cfg.Session.Timezone)

	limits := cfg.Limits()
	suite.True(d("750.5").Equal(limits.DailyLossLimit))
	suite.True(d("1500").Equal(limits.MaxDrawdown))
	suite.True(limits.MaxRiskPerTrade.IsZero())
	suite.Equal(4, limits.MaxTradesPerDay)
	suite.True(limits.KillSwitchAtStart)

	instruments := cfg.InstrumentMap()
	suite.Len(instruments, 3)
	suite.Equal(1, instruments["ES"].MaxContracts)
	suite.True(d("12.50").Equal(instruments["ES"].TickValue))
	suite.True(d("5").Equal(instruments["NQ"].TickValue))

	suite.Equal(45*time.Minute, cfg.Execution.TimeStop)
	suite.Equal(5, cfg.Execution.StatusRetries)
	suite.Equal(1, cfg.Execution.DefaultQuantity)
	suite.Equal(commission_fee.ScheduleTopstep, cfg.Matching.Commission)
	suite.Equal(journal.TypeDuckDB, cfg.Journal.Type)
	suite.Equal(250*time.Millisecond, cfg.Paper.ReplayInterval)
	suite.Equal(time.Second, cfg.Paper.TimerInterval)
	suite.True(cfg.Status.Enabled)

	suite.Require().Len(cfg.Strategies, 2)
	suite.Equal(strategy.IDORB, cfg.Strategies[0].ID)
	suite.Equal("ES", cfg.Strategies[0].Instrument)
	suite.Equal(strategy.BiasLong, cfg.Strategies[0].Direction)
	suite.Equal(strategy.IDVWAPBounce, cfg.Strategies[1].ID)
	suite.Equal(10, cfg.Strategies[1].StopTicks)
}

func (suite *ConfigTestSuite) TestInvalidConfigs() {
	tests := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{
			name: "no strategies",
			yaml: "log_level: info\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "unknown strategy",
			yaml: "strategies:\n  - id: martingale\n    instrument: ES\n",
			code: errors.ErrCodeUnknownStrategy,
		},
		{
			name: "unconfigured instrument",
			yaml: "strategies:\n  - id: orb\n    instrument: CL\n",
			code: errors.ErrCodeUnknownInstrument,
		},
		{
			name: "flatten after close",
			yaml: "session:\n  flatten_time: \"16:30\"\n" + minimalConfig,
			code: errors.ErrCodeInvalidClock,
		},
		{
			name: "bad clock",
			yaml: "session:\n  rth_start: \"9h30\"\n" + minimalConfig,
			code: errors.ErrCodeInvalidClock,
		},
		{
			name: "unknown timezone",
			yaml: "session:\n  timezone: Mars/Olympus\n" + minimalConfig,
			code: errors.ErrCodeInvalidZone,
		},
		{
			name: "negative loss limit",
			yaml: "risk:\n  daily_loss_limit: -1\n" + minimalConfig,
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "bad log level",
			yaml: "log_level: verbose\n" + minimalConfig,
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "duckdb journal without path",
			yaml: "journal:\n  type: duckdb\n" + minimalConfig,
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "instrument without tick size",
			yaml: "instruments:\n  - symbol: CL\n    max_contracts: 1\n" + minimalConfig,
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "incompatible version",
			yaml: "version: v0.5.0\n" + minimalConfig,
			code: errors.ErrCodeVersionMismatch,
		},
		{
			name: "malformed yaml",
			yaml: "strategies: [\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := Parse([]byte(tc.yaml))
			suite.Error(err)
			suite.Equal(tc.code, errors.GetCode(err), err.Error())
		})
	}
}

func (suite *ConfigTestSuite) TestEnvironmentInterpolation() {
	suite.T().Setenv("ARGO_DAILY_LOSS", "250")
	suite.T().Setenv("ARGO_INSTRUMENT", "MES")

	cfg, err := Parse([]byte(`
risk:
  daily_loss_limit: ${ARGO_DAILY_LOSS}
  max_drawdown: ${ARGO_UNSET_DRAWDOWN:800}
strategies:
  - id: session_fade
    instrument: ${ARGO_INSTRUMENT:ES}
`))
	suite.Require().NoError(err)

	suite.True(d("250").Equal(cfg.Risk.DailyLossLimit))
	suite.True(d("800").Equal(cfg.Risk.MaxDrawdown))
	suite.Equal("MES", cfg.Strategies[0].Instrument)
}

func (suite *ConfigTestSuite) TestInterpolate() {
	suite.T().Setenv("ARGO_SET", "value")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "a: ${ARGO_SET}", expected: "a: value"},
		{name: "set variable ignores default", input: "a: ${ARGO_SET:other}", expected: "a: value"},
		{name: "default", input: "a: ${ARGO_MISSING:fallback}", expected: "a: fallback"},
		{name: "empty default", input: "a: ${ARGO_MISSING:}", expected: "a: "},
		{name: "unset without default", input: "a: ${ARGO_MISSING}", expected: "a: "},
		{name: "plain dollar untouched", input: "a: $ARGO_SET", expected: "a: $ARGO_SET"},
		{name: "several", input: "${ARGO_SET}-${ARGO_MISSING:x}", expected: "value-x"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, Interpolate(tc.input))
		})
	}
}

func (suite *ConfigTestSuite) TestLoad() {
	path := filepath.Join(suite.T().TempDir(), "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(minimalConfig), 0o600))

	cfg, err := Load(path)
	suite.Require().NoError(err)
	suite.Len(cfg.Strategies, 1)

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestDevelopmentBuildSkipsVersionCheck() {
	version.Version = "main"

	_, err := Parse([]byte("version: v9.9.9\n" + minimalConfig))
	suite.NoError(err)
}

func (suite *ConfigTestSuite) TestSchema() {
	schema, err := Schema()
	suite.Require().NoError(err)

	var parsed map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schema), &parsed))

	properties, ok := parsed["properties"].(map[string]any)
	suite.Require().True(ok)

	for _, key := range []string{"session", "risk", "instruments", "execution", "matching", "journal", "strategies", "paper", "status"} {
		suite.Contains(properties, key)
	}

	risk := properties["risk"].(map[string]any)["properties"].(map[string]any)
	suite.Contains(risk["daily_loss_limit"], "oneOf")

	execution := properties["execution"].(map[string]any)["properties"].(map[string]any)
	suite.Equal("string", execution["time_stop"].(map[string]any)["type"])
}
