package strategy

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func testWindow(t *testing.T) *session.Window {
	window, err := session.New(session.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	return window
}

// at returns 2024-03-04 (a Monday) at hh:mm New York time.
func at(window *session.Window, hour, minute int) time.Time {
	return time.Date(2024, 3, 4, hour, minute, 0, 0, window.Location())
}

func bar(instrument string, t time.Time, high, low, closePrice string) types.MarketData {
	return types.MarketData{
		Instrument: instrument,
		Time:       t,
		Open:       d(closePrice),
		High:       d(high),
		Low:        d(low),
		Close:      d(closePrice),
		Volume:     100,
	}
}

func mustSignal(s *suite.Suite, result optional.Option[types.Signal]) types.Signal {
	s.Require().True(result.IsSome(), "expected a signal")

	return result.Unwrap()
}

type RegistryTestSuite struct {
	suite.Suite
	window *session.Window
	spec   types.InstrumentSpec
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.window = testWindow(suite.T())
	suite.spec = types.DefaultInstruments()["ES"]
}

func (suite *RegistryTestSuite) TestParse() {
	tests := []struct {
		name     string
		input    string
		expected ID
		wantErr  bool
	}{
		{name: "orb", input: "orb", expected: IDORB},
		{name: "case and space", input: " VWAP_Bounce ", expected: IDVWAPBounce},
		{name: "fade", input: "session_fade", expected: IDSessionFade},
		{name: "unknown", input: "martingale", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			id, err := Parse(tc.input)
			if tc.wantErr {
				suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))

				return
			}

			suite.NoError(err)
			suite.Equal(tc.expected, id)
		})
	}
}

func (suite *RegistryTestSuite) TestIDsSorted() {
	suite.Equal([]ID{IDORB, IDSessionFade, IDVWAPBounce}, IDs())
	suite.Len(AllIDs, len(IDs()))
}

func (suite *RegistryTestSuite) TestWithDefaults() {
	cfg, err := WithDefaults(Config{ID: IDORB, Instrument: "ES", StopTicks: 10})
	suite.NoError(err)
	suite.Equal(10, cfg.StopTicks)
	suite.Equal(16, cfg.TargetTicks)
	suite.Equal(1, cfg.Quantity)
	suite.Equal(BiasBoth, cfg.Direction)
	suite.Equal(5, cfg.ORB.RangeMinutes)

	cfg, err = WithDefaults(Config{ID: IDVWAPBounce, Instrument: "ES"})
	suite.NoError(err)
	suite.Equal(35, cfg.VWAPBounce.SkipFirstMinutes)
	suite.Equal(3, cfg.MaxTrades)
}

func (suite *RegistryTestSuite) TestNewBuildsEachStrategy() {
	for _, id := range IDs() {
		s, err := New(Config{ID: id, Instrument: "ES"}, suite.spec, suite.window, logger.NewNopLogger())
		suite.NoError(err)
		suite.Equal(id, s.ID())
		suite.Equal("ES", s.Instrument())

		_, ok := s.(RejectionAware)
		suite.True(ok)
	}
}

func (suite *RegistryTestSuite) TestNewRejectsMismatchedInstrument() {
	_, err := New(Config{ID: IDORB, Instrument: "MES"}, suite.spec, suite.window, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownInstrument))
}

func (suite *RegistryTestSuite) TestNewRejectsUnknownID() {
	_, err := New(Config{ID: "grid", Instrument: "ES"}, suite.spec, suite.window, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownStrategy))
}

func (suite *RegistryTestSuite) TestNewAll() {
	instruments := types.DefaultInstruments()
	configs := []Config{
		{ID: IDORB, Instrument: "ES"},
		{ID: IDSessionFade, Instrument: "MES"},
	}

	strategies, err := NewAll(configs, instruments, suite.window, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().Len(strategies, 2)
	suite.Equal("MES", strategies[1].Instrument())

	_, err = NewAll(append(configs, Config{ID: IDORB, Instrument: "ZB"}), instruments, suite.window, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownInstrument))
}

func (suite *RegistryTestSuite) TestBiasAllows() {
	suite.True(BiasBoth.allows(types.DirectionShort))
	suite.True(BiasLong.allows(types.DirectionLong))
	suite.False(BiasLong.allows(types.DirectionShort))
	suite.False(BiasShort.allows(types.DirectionLong))
}
