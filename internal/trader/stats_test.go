package trader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatsTrackerTestSuite struct {
	suite.Suite
	tracker *StatsTracker
	start   time.Time
}

func TestStatsTrackerSuite(t *testing.T) {
	suite.Run(t, new(StatsTrackerTestSuite))
}

func (suite *StatsTrackerTestSuite) SetupTest() {
	suite.tracker = NewStatsTracker(types.DefaultInstruments(), logger.NewNopLogger())
	suite.tracker.HandleDateBoundary("2024-03-04")
	suite.start = time.Date(2024, 3, 4, 14, 45, 0, 0, time.UTC)
}

func (suite *StatsTrackerTestSuite) fill(bracketID string, role types.LegRole, side types.Side, price string, offset time.Duration) {
	suite.tracker.Record(types.FillEvent{
		FillID:     bracketID + string(role),
		BracketID:  bracketID,
		Instrument: "MES",
		Role:       role,
		Side:       side,
		Quantity:   2,
		Price:      d(price),
		Commission: d("0.74"),
		Time:       suite.start.Add(offset),
	})
}

func (suite *StatsTrackerTestSuite) closed(bracketID, state, reason string) {
	suite.tracker.Record(types.OrderEvent{BracketID: bracketID, State: state, Reason: reason})
}

func (suite *StatsTrackerTestSuite) TestShortWinnerWithCommission() {
	suite.fill("b1", types.LegRoleEntry, types.SideSell, "4500.00", 0)
	suite.fill("b1", types.LegRoleTarget, types.SideBuy, "4496.00", 10*time.Minute)
	suite.closed("b1", "CLOSED", types.ReasonTargetFilled)

	trades := suite.tracker.Trades()
	suite.Require().Len(trades, 1)
	suite.True(d("40").Equal(trades[0].GrossPnL))
	suite.True(d("1.48").Equal(trades[0].Commission))
	suite.True(d("38.52").Equal(trades[0].NetPnL))
	suite.Equal(2, trades[0].Quantity)

	stats := suite.tracker.Daily()
	suite.Equal(1, stats.Wins)
	suite.Equal(1.0, stats.WinRate)
	suite.Equal(600, stats.AvgHoldSeconds)
}

func (suite *StatsTrackerTestSuite) TestDrawdownAcrossTrades() {
	suite.fill("b1", types.LegRoleEntry, types.SideBuy, "4500.00", 0)
	suite.fill("b1", types.LegRoleTarget, types.SideSell, "4510.00", time.Minute)
	suite.closed("b1", "CLOSED", types.ReasonTargetFilled)

	suite.fill("b2", types.LegRoleEntry, types.SideBuy, "4510.00", 2*time.Minute)
	suite.fill("b2", types.LegRoleStop, types.SideSell, "4500.00", 3*time.Minute)
	suite.closed("b2", "CLOSED", types.ReasonStopFilled)

	stats := suite.tracker.Cumulative()
	suite.Equal(2, stats.Trades)
	suite.Equal(1, stats.Losses)
	suite.True(d("101.48").Equal(stats.MaxDrawdown))
	suite.True(d("-2.96").Equal(stats.NetPnL))
}

func (suite *StatsTrackerTestSuite) TestOpenPositionNotCounted() {
	suite.fill("b1", types.LegRoleEntry, types.SideBuy, "4500.00", 0)
	suite.closed("b1", "CANCELLED", types.ReasonForceFlatten)

	suite.Empty(suite.tracker.Trades())
}

func (suite *StatsTrackerTestSuite) TestBracketWithoutFillsIgnored() {
	suite.closed("b9", "REJECTED", "daily_loss_limit")
	suite.closed("b9", "WORKING", "")

	suite.Equal(0, suite.tracker.Cumulative().Trades)
}

func (suite *StatsTrackerTestSuite) TestDateBoundaryKeepsCumulative() {
	suite.fill("b1", types.LegRoleEntry, types.SideBuy, "4500.00", 0)
	suite.fill("b1", types.LegRoleTarget, types.SideSell, "4501.00", time.Minute)
	suite.closed("b1", "CLOSED", types.ReasonTargetFilled)

	suite.tracker.HandleDateBoundary("2024-03-05")

	suite.Equal(0, suite.tracker.Daily().Trades)
	suite.Equal("2024-03-05", suite.tracker.Daily().Date)
	suite.Equal(1, suite.tracker.Cumulative().Trades)
}

func (suite *StatsTrackerTestSuite) TestWriteStatsYAML() {
	suite.fill("b1", types.LegRoleEntry, types.SideBuy, "4500.00", 0)
	suite.fill("b1", types.LegRoleTarget, types.SideSell, "4501.00", time.Minute)
	suite.closed("b1", "CLOSED", types.ReasonTargetFilled)

	path := filepath.Join(suite.T().TempDir(), "run", "stats.yaml")
	suite.Require().NoError(suite.tracker.WriteStatsYAML(path))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal(1, decoded["trades"])
	suite.Equal("8.52", decoded["net_pnl"])
}
