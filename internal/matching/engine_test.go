package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching/commission_fee"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
	engine *Engine
	start  time.Time
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.engine = NewEngine(Config{SlippageTicks: 1, Commission: commission_fee.ScheduleZero}, types.DefaultInstruments(), logger.NewNopLogger())
	suite.start = time.Date(2024, 3, 4, 14, 45, 0, 0, time.UTC)
	suite.ctx = context.Background()
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *EngineTestSuite) submit(role types.LegRole, side types.Side, orderType types.OrderType, price string, oco string) broker.LegHandle {
	req := broker.LegRequest{
		LegID:      uuid.NewString(),
		BracketID:  "b-1",
		Instrument: "ES",
		Role:       role,
		Side:       side,
		Type:       orderType,
		Quantity:   1,
		OCOGroup:   oco,
	}
	if price != "" {
		req.Price = d(price)
	}

	handle, err := suite.engine.SubmitLeg(suite.ctx, req)
	suite.Require().NoError(err)

	return handle
}

func (suite *EngineTestSuite) tick(price string, offset time.Duration) []types.FillEvent {
	return suite.engine.OnMarketData(types.NewTick("ES", suite.start.Add(offset), d(price), 1))
}

func (suite *EngineTestSuite) bar(open, high, low, closePrice string) []types.FillEvent {
	return suite.engine.OnMarketData(types.MarketData{
		Instrument: "ES",
		Time:       suite.start,
		Open:       d(open),
		High:       d(high),
		Low:        d(low),
		Close:      d(closePrice),
	})
}

func (suite *EngineTestSuite) status(handle broker.LegHandle) types.LegStatus {
	status, err := suite.engine.LegStatus(suite.ctx, handle.LegID)
	suite.Require().NoError(err)

	return status
}

func (suite *EngineTestSuite) TestStopFillsWithSlippageAndCancelsTarget() {
	stop := suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4495.00", "b-1")
	target := suite.submit(types.LegRoleTarget, types.SideSell, types.OrderTypeLimit, "4510.00", "b-1")

	suite.Empty(suite.tick("4498.00", time.Second))

	fills := suite.tick("4495.00", 2*time.Second)
	suite.Require().Len(fills, 1)
	suite.Equal(stop.LegID, fills[0].LegID)
	suite.True(d("4494.75").Equal(fills[0].Price), "got %s", fills[0].Price)
	suite.Equal(types.LegStatusFilled, suite.status(stop))
	suite.Equal(types.LegStatusCancelled, suite.status(target))
	suite.Equal(0, suite.engine.WorkingLegs("ES"))
}

func (suite *EngineTestSuite) TestTargetFillsWithoutSlippage() {
	suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4495.00", "b-1")
	target := suite.submit(types.LegRoleTarget, types.SideSell, types.OrderTypeLimit, "4510.00", "b-1")

	fills := suite.tick("4510.25", time.Second)
	suite.Require().Len(fills, 1)
	suite.Equal(target.LegID, fills[0].LegID)
	suite.True(d("4510.00").Equal(fills[0].Price))
}

func (suite *EngineTestSuite) TestBarTouchingStopAndTargetFillsStop() {
	stop := suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4495.00", "b-1")
	target := suite.submit(types.LegRoleTarget, types.SideSell, types.OrderTypeLimit, "4510.00", "b-1")

	fills := suite.bar("4500.00", "4512.00", "4490.00", "4505.00")
	suite.Require().Len(fills, 1)
	suite.Equal(types.LegRoleStop, fills[0].Role)
	suite.Equal(types.LegStatusFilled, suite.status(stop))
	suite.Equal(types.LegStatusCancelled, suite.status(target))
}

func (suite *EngineTestSuite) TestStopPriorityIndependentOfSubmissionOrder() {
	target := suite.submit(types.LegRoleTarget, types.SideBuy, types.OrderTypeLimit, "4490.00", "short")
	stop := suite.submit(types.LegRoleStop, types.SideBuy, types.OrderTypeStop, "4505.00", "short")

	fills := suite.bar("4500.00", "4506.00", "4489.00", "4495.00")
	suite.Require().Len(fills, 1)
	suite.Equal(stop.LegID, fills[0].LegID)
	suite.True(d("4505.25").Equal(fills[0].Price))
	suite.Equal(types.LegStatusCancelled, suite.status(target))
}

func (suite *EngineTestSuite) TestMarketLegFillsOnNextEventWithSlippage() {
	entry := suite.submit(types.LegRoleEntry, types.SideBuy, types.OrderTypeMarket, "", "")
	suite.Equal(types.LegStatusWorking, suite.status(entry))

	fills := suite.bar("4500.00", "4502.00", "4499.00", "4501.00")
	suite.Require().Len(fills, 1)
	suite.True(d("4500.25").Equal(fills[0].Price))

	positions, err := suite.engine.Positions(suite.ctx)
	suite.NoError(err)
	suite.Equal(map[string]int{"ES": 1}, positions)
}

func (suite *EngineTestSuite) TestTriggerRules() {
	tests := []struct {
		name      string
		side      types.Side
		orderType types.OrderType
		price     string
		tick      string
		fills     bool
	}{
		{"buy limit below", types.SideBuy, types.OrderTypeLimit, "4500.00", "4499.75", true},
		{"buy limit above", types.SideBuy, types.OrderTypeLimit, "4500.00", "4500.25", false},
		{"sell limit at", types.SideSell, types.OrderTypeLimit, "4500.00", "4500.00", true},
		{"sell limit below", types.SideSell, types.OrderTypeLimit, "4500.00", "4499.75", false},
		{"buy stop above", types.SideBuy, types.OrderTypeStop, "4500.00", "4500.25", true},
		{"buy stop below", types.SideBuy, types.OrderTypeStop, "4500.00", "4499.75", false},
		{"sell stop at", types.SideSell, types.OrderTypeStop, "4500.00", "4500.00", true},
		{"sell stop above", types.SideSell, types.OrderTypeStop, "4500.00", "4500.25", false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.SetupTest()
			suite.submit(types.LegRoleEntry, tc.side, tc.orderType, tc.price, "")
			fills := suite.tick(tc.tick, time.Second)
			if tc.fills {
				suite.Len(fills, 1)
			} else {
				suite.Empty(fills)
			}
		})
	}
}

func (suite *EngineTestSuite) TestCommissionChargedPerFill() {
	engine := NewEngine(Config{SlippageTicks: 0, Commission: commission_fee.SchedulePerSide}, types.DefaultInstruments(), logger.NewNopLogger())
	_, err := engine.SubmitLeg(suite.ctx, broker.LegRequest{
		LegID: "l-1", BracketID: "b-1", Instrument: "ES", Role: types.LegRoleEntry,
		Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 2,
	})
	suite.Require().NoError(err)

	fills := engine.OnMarketData(types.NewTick("ES", suite.start, d("4500"), 1))
	suite.Require().Len(fills, 1)
	suite.True(d("2.80").Equal(fills[0].Commission))
}

func (suite *EngineTestSuite) TestBracketsOnSameInstrumentMatchIndependently() {
	first := suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4495.00", "b-1")
	second := suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4490.00", "b-2")

	fills := suite.tick("4494.00", time.Second)
	suite.Require().Len(fills, 1)
	suite.Equal(first.LegID, fills[0].LegID)
	suite.Equal(types.LegStatusWorking, suite.status(second))
}

func (suite *EngineTestSuite) TestSubscribersSeeFillsAndResubmitForNextEvent() {
	var seen []types.FillEvent
	suite.engine.SubscribeFills(func(fill types.FillEvent) {
		seen = append(seen, fill)
		if fill.Role == types.LegRoleEntry {
			suite.submit(types.LegRoleStop, types.SideSell, types.OrderTypeStop, "4499.00", "b-1")
		}
	})

	suite.submit(types.LegRoleEntry, types.SideBuy, types.OrderTypeMarket, "", "")

	fills := suite.bar("4500.00", "4501.00", "4495.00", "4496.00")
	suite.Len(fills, 1)
	suite.Len(seen, 1)
	suite.Equal(1, suite.engine.WorkingLegs("ES"), "stop submitted during the event waits for the next one")

	fills = suite.tick("4498.00", time.Minute)
	suite.Len(fills, 1)
	suite.Len(seen, 2)
}

func (suite *EngineTestSuite) TestCancelLeg() {
	handle := suite.submit(types.LegRoleTarget, types.SideSell, types.OrderTypeLimit, "4510.00", "")

	suite.NoError(suite.engine.CancelLeg(suite.ctx, handle))
	suite.NoError(suite.engine.CancelLeg(suite.ctx, handle), "cancel is idempotent")
	suite.Equal(types.LegStatusCancelled, suite.status(handle))
	suite.Empty(suite.tick("4511.00", time.Second))

	err := suite.engine.CancelLeg(suite.ctx, broker.LegHandle{LegID: "missing"})
	suite.Equal(errors.ErrCodeLegNotFound, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestCancelFilledLeg() {
	handle := suite.submit(types.LegRoleEntry, types.SideBuy, types.OrderTypeMarket, "", "")
	suite.tick("4500.00", time.Second)

	err := suite.engine.CancelLeg(suite.ctx, handle)
	suite.Equal(errors.ErrCodeLegNotCancellable, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestSubmitRejections() {
	_, err := suite.engine.SubmitLeg(suite.ctx, broker.LegRequest{
		LegID: "l-1", BracketID: "b-1", Instrument: "NQ", Role: types.LegRoleEntry,
		Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 1,
	})
	suite.Equal(errors.ErrCodeOrderRejected, errors.GetCode(err))

	_, err = suite.engine.SubmitLeg(suite.ctx, broker.LegRequest{
		LegID: "l-2", BracketID: "b-1", Instrument: "ES", Role: types.LegRoleStop,
		Side: types.SideSell, Type: types.OrderTypeStop, Quantity: 1,
	})
	suite.Equal(errors.ErrCodeOrderRejected, errors.GetCode(err), "stop without price")

	handle := suite.submit(types.LegRoleEntry, types.SideBuy, types.OrderTypeMarket, "", "")
	_, err = suite.engine.SubmitLeg(suite.ctx, broker.LegRequest{
		LegID: handle.LegID, BracketID: "b-1", Instrument: "ES", Role: types.LegRoleEntry,
		Side: types.SideBuy, Type: types.OrderTypeMarket, Quantity: 1,
	})
	suite.Equal(errors.ErrCodeDuplicateLeg, errors.GetCode(err))
}

func (suite *EngineTestSuite) TestLastPrice() {
	_, ok := suite.engine.LastPrice("ES")
	suite.False(ok)

	suite.tick("4501.50", time.Second)
	price, ok := suite.engine.LastPrice("ES")
	suite.True(ok)
	suite.True(d("4501.50").Equal(price))
}
