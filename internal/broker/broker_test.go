package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BrokerTestSuite struct {
	suite.Suite
	sim *matching.Engine
}

func TestBrokerSuite(t *testing.T) {
	suite.Run(t, new(BrokerTestSuite))
}

func (suite *BrokerTestSuite) SetupTest() {
	suite.sim = matching.NewEngine(matching.DefaultConfig(), types.DefaultInstruments(), logger.NewNopLogger())
}

func marketEntry(legID string) broker.LegRequest {
	return broker.LegRequest{
		LegID:      legID,
		BracketID:  "b-1",
		Instrument: "ES",
		Role:       types.LegRoleEntry,
		Side:       types.SideBuy,
		Type:       types.OrderTypeMarket,
		Quantity:   1,
	}
}

func (suite *BrokerTestSuite) TestLegRequestValidate() {
	tests := []struct {
		name    string
		mutate  func(r *broker.LegRequest)
		wantErr bool
	}{
		{name: "valid market", mutate: func(*broker.LegRequest) {}},
		{name: "missing leg id", mutate: func(r *broker.LegRequest) { r.LegID = "" }, wantErr: true},
		{name: "zero quantity", mutate: func(r *broker.LegRequest) { r.Quantity = 0 }, wantErr: true},
		{name: "unknown side", mutate: func(r *broker.LegRequest) { r.Side = "HOLD" }, wantErr: true},
		{name: "limit without price", mutate: func(r *broker.LegRequest) { r.Type = types.OrderTypeLimit }, wantErr: true},
		{
			name: "limit with price",
			mutate: func(r *broker.LegRequest) {
				r.Type = types.OrderTypeLimit
				r.Price = decimal.NewFromInt(4500)
			},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			req := marketEntry("l-1")
			tc.mutate(&req)

			err := req.Validate()
			if tc.wantErr {
				suite.Equal(errors.ErrCodeOrderRejected, errors.GetCode(err))
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *BrokerTestSuite) TestThrottledBrokerPassesThrough() {
	throttled := broker.NewThrottledBroker(suite.sim, 1000, 10)
	ctx := context.Background()

	var fills []types.FillEvent
	throttled.SubscribeFills(func(fill types.FillEvent) {
		fills = append(fills, fill)
	})

	handle, err := throttled.SubmitLeg(ctx, marketEntry("l-1"))
	suite.Require().NoError(err)
	suite.Equal("l-1", handle.LegID)

	status, err := throttled.LegStatus(ctx, "l-1")
	suite.NoError(err)
	suite.Equal(types.LegStatusWorking, status)

	suite.sim.OnMarketData(types.NewTick("ES", time.Now(), decimal.NewFromInt(4500), 1))
	suite.Len(fills, 1)

	positions, err := throttled.Positions(ctx)
	suite.NoError(err)
	suite.Equal(1, positions["ES"])

	_, err = throttled.SubmitLeg(ctx, marketEntry("l-2"))
	suite.NoError(err)
	suite.NoError(throttled.CancelLeg(ctx, broker.LegHandle{LegID: "l-2"}))
}

func (suite *BrokerTestSuite) TestThrottledBrokerHonoursContext() {
	throttled := broker.NewThrottledBroker(suite.sim, 0.001, 1)

	_, err := throttled.SubmitLeg(context.Background(), marketEntry("l-1"))
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = throttled.SubmitLeg(ctx, marketEntry("l-2"))
	suite.Equal(errors.ErrCodeThrottleCancelled, errors.GetCode(err))

	err = throttled.CancelLeg(ctx, broker.LegHandle{LegID: "l-1"})
	suite.Equal(errors.ErrCodeThrottleCancelled, errors.GetCode(err))
}
