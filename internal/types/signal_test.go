package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func longSignal() Signal {
	return Signal{
		Instrument:  "ES",
		Direction:   DirectionLong,
		EntryPrice:  price("4500"),
		StopPrice:   optional.Some(price("4495")),
		TargetPrice: optional.Some(price("4510")),
		StrategyID:  "orb",
		Timestamp:   time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func (suite *SignalTestSuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(s *Signal)
		errCode errors.ErrorCode
	}{
		{name: "valid long", mutate: func(s *Signal) {}},
		{name: "valid long without target", mutate: func(s *Signal) { s.TargetPrice = optional.None[decimal.Decimal]() }},
		{
			name: "valid short",
			mutate: func(s *Signal) {
				s.Direction = DirectionShort
				s.StopPrice = optional.Some(price("4505"))
				s.TargetPrice = optional.Some(price("4490"))
			},
		},
		{name: "missing stop", mutate: func(s *Signal) { s.StopPrice = optional.None[decimal.Decimal]() }, errCode: errors.ErrCodeMissingStop},
		{name: "long stop above entry", mutate: func(s *Signal) { s.StopPrice = optional.Some(price("4501")) }, errCode: errors.ErrCodeWrongSideStop},
		{name: "long stop equal entry", mutate: func(s *Signal) { s.StopPrice = optional.Some(price("4500")) }, errCode: errors.ErrCodeWrongSideStop},
		{name: "long target below entry", mutate: func(s *Signal) { s.TargetPrice = optional.Some(price("4499")) }, errCode: errors.ErrCodeWrongSideTarget},
		{
			name: "short stop below entry",
			mutate: func(s *Signal) {
				s.Direction = DirectionShort
				s.StopPrice = optional.Some(price("4495"))
				s.TargetPrice = optional.Some(price("4490"))
			},
			errCode: errors.ErrCodeWrongSideStop,
		},
		{
			name: "short target above entry",
			mutate: func(s *Signal) {
				s.Direction = DirectionShort
				s.StopPrice = optional.Some(price("4505"))
			},
			errCode: errors.ErrCodeWrongSideTarget,
		},
		{name: "missing instrument", mutate: func(s *Signal) { s.Instrument = "" }, errCode: errors.ErrCodeInvalidSignal},
		{name: "bad direction", mutate: func(s *Signal) { s.Direction = "FLAT" }, errCode: errors.ErrCodeInvalidSignal},
		{name: "negative quantity", mutate: func(s *Signal) { s.Quantity = -1 }, errCode: errors.ErrCodeInvalidSignal},
		{name: "zero entry", mutate: func(s *Signal) { s.EntryPrice = decimal.Zero }, errCode: errors.ErrCodeInvalidSignal},
		{name: "missing timestamp", mutate: func(s *Signal) { s.Timestamp = time.Time{} }, errCode: errors.ErrCodeInvalidSignal},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal := longSignal()
			tc.mutate(&signal)

			err := signal.Validate()
			if tc.errCode == 0 {
				suite.NoError(err)

				return
			}

			suite.Error(err)
			suite.Equal(tc.errCode, errors.GetCode(err))
		})
	}
}

func (suite *SignalTestSuite) TestEffectiveEntryType() {
	signal := longSignal()
	suite.Equal(OrderTypeMarket, signal.EffectiveEntryType())

	signal.EntryType = OrderTypeLimit
	suite.Equal(OrderTypeLimit, signal.EffectiveEntryType())
}

func (suite *SignalTestSuite) TestDirectionSides() {
	suite.Equal(SideBuy, DirectionLong.EntrySide())
	suite.Equal(SideSell, DirectionLong.ExitSide())
	suite.Equal(SideSell, DirectionShort.EntrySide())
	suite.Equal(SideBuy, DirectionShort.ExitSide())
	suite.Equal(-1, DirectionShort.Sign())
	suite.Equal(1, SideBuy.Sign())
}

func (suite *SignalTestSuite) TestLegRolePriority() {
	suite.Less(LegRoleStop.Priority(), LegRoleTarget.Priority())
	suite.Less(LegRoleEntry.Priority(), LegRoleStop.Priority())
}
