package commission_fee

import (
	"testing"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
	instruments map[string]types.InstrumentSpec
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func (suite *CommissionFeeTestSuite) SetupTest() {
	suite.instruments = types.DefaultInstruments()
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()
	suite.NotNil(fee)

	for _, qty := range []int{0, 1, 10, -5} {
		suite.True(fee.Calculate(suite.instruments["ES"], qty).IsZero())
	}
}

func (suite *CommissionFeeTestSuite) TestPerSideCommissionFee() {
	fee := NewPerSideCommissionFee()

	tests := []struct {
		name       string
		instrument string
		quantity   int
		expected   string
	}{
		{"one ES contract", "ES", 1, "1.40"},
		{"two ES contracts", "ES", 2, "2.80"},
		{"three MES contracts", "MES", 3, "1.11"},
		{"zero quantity", "ES", 0, "0"},
		{"negative quantity", "MES", -1, "0"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := fee.Calculate(suite.instruments[tc.instrument], tc.quantity)
			suite.True(decimal.RequireFromString(tc.expected).Equal(result), "got %s", result)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestTopstepCommissionFee() {
	fee := NewTopstepCommissionFee()

	suite.True(decimal.RequireFromString("2.80").Equal(fee.Calculate(suite.instruments["ES"], 2)))
	suite.True(decimal.RequireFromString("0.37").Equal(fee.Calculate(suite.instruments["MES"], 1)))

	custom := types.InstrumentSpec{Symbol: "NQ", CommissionPerSide: decimal.RequireFromString("2.10")}
	suite.True(decimal.RequireFromString("4.20").Equal(fee.Calculate(custom, 2)), "unlisted contracts use their own per-side rate")
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name     string
		schedule Schedule
		expected string
	}{
		{"per side", SchedulePerSide, "1.40"},
		{"topstep", ScheduleTopstep, "1.40"},
		{"zero", ScheduleZero, "0"},
		{"unknown schedule defaults to zero", Schedule("unknown"), "0"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler := GetCommissionFeeHandler(tc.schedule)
			suite.NotNil(handler)
			suite.True(decimal.RequireFromString(tc.expected).Equal(handler.Calculate(suite.instruments["ES"], 1)))
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllSchedules() {
	suite.Len(AllSchedules, 3)
	suite.Contains(AllSchedules, SchedulePerSide)
	suite.Contains(AllSchedules, ScheduleTopstep)
	suite.Contains(AllSchedules, ScheduleZero)
}
