package indicator

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type VWAPTestSuite struct {
	suite.Suite
}

func TestVWAPSuite(t *testing.T) {
	suite.Run(t, new(VWAPTestSuite))
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (suite *VWAPTestSuite) TestEmptyIsNotReady() {
	vwap := NewVWAP()
	suite.False(vwap.Ready())
	suite.True(vwap.Value().IsNone())
}

func (suite *VWAPTestSuite) TestTicksAreVolumeWeighted() {
	vwap := NewVWAP()
	now := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	vwap.Update(types.NewTick("ES", now, d("4500"), 100))
	vwap.Update(types.NewTick("ES", now, d("4510"), 300))

	suite.True(vwap.Ready())
	suite.True(d("4507.5").Equal(vwap.Value().Unwrap()))
}

func (suite *VWAPTestSuite) TestBarsUseTypicalPrice() {
	vwap := NewVWAP()

	vwap.Update(types.MarketData{
		Instrument: "ES",
		Open:       d("4500"),
		High:       d("4506"),
		Low:        d("4497"),
		Close:      d("4503"),
		Volume:     10,
	})

	suite.True(d("4502").Equal(vwap.Value().Unwrap()))
}

func (suite *VWAPTestSuite) TestZeroVolumeIgnored() {
	vwap := NewVWAP()

	vwap.Update(types.NewTick("ES", time.Now(), d("4500"), 0))
	suite.False(vwap.Ready())
}

func (suite *VWAPTestSuite) TestReset() {
	vwap := NewVWAP()

	vwap.Update(types.NewTick("ES", time.Now(), d("4500"), 5))
	vwap.Reset()

	suite.False(vwap.Ready())
	suite.Equal(TypeVWAP, vwap.Name())
}
