package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

var three = decimal.NewFromInt(3)

// VWAP is the session volume weighted average price. Bars contribute their
// typical price (high + low + close) / 3, ticks their single price. Events
// without volume are ignored.
type VWAP struct {
	volume   decimal.Decimal
	weighted decimal.Decimal
}

// NewVWAP creates an empty session VWAP.
func NewVWAP() *VWAP {
	return &VWAP{}
}

func (v *VWAP) Name() Type {
	return TypeVWAP
}

func (v *VWAP) Update(marketData types.MarketData) {
	if marketData.Volume <= 0 {
		return
	}

	typical := marketData.Close
	if !marketData.IsTick() {
		typical = marketData.High.Add(marketData.Low).Add(marketData.Close).Div(three)
	}

	volume := decimal.NewFromFloat(marketData.Volume)
	v.volume = v.volume.Add(volume)
	v.weighted = v.weighted.Add(typical.Mul(volume))
}

func (v *VWAP) Ready() bool {
	return v.volume.IsPositive()
}

func (v *VWAP) Reset() {
	v.volume = decimal.Zero
	v.weighted = decimal.Zero
}

// Value returns the current VWAP, none until some volume has traded.
func (v *VWAP) Value() optional.Option[decimal.Decimal] {
	if !v.Ready() {
		return optional.None[decimal.Decimal]()
	}

	return optional.Some(v.weighted.DivRound(v.volume, 8))
}
