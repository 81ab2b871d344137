package commission_fee

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// topstepRates are per-side rates charged on funded evaluation accounts.
var topstepRates = map[string]decimal.Decimal{
	"ES":  decimal.RequireFromString("1.40"),
	"MES": decimal.RequireFromString("0.37"),
}

type TopstepCommissionFee struct{}

func NewTopstepCommissionFee() CommissionFee {
	return &TopstepCommissionFee{}
}

// Calculate uses the fixed schedule and falls back to the instrument rate for
// contracts the schedule does not list.
func (c *TopstepCommissionFee) Calculate(spec types.InstrumentSpec, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}

	rate, ok := topstepRates[spec.Symbol]
	if !ok {
		rate = spec.CommissionPerSide
	}

	return rate.Mul(decimal.NewFromInt(int64(quantity)))
}
