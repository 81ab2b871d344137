package commission_fee

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

type PerSideCommissionFee struct{}

func NewPerSideCommissionFee() CommissionFee {
	return &PerSideCommissionFee{}
}

func (c *PerSideCommissionFee) Calculate(spec types.InstrumentSpec, quantity int) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}

	return spec.CommissionPerSide.Mul(decimal.NewFromInt(int64(quantity)))
}
