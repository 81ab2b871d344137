package commission_fee

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

type ZeroCommissionFee struct{}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

func (c *ZeroCommissionFee) Calculate(types.InstrumentSpec, int) decimal.Decimal {
	return decimal.Zero
}
