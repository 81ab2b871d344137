package commission_fee

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

type CommissionFee interface {
	// Calculate returns the commission in USD for filling quantity contracts of
	// the instrument on one side.
	Calculate(spec types.InstrumentSpec, quantity int) decimal.Decimal
}

type Schedule string

const (
	// SchedulePerSide charges the per-side rate carried by the instrument spec.
	SchedulePerSide Schedule = "per_side"
	ScheduleTopstep Schedule = "topstep"
	ScheduleZero    Schedule = "zero"
)

var AllSchedules = []any{
	SchedulePerSide,
	ScheduleTopstep,
	ScheduleZero,
}

func GetCommissionFeeHandler(schedule Schedule) CommissionFee {
	switch schedule {
	case SchedulePerSide:
		return NewPerSideCommissionFee()
	case ScheduleTopstep:
		return NewTopstepCommissionFee()
	case ScheduleZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}
