package types

import "github.com/shopspring/decimal"

// InstrumentSpec describes a futures contract.
type InstrumentSpec struct {
	Symbol            string          `yaml:"symbol" json:"symbol" validate:"required"`
	TickSize          decimal.Decimal `yaml:"tick_size" json:"tick_size"`
	TickValue         decimal.Decimal `yaml:"tick_value" json:"tick_value"`
	MaxContracts      int             `yaml:"max_contracts" json:"max_contracts" validate:"gt=0"`
	CommissionPerSide decimal.Decimal `yaml:"commission_per_side" json:"commission_per_side"`
}

// DefaultInstruments returns the built-in CME equity index contracts.
func DefaultInstruments() map[string]InstrumentSpec {
	return map[string]InstrumentSpec{
		"ES": {
			Symbol:            "ES",
			TickSize:          decimal.RequireFromString("0.25"),
			TickValue:         decimal.RequireFromString("12.50"),
			MaxContracts:      2,
			CommissionPerSide: decimal.RequireFromString("1.40"),
		},
		"MES": {
			Symbol:            "MES",
			TickSize:          decimal.RequireFromString("0.25"),
			TickValue:         decimal.RequireFromString("1.25"),
			MaxContracts:      10,
			CommissionPerSide: decimal.RequireFromString("0.37"),
		},
	}
}

// Multiplier is the dollar value of a one point move for one contract.
func (s InstrumentSpec) Multiplier() decimal.Decimal {
	if s.TickSize.IsZero() {
		return decimal.Zero
	}

	return s.TickValue.Div(s.TickSize)
}

// Ticks converts a tick count into a price distance.
func (s InstrumentSpec) Ticks(n int) decimal.Decimal {
	return s.TickSize.Mul(decimal.NewFromInt(int64(n)))
}

// RoundToTick rounds a price to the nearest valid tick.
func (s InstrumentSpec) RoundToTick(price decimal.Decimal) decimal.Decimal {
	if s.TickSize.IsZero() {
		return price
	}

	return price.Div(s.TickSize).Round(0).Mul(s.TickSize)
}

// RiskUSD is the dollar loss if a position of qty contracts entered at entry
// is stopped out at stop, before slippage and commission.
func (s InstrumentSpec) RiskUSD(entry, stop decimal.Decimal, qty int) decimal.Decimal {
	if s.TickSize.IsZero() {
		return decimal.Zero
	}

	ticks := entry.Sub(stop).Abs().Div(s.TickSize)

	return ticks.Mul(s.TickValue).Mul(decimal.NewFromInt(int64(qty)))
}

// PnL is the dollar profit of moving qty signed contracts from entry to exit.
func (s InstrumentSpec) PnL(entry, exit decimal.Decimal, signedQty int) decimal.Decimal {
	return exit.Sub(entry).Mul(decimal.NewFromInt(int64(signedQty))).Mul(s.Multiplier())
}
