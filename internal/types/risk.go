package types

import (
	"maps"

	"github.com/shopspring/decimal"
)

// RiskState is the session ledger owned by the risk governor. Everything else
// only ever sees a clone.
type RiskState struct {
	SessionDate        string          `yaml:"session_date" json:"session_date"`
	DailyRealizedPnL   decimal.Decimal `yaml:"daily_realized_pnl" json:"daily_realized_pnl"`
	DailyUnrealizedPnL decimal.Decimal `yaml:"daily_unrealized_pnl" json:"daily_unrealized_pnl"`
	DailyCommission    decimal.Decimal `yaml:"daily_commission" json:"daily_commission"`
	TradeCountToday    int             `yaml:"trade_count_today" json:"trade_count_today"`
	// HighWaterMark is the highest session equity (realized plus unrealized) seen so far.
	HighWaterMark    decimal.Decimal `yaml:"high_water_mark" json:"high_water_mark"`
	CurrentDrawdown  decimal.Decimal `yaml:"current_drawdown" json:"current_drawdown"`
	MaxDrawdownToday decimal.Decimal `yaml:"max_drawdown_today" json:"max_drawdown_today"`
	// OpenPositionQty is the signed net position per instrument.
	OpenPositionQty   map[string]int `yaml:"open_position_qty" json:"open_position_qty"`
	KillSwitchEngaged bool           `yaml:"kill_switch_engaged" json:"kill_switch_engaged"`
	KillSwitchReason  string         `yaml:"kill_switch_reason" json:"kill_switch_reason"`
	// Halted is set by a reconciliation mismatch and survives session resets.
	Halted bool `yaml:"halted" json:"halted"`
}

// NewRiskState returns a zeroed ledger for a session.
func NewRiskState(sessionDate string) RiskState {
	return RiskState{
		SessionDate:     sessionDate,
		OpenPositionQty: map[string]int{},
	}
}

// Clone returns a deep copy safe to hand to readers.
func (s RiskState) Clone() RiskState {
	clone := s
	clone.OpenPositionQty = maps.Clone(s.OpenPositionQty)

	if clone.OpenPositionQty == nil {
		clone.OpenPositionQty = map[string]int{}
	}

	return clone
}

// Equity is realized plus unrealized session PnL.
func (s RiskState) Equity() decimal.Decimal {
	return s.DailyRealizedPnL.Add(s.DailyUnrealizedPnL)
}
