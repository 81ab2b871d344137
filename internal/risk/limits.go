package risk

import "github.com/shopspring/decimal"

// Rejection reasons, in the order the pre-trade checks run.
const (
	ReasonKillSwitch        = "kill_switch"
	ReasonDailyLossLimit    = "daily_loss_limit"
	ReasonMaxDrawdown       = "max_drawdown"
	ReasonMaxTrades         = "max_trades_per_day"
	ReasonUnknownInstrument = "unknown_instrument"
	ReasonPositionCap       = "position_cap"
	ReasonMissingStop       = "missing_stop"
	ReasonPerTradeRisk      = "per_trade_risk"
	ReasonReconciliation    = "reconciliation_mismatch"
	ReasonConfigured        = "configured"
	ReasonManual            = "manual"
)

// Limits are the capital-preservation limits for one session. Dollar limits are
// positive numbers; a zero limit disables that check.
type Limits struct {
	DailyLossLimit  decimal.Decimal
	MaxDrawdown     decimal.Decimal
	MaxTradesPerDay int
	MaxRiskPerTrade decimal.Decimal
	// KillSwitchAtStart engages the kill switch at every session reset.
	KillSwitchAtStart bool
}

// DefaultLimits returns conservative defaults for a small futures account.
func DefaultLimits() Limits {
	return Limits{
		DailyLossLimit:  decimal.NewFromInt(500),
		MaxDrawdown:     decimal.NewFromInt(1000),
		MaxTradesPerDay: 10,
		MaxRiskPerTrade: decimal.NewFromInt(100),
	}
}
