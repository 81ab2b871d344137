package indicator

import (
	"github.com/rxtech-lab/argo-futures/internal/types"
)

// Type names an indicator kind.
type Type string

const (
	TypeVWAP         Type = "vwap"
	TypeOpeningRange Type = "opening_range"
)

// Indicator is a streaming indicator fed one market event at a time. Values
// accumulate over a single trading session and are cleared by Reset.
type Indicator interface {
	// Name returns the name of the indicator
	Name() Type
	// Update folds one market event into the indicator
	Update(marketData types.MarketData)
	// Ready reports whether the indicator has a usable value
	Ready() bool
	// Reset clears all session state
	Reset()
}
