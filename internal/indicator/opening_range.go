package indicator

import (
	"time"

	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/shopspring/decimal"
)

// OpeningRange tracks the high and low of the first minutes of the regular
// session. Events stamped in [rth_start, rth_start+duration) build the range;
// the first event at or after the end forms it.
type OpeningRange struct {
	window   *session.Window
	duration time.Duration
	high     decimal.Decimal
	low      decimal.Decimal
	seen     bool
	formed   bool
}

// NewOpeningRange creates an opening range of the given duration.
func NewOpeningRange(window *session.Window, duration time.Duration) *OpeningRange {
	return &OpeningRange{window: window, duration: duration}
}

func (o *OpeningRange) Name() Type {
	return TypeOpeningRange
}

func (o *OpeningRange) Update(marketData types.MarketData) {
	if o.formed {
		return
	}

	start := o.window.ForDay(marketData.Time).RTHStart
	end := start.Add(o.duration)

	switch {
	case marketData.Time.Before(start):
		return
	case marketData.Time.Before(end):
		if !o.seen {
			o.high = marketData.High
			o.low = marketData.Low
			o.seen = true

			return
		}

		o.high = decimal.Max(o.high, marketData.High)
		o.low = decimal.Min(o.low, marketData.Low)
	default:
		o.formed = true
	}
}

// Ready reports whether the range is complete and saw at least one event.
func (o *OpeningRange) Ready() bool {
	return o.formed && o.seen
}

// Formed reports whether the range window has ended, with or without data.
func (o *OpeningRange) Formed() bool {
	return o.formed
}

func (o *OpeningRange) Reset() {
	o.high = decimal.Zero
	o.low = decimal.Zero
	o.seen = false
	o.formed = false
}

func (o *OpeningRange) High() decimal.Decimal {
	return o.high
}

func (o *OpeningRange) Low() decimal.Decimal {
	return o.low
}

// Width is high minus low.
func (o *OpeningRange) Width() decimal.Decimal {
	return o.high.Sub(o.low)
}
