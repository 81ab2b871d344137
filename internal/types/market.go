package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketData is one market event for an instrument. A tick is a bar whose
// open, high, low and close are equal.
type MarketData struct {
	Instrument string          `yaml:"instrument" json:"instrument" csv:"instrument"`
	Time       time.Time       `yaml:"time" json:"time" csv:"time"`
	Open       decimal.Decimal `yaml:"open" json:"open" csv:"open"`
	High       decimal.Decimal `yaml:"high" json:"high" csv:"high"`
	Low        decimal.Decimal `yaml:"low" json:"low" csv:"low"`
	Close      decimal.Decimal `yaml:"close" json:"close" csv:"close"`
	Volume     float64         `yaml:"volume" json:"volume" csv:"volume"`
}

// NewTick builds a single-price market event.
func NewTick(instrument string, t time.Time, price decimal.Decimal, volume float64) MarketData {
	return MarketData{
		Instrument: instrument,
		Time:       t,
		Open:       price,
		High:       price,
		Low:        price,
		Close:      price,
		Volume:     volume,
	}
}

// Price is the last traded price of the event.
func (m MarketData) Price() decimal.Decimal {
	return m.Close
}

// IsTick reports whether the event carries a single price.
func (m MarketData) IsTick() bool {
	return m.High.Equal(m.Low)
}
