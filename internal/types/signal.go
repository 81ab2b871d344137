package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// Signal is a trade idea produced by a strategy. It is immutable once created.
type Signal struct {
	Instrument string    `yaml:"instrument" json:"instrument" validate:"required"`
	Direction  Direction `yaml:"direction" json:"direction" validate:"required,oneof=LONG SHORT"`
	// EntryType defaults to MARKET when empty.
	EntryType  OrderType       `yaml:"entry_type" json:"entry_type" validate:"omitempty,oneof=MARKET LIMIT STOP"`
	EntryPrice decimal.Decimal `yaml:"entry_price" json:"entry_price"`
	// StopPrice is required. A signal without a stop never becomes an order.
	StopPrice   optional.Option[decimal.Decimal] `yaml:"stop_price" json:"stop_price"`
	TargetPrice optional.Option[decimal.Decimal] `yaml:"target_price" json:"target_price"`
	// Quantity of contracts. Zero means the engine default.
	Quantity   int       `yaml:"quantity" json:"quantity" validate:"gte=0"`
	StrategyID string    `yaml:"strategy_id" json:"strategy_id" validate:"required"`
	Reason     string    `yaml:"reason" json:"reason"`
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp" validate:"required"`
}

// Validate checks the signal shape and that stop and target sit on the correct
// side of the entry for the signal direction.
func (s Signal) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	if !s.EntryPrice.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidSignal, "entry price must be positive, got %s", s.EntryPrice)
	}

	if s.StopPrice.IsNone() {
		return errors.New(errors.ErrCodeMissingStop, "signal has no stop price")
	}

	stop := s.StopPrice.Unwrap()
	if !stop.IsPositive() {
		return errors.Newf(errors.ErrCodeWrongSideStop, "stop price must be positive, got %s", stop)
	}

	switch s.Direction {
	case DirectionLong:
		if !stop.LessThan(s.EntryPrice) {
			return errors.Newf(errors.ErrCodeWrongSideStop, "long stop %s must be below entry %s", stop, s.EntryPrice)
		}
	case DirectionShort:
		if !stop.GreaterThan(s.EntryPrice) {
			return errors.Newf(errors.ErrCodeWrongSideStop, "short stop %s must be above entry %s", stop, s.EntryPrice)
		}
	}

	if s.TargetPrice.IsSome() {
		target := s.TargetPrice.Unwrap()

		switch s.Direction {
		case DirectionLong:
			if !target.GreaterThan(s.EntryPrice) {
				return errors.Newf(errors.ErrCodeWrongSideTarget, "long target %s must be above entry %s", target, s.EntryPrice)
			}
		case DirectionShort:
			if !target.LessThan(s.EntryPrice) || !target.IsPositive() {
				return errors.Newf(errors.ErrCodeWrongSideTarget, "short target %s must be below entry %s", target, s.EntryPrice)
			}
		}
	}

	return nil
}

// EffectiveEntryType returns the entry order type, MARKET when unset.
func (s Signal) EffectiveEntryType() OrderType {
	if s.EntryType == "" {
		return OrderTypeMarket
	}

	return s.EntryType
}
