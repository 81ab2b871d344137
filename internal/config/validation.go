package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// Validate checks struct constraints first, then the rules that span sections.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if _, err := session.New(c.Session); err != nil {
		return err
	}

	if err := c.Risk.validate(); err != nil {
		return err
	}

	instruments := c.InstrumentMap()
	if len(instruments) != len(c.Instruments) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "instruments contain a duplicate symbol")
	}

	for _, spec := range c.Instruments {
		if !spec.TickSize.IsPositive() || !spec.TickValue.IsPositive() {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "instrument %s needs a positive tick_size and tick_value", spec.Symbol)
		}

		if spec.CommissionPerSide.IsNegative() {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "instrument %s has a negative commission", spec.Symbol)
		}
	}

	for i, cfg := range c.Strategies {
		if _, err := strategy.Parse(string(cfg.ID)); err != nil {
			return err
		}

		if _, ok := instruments[cfg.Instrument]; !ok {
			return errors.Newf(errors.ErrCodeUnknownInstrument,
				"strategies[%d] (%s) trades %s which is not a configured instrument", i, cfg.ID, cfg.Instrument)
		}
	}

	return nil
}

func (r RiskConfig) validate() error {
	if r.DailyLossLimit.IsNegative() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "risk.daily_loss_limit must be >= 0")
	}

	if r.MaxDrawdown.IsNegative() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "risk.max_drawdown must be >= 0")
	}

	if r.MaxRiskPerTrade.IsNegative() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "risk.max_risk_per_trade must be >= 0")
	}

	return nil
}
