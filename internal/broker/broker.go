// Package broker defines the capability the execution engine trades through.
// Both the simulated matching engine and live venue adapters implement it.
package broker

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// LegRequest asks the venue to work one leg. LegID is assigned by the client so
// that status queries stay idempotent even when the submit response is lost.
type LegRequest struct {
	LegID      string          `json:"leg_id" validate:"required"`
	BracketID  string          `json:"bracket_id" validate:"required"`
	Instrument string          `json:"instrument" validate:"required"`
	Role       types.LegRole   `json:"role" validate:"required,oneof=ENTRY STOP TARGET EXIT"`
	Side       types.Side      `json:"side" validate:"required,oneof=BUY SELL"`
	Type       types.OrderType `json:"type" validate:"required,oneof=MARKET LIMIT STOP"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" validate:"gt=0"`
	// OCOGroup links legs where a fill of one cancels the rest.
	OCOGroup string    `json:"oco_group"`
	Time     time.Time `json:"time"`
}

// Validate checks the request shape.
func (r LegRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeOrderRejected, "invalid leg request", err)
	}

	if r.Type != types.OrderTypeMarket && !r.Price.IsPositive() {
		return errors.Newf(errors.ErrCodeOrderRejected, "%s leg needs a positive price", r.Type)
	}

	return nil
}

// LegHandle identifies a leg accepted by the venue.
type LegHandle struct {
	LegID    string `json:"leg_id"`
	BrokerID string `json:"broker_id"`
}

// FillHandler receives fills as the venue reports them.
type FillHandler func(fill types.FillEvent)

// Broker is the venue capability. Implementations report transport failures
// with errors.ErrCodeConnectivity and venue refusals with errors.ErrCodeOrderRejected.
type Broker interface {
	// SubmitLeg places a leg. It is never retried by the caller.
	SubmitLeg(ctx context.Context, req LegRequest) (LegHandle, error)
	// CancelLeg cancels a working leg. Cancelling an already cancelled leg succeeds.
	CancelLeg(ctx context.Context, handle LegHandle) error
	// LegStatus looks up a leg by client leg id. It is idempotent.
	LegStatus(ctx context.Context, legID string) (types.LegStatus, error)
	// SubscribeFills registers a fill handler.
	SubscribeFills(handler FillHandler)
	// Positions returns the signed net position per instrument.
	Positions(ctx context.Context) (map[string]int, error)
}
