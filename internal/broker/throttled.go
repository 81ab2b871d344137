package broker

import (
	"context"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"golang.org/x/time/rate"
)

// ThrottledBroker limits the rate of order-entry calls to a venue. Read-only
// calls pass through.
type ThrottledBroker struct {
	next    Broker
	limiter *rate.Limiter
}

// NewThrottledBroker wraps next so SubmitLeg and CancelLeg run at most perSecond
// times a second with the given burst.
func NewThrottledBroker(next Broker, perSecond float64, burst int) *ThrottledBroker {
	if burst <= 0 {
		burst = 1
	}

	return &ThrottledBroker{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (t *ThrottledBroker) SubmitLeg(ctx context.Context, req LegRequest) (LegHandle, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return LegHandle{}, errors.Wrap(errors.ErrCodeThrottleCancelled, "order entry throttle", err)
	}

	return t.next.SubmitLeg(ctx, req)
}

func (t *ThrottledBroker) CancelLeg(ctx context.Context, handle LegHandle) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeThrottleCancelled, "order entry throttle", err)
	}

	return t.next.CancelLeg(ctx, handle)
}

func (t *ThrottledBroker) LegStatus(ctx context.Context, legID string) (types.LegStatus, error) {
	return t.next.LegStatus(ctx, legID)
}

func (t *ThrottledBroker) SubscribeFills(handler FillHandler) {
	t.next.SubscribeFills(handler)
}

func (t *ThrottledBroker) Positions(ctx context.Context) (map[string]int, error) {
	return t.next.Positions(ctx)
}
