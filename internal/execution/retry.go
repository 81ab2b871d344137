package execution

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

func (e *Engine) newBackOff(ctx context.Context) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.config.RetryInitialInterval
	policy.MaxInterval = e.config.RetryMaxInterval
	policy.MaxElapsedTime = 0

	if policy.InitialInterval <= 0 {
		policy.InitialInterval = time.Millisecond
	}

	if policy.MaxInterval < policy.InitialInterval {
		policy.MaxInterval = policy.InitialInterval
	}

	policy.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(policy, uint64(e.config.StatusRetries)), ctx)
}

// queryLegStatus asks the broker for a leg's status, retrying connectivity
// failures with bounded exponential backoff. Other errors are returned at once.
// It runs inside a task and only reads immutable engine fields.
func (e *Engine) queryLegStatus(ctx context.Context, legID string) (types.LegStatus, error) {
	var status types.LegStatus

	operation := func() error {
		s, err := e.broker.LegStatus(ctx, legID)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeConnectivity) {
				return err
			}

			return backoff.Permanent(err)
		}

		status = s

		return nil
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("Leg status query failed, retrying",
			zap.String("leg_id", legID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, e.newBackOff(ctx), notify); err != nil {
		if errors.HasCode(err, errors.ErrCodeConnectivity) {
			return "", errors.Wrapf(errors.ErrCodeRetriesExhausted, err, "status of leg %s unknown after %d retries", legID, e.config.StatusRetries)
		}

		return "", err
	}

	return status, nil
}

// queryPositions fetches broker positions with the same retry policy.
func (e *Engine) queryPositions(ctx context.Context) (map[string]int, error) {
	var positions map[string]int

	operation := func() error {
		p, err := e.broker.Positions(ctx)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeConnectivity) {
				return err
			}

			return backoff.Permanent(err)
		}

		positions = p

		return nil
	}

	if err := backoff.Retry(operation, e.newBackOff(ctx)); err != nil {
		if errors.HasCode(err, errors.ErrCodeConnectivity) {
			return nil, errors.Wrap(errors.ErrCodeRetriesExhausted, "broker positions unavailable", err)
		}

		return nil, err
	}

	return positions, nil
}
