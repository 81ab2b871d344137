package execution

import (
	"context"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

func (e *Engine) legRequest(b *bracket.BracketOrder, leg *bracket.OrderLeg) broker.LegRequest {
	req := broker.LegRequest{
		LegID:      leg.ID,
		BracketID:  b.ID,
		Instrument: b.Instrument(),
		Role:       leg.Role,
		Side:       leg.Side,
		Type:       leg.Type,
		Price:      leg.RequestedPrice,
		Quantity:   leg.Quantity,
		Time:       e.now,
	}

	if leg.Role == types.LegRoleStop || leg.Role == types.LegRoleTarget {
		req.OCOGroup = b.ID
	}

	return req
}

// submitLeg places a leg exactly once. A connectivity failure is resolved by
// querying the leg status, never by resubmitting.
func (e *Engine) submitLeg(b *bracket.BracketOrder, leg *bracket.OrderLeg) {
	req := e.legRequest(b, leg)
	e.inflight[leg.ID] = struct{}{}

	e.runner.Go(func(ctx context.Context) func() {
		handle, err := e.broker.SubmitLeg(ctx, req)
		if err == nil || !errors.HasCode(err, errors.ErrCodeConnectivity) {
			return func() { e.onSubmitResult(req.BracketID, req.LegID, handle, err) }
		}

		e.logger.Warn("Leg submission unconfirmed",
			zap.String("leg_id", req.LegID),
			zap.String("bracket_id", req.BracketID),
			zap.Error(err),
		)

		status, queryErr := e.queryLegStatus(ctx, req.LegID)

		return func() { e.onSubmitUnconfirmed(req.BracketID, req.LegID, status, queryErr) }
	})
}

func (e *Engine) onSubmitResult(bracketID, legID string, handle broker.LegHandle, err error) {
	b, leg, ok := e.lookup(bracketID, legID)
	if !ok {
		return
	}

	if err != nil {
		e.logger.Warn("Leg rejected by broker",
			zap.String("leg_id", legID),
			zap.String("bracket_id", bracketID),
			zap.Error(err),
		)
		e.legFailed(b, leg, types.ReasonBrokerRejected)

		return
	}

	e.legAcked(b, leg, handle.BrokerID)
}

func (e *Engine) onSubmitUnconfirmed(bracketID, legID string, status types.LegStatus, queryErr error) {
	b, leg, ok := e.lookup(bracketID, legID)
	if !ok {
		return
	}

	if queryErr != nil {
		if errors.HasCode(queryErr, errors.ErrCodeLegNotFound) {
			e.legFailed(b, leg, types.ReasonLegNotPlaced)

			return
		}

		e.logger.Error("Leg state unknown after retries",
			zap.String("leg_id", legID),
			zap.String("bracket_id", bracketID),
			zap.Error(queryErr),
		)
		e.legFailed(b, leg, types.ReasonRetriesExhausted)

		// the venue may still hold the leg; ask it to drop it
		handle := broker.LegHandle{LegID: legID}
		e.runner.Go(func(ctx context.Context) func() {
			err := e.broker.CancelLeg(ctx, handle)
			if err == nil || errors.HasCode(err, errors.ErrCodeLegNotFound) {
				return nil
			}

			return func() { e.onOrphanCancelFailed(bracketID, legID, err) }
		})

		return
	}

	switch status {
	case types.LegStatusPending, types.LegStatusWorking, types.LegStatusFilled:
		e.legAcked(b, leg, "")
	default:
		e.legFailed(b, leg, types.ReasonBrokerRejected)
	}
}

// onOrphanCancelFailed halts trading when a leg given up after retries could
// not be cancelled either: the venue may still hold it.
func (e *Engine) onOrphanCancelFailed(bracketID, legID string, err error) {
	e.logger.Error("Cancel of unconfirmed leg failed",
		zap.String("leg_id", legID),
		zap.String("bracket_id", bracketID),
		zap.Error(err),
	)
	e.governor.Halt(types.ReasonCancelUnconfirmed)
}

func (e *Engine) legAcked(b *bracket.BracketOrder, leg *bracket.OrderLeg, brokerID string) {
	delete(e.inflight, leg.ID)

	if brokerID != "" {
		leg.BrokerID = brokerID
	}

	// cancelled locally while the submission was in flight
	if leg.Status == types.LegStatusCancelled {
		e.sendCancel(b, leg)

		return
	}

	if leg.Status == types.LegStatusPending {
		leg.Status = types.LegStatusWorking
	}

	if leg.Role == types.LegRoleEntry && b.State == bracket.StateSubmitted && b.Closing == "" {
		if e.governor.KillSwitchEngaged() {
			e.closeBracket(b, bracket.StateCancelled, types.ReasonKillSwitchAtAck)

			return
		}

		e.transition(b, bracket.StateWorking, "")
	}

	if leg.CancelRequested && leg.Status == types.LegStatusWorking {
		e.sendCancel(b, leg)
	}
}

func (e *Engine) legFailed(b *bracket.BracketOrder, leg *bracket.OrderLeg, reason string) {
	delete(e.inflight, leg.ID)

	if leg.Status.IsTerminal() {
		e.settle(b)

		return
	}

	e.setLegStatus(b, leg, types.LegStatusRejected)

	switch leg.Role {
	case types.LegRoleEntry:
		if b.Closing == "" && leg.FilledQuantity == 0 {
			e.transition(b, bracket.StateRejected, reason)

			return
		}
	case types.LegRoleStop:
		e.logger.Error("Protective stop could not be placed",
			zap.String("bracket_id", b.ID),
			zap.String("reason", reason),
		)
		e.governor.EngageKillSwitch(types.ReasonStopPlacementFailed)
		e.closeBracket(b, bracket.StateClosed, types.ReasonStopPlacementFailed)

		return
	case types.LegRoleTarget:
		e.logger.Warn("Profit target could not be placed",
			zap.String("bracket_id", b.ID),
			zap.String("reason", reason),
		)
	case types.LegRoleExit:
		e.logger.Error("Exit could not be placed",
			zap.String("bracket_id", b.ID),
			zap.String("reason", reason),
			zap.Int("open_quantity", b.OpenQuantity()),
		)
		e.governor.Halt(types.ReasonExitFailed)

		return
	}

	e.settle(b)
}

// requestCancel asks for a live leg to be cancelled. A leg that was never sent
// is cancelled locally; a leg still awaiting its acknowledgement is cancelled
// when the acknowledgement arrives.
func (e *Engine) requestCancel(b *bracket.BracketOrder, leg *bracket.OrderLeg) {
	if !leg.Status.IsLive() || leg.CancelRequested {
		return
	}

	leg.CancelRequested = true

	if _, sent := e.inflight[leg.ID]; !sent && leg.Status == types.LegStatusPending {
		e.setLegStatus(b, leg, types.LegStatusCancelled)

		return
	}

	if leg.Status == types.LegStatusWorking {
		e.sendCancel(b, leg)
	}
}

func (e *Engine) sendCancel(b *bracket.BracketOrder, leg *bracket.OrderLeg) {
	handle := broker.LegHandle{LegID: leg.ID, BrokerID: leg.BrokerID}
	bracketID := b.ID

	e.runner.Go(func(ctx context.Context) func() {
		err := e.broker.CancelLeg(ctx, handle)
		if err == nil || errors.HasCode(err, errors.ErrCodeLegNotFound) {
			return func() { e.onCancelled(bracketID, handle.LegID) }
		}

		status, queryErr := e.queryLegStatus(ctx, handle.LegID)

		return func() { e.onCancelUnconfirmed(bracketID, handle.LegID, status, queryErr) }
	})
}

func (e *Engine) onCancelled(bracketID, legID string) {
	b, leg, ok := e.lookup(bracketID, legID)
	if !ok {
		return
	}

	if leg.Status.IsLive() {
		e.setLegStatus(b, leg, types.LegStatusCancelled)
	}

	e.settle(b)
}

func (e *Engine) onCancelUnconfirmed(bracketID, legID string, status types.LegStatus, queryErr error) {
	b, leg, ok := e.lookup(bracketID, legID)
	if !ok {
		return
	}

	switch {
	case queryErr != nil && errors.HasCode(queryErr, errors.ErrCodeLegNotFound):
		status = types.LegStatusCancelled
	case queryErr != nil:
		e.logger.Error("Cancel unconfirmed after retries",
			zap.String("leg_id", legID),
			zap.String("bracket_id", bracketID),
			zap.Error(queryErr),
		)
		e.governor.Halt(types.ReasonCancelUnconfirmed)

		return
	}

	switch status {
	case types.LegStatusCancelled, types.LegStatusRejected:
		if leg.Status.IsLive() {
			e.setLegStatus(b, leg, status)
		}
	case types.LegStatusFilled:
		// the fill is on its way through the fill stream
		return
	default:
		if !leg.Status.IsLive() {
			// a locally cancelled OCO sibling still working at the venue
			e.logger.Error("Cancelled leg still working at broker",
				zap.String("leg_id", legID),
				zap.String("bracket_id", bracketID),
			)
			e.governor.Halt(risk.ReasonReconciliation)

			return
		}

		e.logger.Error("Broker refused to cancel working leg",
			zap.String("leg_id", legID),
			zap.String("bracket_id", bracketID),
		)
		e.governor.Halt(types.ReasonCancelUnconfirmed)

		return
	}

	e.settle(b)
}

// setLegStatus moves a leg to a terminal non-fill status and returns any unused
// entry reservation to the governor.
func (e *Engine) setLegStatus(b *bracket.BracketOrder, leg *bracket.OrderLeg, status types.LegStatus) {
	wasLive := leg.Status.IsLive()
	leg.Status = status

	if wasLive && leg.Role == types.LegRoleEntry && leg.RemainingQuantity() > 0 {
		e.governor.ReleaseReservation(b.Instrument(), leg.RemainingQuantity())
	}
}
