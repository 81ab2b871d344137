package execution

import (
	"cmp"
	"slices"

	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// OnFill applies a single broker fill.
func (e *Engine) OnFill(fill types.FillEvent) {
	e.OnFills([]types.FillEvent{fill})
}

// OnFills applies fills that arrived in the same processing step. Stops are
// applied before targets so a simultaneous cross always resolves to the stop,
// whatever order the broker reported them in.
func (e *Engine) OnFills(fills []types.FillEvent) {
	ordered := slices.Clone(fills)
	slices.SortStableFunc(ordered, func(a, b types.FillEvent) int {
		return cmp.Compare(a.Role.Priority(), b.Role.Priority())
	})

	for _, fill := range ordered {
		e.applyFill(fill)
	}
}

func (e *Engine) applyFill(fill types.FillEvent) {
	if _, seen := e.fills[fill.FillID]; seen {
		return
	}

	e.fills[fill.FillID] = struct{}{}
	e.touch(fill.Time)
	e.journal.Record(fill)

	if fill.Quantity <= 0 {
		e.logger.Error("Fill without quantity",
			zap.String("fill_id", fill.FillID),
			zap.String("leg_id", fill.LegID),
			zap.Int("quantity", fill.Quantity),
		)
		e.governor.Halt(types.ReasonInvalidFill)

		return
	}

	result := e.governor.OnFill(fill)
	defer func() {
		if result.Breached {
			e.governor.ForceFlatten(result.Reason)
		}
	}()

	b, leg, ok := e.lookup(e.legIndex[fill.LegID], fill.LegID)
	if !ok {
		e.logger.Error("Fill for unknown leg",
			zap.String("fill_id", fill.FillID),
			zap.String("leg_id", fill.LegID),
			zap.String("instrument", fill.Instrument),
		)
		e.governor.Halt(types.ReasonOrphanFill)

		return
	}

	if !leg.Status.IsLive() {
		e.logger.Error("Fill for leg that is no longer live",
			zap.String("fill_id", fill.FillID),
			zap.String("leg_id", fill.LegID),
			zap.String("bracket_id", b.ID),
			zap.String("leg_status", string(leg.Status)),
		)
		e.governor.Halt(risk.ReasonReconciliation)

		return
	}

	if sibling := b.Sibling(leg); sibling != nil && sibling.Status == types.LegStatusFilled {
		e.logger.Error("Both protective legs filled",
			zap.String("bracket_id", b.ID),
			zap.String("fill_id", fill.FillID),
		)
		e.governor.Halt(types.ReasonOCOViolation)

		return
	}

	leg.ApplyFill(fill.Quantity, fill.Price)
	delete(e.inflight, leg.ID)

	e.logger.Debug("Leg fill applied",
		zap.String("bracket_id", b.ID),
		zap.String("leg_id", leg.ID),
		zap.String("role", string(leg.Role)),
		zap.String("price", fill.Price.String()),
		zap.Int("quantity", fill.Quantity),
	)

	switch leg.Role {
	case types.LegRoleEntry:
		e.onEntryFill(b, leg)
	case types.LegRoleStop, types.LegRoleTarget:
		e.onProtectiveFill(b, leg)
	}

	e.settle(b)
}

func (e *Engine) onEntryFill(b *bracket.BracketOrder, leg *bracket.OrderLeg) {
	if b.State == bracket.StateSubmitted {
		// filled before the acknowledgement: a bracket that is closing or
		// blocked by the kill switch never becomes WORKING
		if b.Closing != "" || e.governor.KillSwitchEngaged() {
			if leg.Status == types.LegStatusFilled {
				b.EntryFilledAt = optional.Some(e.now)
			}

			e.closeBracket(b, bracket.StateCancelled, types.ReasonKillSwitchAtAck)

			return
		}

		e.transition(b, bracket.StateWorking, "")
	}

	if leg.Status != types.LegStatusFilled {
		if b.State == bracket.StateWorking {
			e.transition(b, bracket.StatePartiallyFilled, "")
		}

		return
	}

	b.EntryFilledAt = optional.Some(e.now)
	e.transition(b, bracket.StateFilled, "")

	if b.Closing != "" {
		return
	}

	// stop first so the position is protected before the target is worked
	if b.Stop != nil {
		e.submitLeg(b, b.Stop)
	}

	if b.Target != nil && b.Closing == "" {
		e.submitLeg(b, b.Target)
	}
}

// onProtectiveFill closes the bracket when its stop or target completes. The
// sibling is marked cancelled in the same step so both legs are never live
// together after one fills.
func (e *Engine) onProtectiveFill(b *bracket.BracketOrder, leg *bracket.OrderLeg) {
	if leg.Status != types.LegStatusFilled {
		return
	}

	if sibling := b.Sibling(leg); sibling != nil && sibling.Status.IsLive() {
		_, inflight := e.inflight[sibling.ID]
		sent := sibling.Status == types.LegStatusWorking

		sibling.CancelRequested = true
		e.setLegStatus(b, sibling, types.LegStatusCancelled)

		if sent && !inflight {
			e.sendCancel(b, sibling)
		}
	}

	if b.Closing == "" {
		reason := types.ReasonStopFilled
		if leg.Role == types.LegRoleTarget {
			reason = types.ReasonTargetFilled
		}

		b.Closing = bracket.StateClosed
		b.ClosingReason = reason
	}
}

// closeBracket starts closing a bracket: every live leg is cancelled and, once
// all cancels are confirmed, any open position is exited at market. The bracket
// reaches target when nothing is live and the position is flat.
func (e *Engine) closeBracket(b *bracket.BracketOrder, target bracket.State, reason string) {
	if b.State.IsTerminal() || b.Closing != "" {
		return
	}

	b.Closing = target
	b.ClosingReason = reason

	e.logger.Info("Closing bracket",
		zap.String("bracket_id", b.ID),
		zap.String("state", string(b.State)),
		zap.String("target", string(target)),
		zap.String("reason", reason),
		zap.Int("open_quantity", b.OpenQuantity()),
	)

	for _, leg := range b.Legs() {
		e.requestCancel(b, leg)
	}

	e.settle(b)
}

// settle finishes a closing bracket once no leg is live. It places the market
// exit for any remaining position first.
func (e *Engine) settle(b *bracket.BracketOrder) {
	if b.State.IsTerminal() || b.Closing == "" {
		return
	}

	if len(b.LiveLegs()) > 0 {
		return
	}

	open := b.OpenQuantity()

	switch {
	case open > 0 && b.Exit == nil:
		exit := b.AddExit(open, e.marks[b.Instrument()])
		e.legIndex[exit.ID] = b.ID
		e.submitLeg(b, exit)

		return
	case open != 0:
		e.logger.Error("Bracket position not flat after exit",
			zap.String("bracket_id", b.ID),
			zap.Int("open_quantity", open),
		)
		e.governor.Halt(risk.ReasonReconciliation)

		return
	}

	target := b.Closing
	if target == bracket.StateClosed && !bracket.CanTransition(b.State, bracket.StateClosed) {
		target = bracket.StateCancelled
	}

	e.transition(b, target, b.ClosingReason)
}
