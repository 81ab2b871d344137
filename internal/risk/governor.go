package risk

import (
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Flattener cancels every open order and closes every position.
type Flattener interface {
	FlattenAll(reason string)
}

// Decision is the result of a pre-trade check.
type Decision struct {
	Approved bool
	Reason   string
	Message  string
	code     errors.ErrorCode
	orderID  string
}

// Err converts a rejection into a RejectionError. It returns nil for approvals.
func (d Decision) Err() error {
	if d.Approved {
		return nil
	}

	return errors.NewRejectionError(d.code, d.orderID, d.Reason, d.Message)
}

// FillResult reports whether post-fill accounting found a limit breach that
// requires a flatten.
type FillResult struct {
	Breached bool
	Reason   string
}

type position struct {
	qty      int
	avgPrice decimal.Decimal
}

// Governor is the only writer of RiskState. Every proposed bracket passes
// CheckOrder and every fill passes OnFill. It is not safe for concurrent use;
// callers serialize access through the event loop.
type Governor struct {
	limits      Limits
	instruments map[string]types.InstrumentSpec
	state       types.RiskState
	positions   map[string]*position
	marks       map[string]decimal.Decimal
	reserved    map[string]int
	counted     map[string]struct{}
	flattener   Flattener
	flattened   bool
	lastTime    time.Time
	journal     journal.Sink
	logger      *logger.Logger
}

// NewGovernor creates a governor for the given session date.
func NewGovernor(limits Limits, instruments map[string]types.InstrumentSpec, sink journal.Sink, log *logger.Logger) *Governor {
	if sink == nil {
		sink = journal.NopSink{}
	}

	g := &Governor{
		limits:      limits,
		instruments: instruments,
		state:       types.NewRiskState(""),
		positions:   map[string]*position{},
		marks:       map[string]decimal.Decimal{},
		reserved:    map[string]int{},
		counted:     map[string]struct{}{},
		journal:     sink,
		logger:      log.Named("risk"),
	}

	if limits.KillSwitchAtStart {
		g.state.KillSwitchEngaged = true
		g.state.KillSwitchReason = ReasonConfigured
	}

	return g
}

// SetFlattener registers the component that executes ForceFlatten.
func (g *Governor) SetFlattener(f Flattener) {
	g.flattener = f
}

// Snapshot returns a copy of the current risk state.
func (g *Governor) Snapshot() types.RiskState {
	return g.state.Clone()
}

// KillSwitchEngaged reports whether new submissions are blocked.
func (g *Governor) KillSwitchEngaged() bool {
	return g.state.KillSwitchEngaged
}

// Limits returns the configured limits.
func (g *Governor) Limits() Limits {
	return g.limits
}

// Instrument returns the contract spec for a symbol.
func (g *Governor) Instrument(symbol string) (types.InstrumentSpec, bool) {
	spec, ok := g.instruments[symbol]

	return spec, ok
}

// Reserved returns the contracts approved but not yet filled for an instrument.
func (g *Governor) Reserved(instrument string) int {
	return g.reserved[instrument]
}

// CheckOrder runs the pre-trade checks in fixed order. The first failure wins.
// An approval reserves the bracket quantity against the instrument cap until the
// entry fills or is released.
func (g *Governor) CheckOrder(proposed *bracket.BracketOrder) Decision {
	g.touch(proposed.CreatedAt)

	decision := g.evaluate(proposed)
	decision.orderID = proposed.ID

	if !decision.Approved {
		g.logger.Warn("Order rejected",
			zap.String("bracket_id", proposed.ID),
			zap.String("instrument", proposed.Instrument()),
			zap.String("reason", decision.Reason),
			zap.String("message", decision.Message),
		)
		g.emit(types.RiskEventReject, proposed.ID, decision.Reason)

		return decision
	}

	g.reserved[proposed.Instrument()] += proposed.Quantity

	return decision
}

func (g *Governor) evaluate(proposed *bracket.BracketOrder) Decision {
	if g.state.KillSwitchEngaged {
		switch {
		case g.state.Halted:
			return reject(errors.ErrCodeReconciliationMismatch, ReasonKillSwitch, "trading halted: "+g.state.KillSwitchReason)
		case g.state.KillSwitchReason == ReasonDailyLossLimit || g.state.KillSwitchReason == ReasonMaxDrawdown:
			// an automatic kill keeps reporting the limit that caused it
			return reject(errors.ErrCodeRiskRejection, g.state.KillSwitchReason, "kill switch engaged by "+g.state.KillSwitchReason)
		default:
			return reject(errors.ErrCodeKillSwitchEngaged, ReasonKillSwitch, "kill switch engaged: "+g.state.KillSwitchReason)
		}
	}

	if g.dailyLossBreached() {
		g.engage(ReasonDailyLossLimit, proposed.ID)

		return reject(errors.ErrCodeRiskRejection, ReasonDailyLossLimit,
			"daily realized pnl "+g.state.DailyRealizedPnL.StringFixed(2)+" at or below -"+g.limits.DailyLossLimit.StringFixed(2))
	}

	if g.drawdownBreached() {
		g.engage(ReasonMaxDrawdown, proposed.ID)

		return reject(errors.ErrCodeRiskRejection, ReasonMaxDrawdown,
			"drawdown "+g.state.CurrentDrawdown.StringFixed(2)+" at or above "+g.limits.MaxDrawdown.StringFixed(2))
	}

	if g.limits.MaxTradesPerDay > 0 && g.state.TradeCountToday >= g.limits.MaxTradesPerDay {
		return reject(errors.ErrCodeRiskRejection, ReasonMaxTrades, "daily trade count reached")
	}

	spec, ok := g.instruments[proposed.Instrument()]
	if !ok {
		return reject(errors.ErrCodeRiskRejection, ReasonUnknownInstrument, "no contract spec for "+proposed.Instrument())
	}

	projected := abs(g.state.OpenPositionQty[proposed.Instrument()]) + g.reserved[proposed.Instrument()] + proposed.Quantity
	if projected > spec.MaxContracts {
		return reject(errors.ErrCodeRiskRejection, ReasonPositionCap,
			fmt.Sprintf("%d contracts would exceed cap of %d on %s", projected, spec.MaxContracts, proposed.Instrument()))
	}

	if !proposed.HasStop() {
		return reject(errors.ErrCodeRiskRejection, ReasonMissingStop, "order has no stop leg")
	}

	if g.limits.MaxRiskPerTrade.IsPositive() {
		risk := spec.RiskUSD(proposed.Signal.EntryPrice, proposed.Stop.RequestedPrice, proposed.Quantity)
		if risk.GreaterThan(g.limits.MaxRiskPerTrade) {
			return reject(errors.ErrCodeRiskRejection, ReasonPerTradeRisk,
				"trade risk "+risk.StringFixed(2)+" exceeds "+g.limits.MaxRiskPerTrade.StringFixed(2))
		}
	}

	return Decision{Approved: true}
}

func reject(code errors.ErrorCode, reason, message string) Decision {
	return Decision{Approved: false, Reason: reason, Message: message, code: code}
}

// ReleaseReservation returns unfilled entry quantity when an approved entry is
// cancelled or rejected at the venue.
func (g *Governor) ReleaseReservation(instrument string, qty int) {
	g.reserved[instrument] -= qty
	if g.reserved[instrument] <= 0 {
		delete(g.reserved, instrument)
	}
}

// OnFill updates positions, realized PnL, commission, trade count and the
// drawdown high-water mark. A breach engages the kill switch immediately and
// is reported so the caller can flatten once its own bookkeeping is done.
func (g *Governor) OnFill(fill types.FillEvent) FillResult {
	g.touch(fill.Time)

	spec, ok := g.instruments[fill.Instrument]
	if !ok {
		g.logger.Error("Fill for instrument without contract spec",
			zap.String("instrument", fill.Instrument),
			zap.String("fill_id", fill.FillID),
		)
	}

	pos := g.positions[fill.Instrument]
	if pos == nil {
		pos = &position{}
		g.positions[fill.Instrument] = pos
	}

	signed := fill.SignedQuantity()
	realized := decimal.Zero

	switch {
	case signed == 0:
	case pos.qty == 0 || sign(pos.qty) == sign(signed):
		newQty := pos.qty + signed
		pos.avgPrice = pos.avgPrice.Mul(decimal.NewFromInt(int64(abs(pos.qty)))).
			Add(fill.Price.Mul(decimal.NewFromInt(int64(abs(signed))))).
			Div(decimal.NewFromInt(int64(abs(newQty))))
		pos.qty = newQty
	default:
		closing := min(abs(signed), abs(pos.qty))
		realized = spec.PnL(pos.avgPrice, fill.Price, closing*sign(pos.qty))

		newQty := pos.qty + signed

		switch {
		case newQty == 0:
			pos.avgPrice = decimal.Zero
		case sign(newQty) != sign(pos.qty):
			pos.avgPrice = fill.Price
		}

		pos.qty = newQty
	}

	g.state.DailyRealizedPnL = g.state.DailyRealizedPnL.Add(realized).Sub(fill.Commission)
	g.state.DailyCommission = g.state.DailyCommission.Add(fill.Commission)

	if pos.qty == 0 {
		delete(g.state.OpenPositionQty, fill.Instrument)
	} else {
		g.state.OpenPositionQty[fill.Instrument] = pos.qty
	}

	g.marks[fill.Instrument] = fill.Price

	if fill.Role == types.LegRoleEntry {
		g.ReleaseReservation(fill.Instrument, fill.Quantity)

		if _, seen := g.counted[fill.BracketID]; !seen {
			g.counted[fill.BracketID] = struct{}{}
			g.state.TradeCountToday++
		}
	}

	g.revalue()

	return g.checkBreach(fill.BracketID)
}

// MarkToMarket revalues open positions at the latest price.
func (g *Governor) MarkToMarket(instrument string, price decimal.Decimal, at time.Time) FillResult {
	g.touch(at)
	g.marks[instrument] = price
	g.revalue()

	return g.checkBreach("")
}

func (g *Governor) revalue() {
	unrealized := decimal.Zero

	for instrument, pos := range g.positions {
		if pos.qty == 0 {
			continue
		}

		mark, ok := g.marks[instrument]
		if !ok {
			continue
		}

		unrealized = unrealized.Add(g.instruments[instrument].PnL(pos.avgPrice, mark, pos.qty))
	}

	g.state.DailyUnrealizedPnL = unrealized

	equity := g.state.Equity()
	if equity.GreaterThan(g.state.HighWaterMark) {
		g.state.HighWaterMark = equity
	}

	g.state.CurrentDrawdown = g.state.HighWaterMark.Sub(equity)
	if g.state.CurrentDrawdown.GreaterThan(g.state.MaxDrawdownToday) {
		g.state.MaxDrawdownToday = g.state.CurrentDrawdown
	}
}

func (g *Governor) checkBreach(orderID string) FillResult {
	reason := ""

	switch {
	case g.dailyLossBreached():
		reason = ReasonDailyLossLimit
	case g.drawdownBreached():
		reason = ReasonMaxDrawdown
	default:
		return FillResult{}
	}

	if !g.state.KillSwitchEngaged {
		g.engage(reason, orderID)
	}

	if g.flattened {
		return FillResult{}
	}

	return FillResult{Breached: true, Reason: reason}
}

func (g *Governor) dailyLossBreached() bool {
	if !g.limits.DailyLossLimit.IsPositive() {
		return false
	}

	return g.state.DailyRealizedPnL.LessThanOrEqual(g.limits.DailyLossLimit.Neg())
}

func (g *Governor) drawdownBreached() bool {
	if !g.limits.MaxDrawdown.IsPositive() {
		return false
	}

	return g.state.CurrentDrawdown.GreaterThanOrEqual(g.limits.MaxDrawdown)
}

// ForceFlatten engages the kill switch synchronously and asks the flattener to
// cancel every open leg and close every position. Completion is asynchronous.
func (g *Governor) ForceFlatten(reason string) {
	if !g.state.KillSwitchEngaged {
		g.engage(reason, "")
	}

	g.flattened = true

	g.logger.Warn("Force flatten", zap.String("reason", reason))
	g.emit(types.RiskEventFlatten, "", reason)

	if g.flattener != nil {
		g.flattener.FlattenAll(reason)
	}
}

// EngageKillSwitch blocks all new submissions until an explicit reset.
func (g *Governor) EngageKillSwitch(reason string) {
	if g.state.KillSwitchEngaged {
		return
	}

	g.engage(reason, "")
}

func (g *Governor) engage(reason, orderID string) {
	g.state.KillSwitchEngaged = true
	g.state.KillSwitchReason = reason

	g.logger.Warn("Kill switch engaged",
		zap.String("reason", reason),
		zap.String("daily_realized_pnl", g.state.DailyRealizedPnL.String()),
		zap.String("current_drawdown", g.state.CurrentDrawdown.String()),
	)
	g.emit(types.RiskEventKillSwitch, orderID, reason)
}

// ResetKillSwitch releases a kill switch that was not caused by a
// reconciliation halt.
func (g *Governor) ResetKillSwitch() error {
	if g.state.Halted {
		return errors.New(errors.ErrCodeReconciliationMismatch, "reconciliation halt must be cleared first")
	}

	g.state.KillSwitchEngaged = false
	g.state.KillSwitchReason = ""
	g.flattened = false

	g.logger.Info("Kill switch reset")
	g.emit(types.RiskEventReset, "", ReasonManual)

	return nil
}

// Reconcile compares broker-reported net positions with the ledger. Any
// difference halts new submissions until ClearHalt is called.
func (g *Governor) Reconcile(brokerPositions map[string]int, at time.Time) error {
	g.touch(at)

	instruments := map[string]struct{}{}
	for instrument := range brokerPositions {
		instruments[instrument] = struct{}{}
	}

	for instrument := range g.state.OpenPositionQty {
		instruments[instrument] = struct{}{}
	}

	for instrument := range instruments {
		expected := g.state.OpenPositionQty[instrument]
		actual := brokerPositions[instrument]

		if expected != actual {
			g.logger.Error("Position reconciliation mismatch",
				zap.String("instrument", instrument),
				zap.Int("expected", expected),
				zap.Int("actual", actual),
			)
			g.Halt(ReasonReconciliation)

			return errors.Newf(errors.ErrCodeReconciliationMismatch,
				"position mismatch on %s: ledger %d, broker %d", instrument, expected, actual)
		}
	}

	return nil
}

// Halt stops new submissions after an inconsistency. Only ClearHalt undoes it.
func (g *Governor) Halt(reason string) {
	if g.state.Halted {
		return
	}

	g.state.Halted = true
	g.state.KillSwitchEngaged = true
	g.state.KillSwitchReason = reason

	g.logger.Error("Trading halted", zap.String("reason", reason))
	g.emit(types.RiskEventHalt, "", reason)
}

// ClearHalt acknowledges a reconciliation halt. The kill switch stays engaged
// until ResetKillSwitch or the next session reset.
func (g *Governor) ClearHalt() {
	g.state.Halted = false
}

// ResetSession starts a new trading session. Daily counters restart from zero;
// open positions carry over. The kill switch is released unless a halt is
// active or the limits start every session engaged.
func (g *Governor) ResetSession(sessionDate string) {
	halted := g.state.Halted
	killReason := g.state.KillSwitchReason

	state := types.NewRiskState(sessionDate)
	state.Halted = halted

	for instrument, pos := range g.positions {
		if pos.qty != 0 {
			state.OpenPositionQty[instrument] = pos.qty
		}
	}

	switch {
	case halted:
		state.KillSwitchEngaged = true
		state.KillSwitchReason = killReason
	case g.limits.KillSwitchAtStart:
		state.KillSwitchEngaged = true
		state.KillSwitchReason = ReasonConfigured
	}

	g.state = state
	g.counted = map[string]struct{}{}
	g.flattened = false
	g.revalue()

	g.logger.Info("Risk session reset", zap.String("session_date", sessionDate))
	g.emit(types.RiskEventReset, "", "session_start")
}

func (g *Governor) emit(kind types.RiskEventKind, orderID, reason string) {
	g.journal.Record(types.RiskEvent{
		Time:    g.lastTime,
		Type:    kind,
		OrderID: orderID,
		Reason:  reason,
		State:   g.state.Clone(),
	})
}

func (g *Governor) touch(at time.Time) {
	if at.After(g.lastTime) {
		g.lastTime = at
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
