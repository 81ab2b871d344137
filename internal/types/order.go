package types

// Side is the side of a single order leg.
type Side string

// Direction is the direction of a trade idea.
type Direction string

// OrderType is the execution type of a leg at the venue.
type OrderType string

// LegRole identifies which part of a bracket a leg is.
type LegRole string

// LegStatus is the venue-facing status of a single leg.
type LegStatus string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

const (
	LegRoleEntry  LegRole = "ENTRY"
	LegRoleStop   LegRole = "STOP"
	LegRoleTarget LegRole = "TARGET"
	// LegRoleExit is a market exit used by flatten and time stops.
	LegRoleExit LegRole = "EXIT"
)

const (
	LegStatusPending   LegStatus = "PENDING"
	LegStatusWorking   LegStatus = "WORKING"
	LegStatusFilled    LegStatus = "FILLED"
	LegStatusCancelled LegStatus = "CANCELLED"
	LegStatusRejected  LegStatus = "REJECTED"
)

// Close and cancel reasons recorded on brackets and journal events.
const (
	ReasonStopFilled          string = "stop_filled"
	ReasonTargetFilled        string = "target_filled"
	ReasonFlattenTime         string = "flatten_time"
	ReasonTimeStop            string = "time_stop"
	ReasonForceFlatten        string = "force_flatten"
	ReasonUserCancel          string = "user_cancel"
	ReasonBrokerRejected      string = "broker_rejected"
	ReasonRetriesExhausted    string = "connectivity_retries_exhausted"
	ReasonStopPlacementFailed string = "stop_placement_failed"
	ReasonKillSwitchAtAck     string = "kill_switch_at_ack"
	ReasonCancelUnconfirmed   string = "cancel_unconfirmed"
	ReasonLegNotPlaced        string = "leg_not_placed"
	ReasonExitFailed          string = "exit_failed"
	ReasonOrphanFill          string = "orphan_fill"
	ReasonInvalidFill         string = "invalid_fill"
	ReasonOCOViolation        string = "oco_violation"
	ReasonOutsideSession      string = "outside_session"
	ReasonInvalidSignal       string = "invalid_signal"
)

// EntrySide returns the side used to open a position in this direction.
func (d Direction) EntrySide() Side {
	if d == DirectionShort {
		return SideSell
	}

	return SideBuy
}

// ExitSide returns the side used to close a position in this direction.
func (d Direction) ExitSide() Side {
	if d == DirectionShort {
		return SideBuy
	}

	return SideSell
}

// Sign is +1 for long and -1 for short.
func (d Direction) Sign() int {
	if d == DirectionShort {
		return -1
	}

	return 1
}

// Sign is +1 for buys and -1 for sells.
func (s Side) Sign() int {
	if s == SideSell {
		return -1
	}

	return 1
}

// IsTerminal reports whether no further transitions are possible for the leg.
func (s LegStatus) IsTerminal() bool {
	return s == LegStatusFilled || s == LegStatusCancelled || s == LegStatusRejected
}

// IsLive reports whether the leg can still fill at the venue.
func (s LegStatus) IsLive() bool {
	return s == LegStatusPending || s == LegStatusWorking
}

// Priority orders fills that arrive in the same batch. Lower runs first. A stop
// always runs before a target of the same bracket.
func (r LegRole) Priority() int {
	switch r {
	case LegRoleEntry:
		return 0
	case LegRoleStop:
		return 1
	case LegRoleExit:
		return 2
	case LegRoleTarget:
		return 3
	default:
		return 4
	}
}
