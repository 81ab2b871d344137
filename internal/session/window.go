package session

import (
	"time"
	// Session math must not depend on the host having zoneinfo installed.
	_ "time/tzdata"

	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

const (
	dateLayout    = "2006-01-02"
	minutesPerDay = 24 * 60
)

// Config describes the trading window in exchange local time.
type Config struct {
	Timezone    string         `yaml:"timezone" json:"timezone" validate:"required" jsonschema:"default=America/New_York"`
	RTHStart    string         `yaml:"rth_start" json:"rth_start" validate:"required" jsonschema:"pattern=^[0-2][0-9]:[0-5][0-9]$"`
	RTHEnd      string         `yaml:"rth_end" json:"rth_end" validate:"required" jsonschema:"pattern=^[0-2][0-9]:[0-5][0-9]$"`
	FlattenTime string         `yaml:"flatten_time" json:"flatten_time" validate:"required" jsonschema:"pattern=^[0-2][0-9]:[0-5][0-9]$"`
	TradingDays []time.Weekday `yaml:"trading_days" json:"trading_days" validate:"dive,gte=0,lte=6"`
}

// DefaultConfig is CME equity index regular hours with a 15:55 flatten.
func DefaultConfig() Config {
	return Config{
		Timezone:    "America/New_York",
		RTHStart:    "09:30",
		RTHEnd:      "16:00",
		FlattenTime: "15:55",
		TradingDays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
}

// Day is the concrete window for one trading date. It does not change once computed.
type Day struct {
	Date      string
	RTHStart  time.Time
	RTHEnd    time.Time
	FlattenAt time.Time
}

// Window answers trading-hours questions for any instant. It holds no clock of its
// own; every predicate takes the time to evaluate.
type Window struct {
	loc         *time.Location
	rthStart    clock
	rthEnd      clock
	flatten     clock
	tradingDays map[time.Weekday]struct{}
}

// New builds a Window from its configuration.
func New(cfg Config) (*Window, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidZone, err, "unknown timezone %q", cfg.Timezone)
	}

	start, err := parseClock(cfg.RTHStart)
	if err != nil {
		return nil, err
	}

	end, err := parseClock(cfg.RTHEnd)
	if err != nil {
		return nil, err
	}

	flatten, err := parseClock(cfg.FlattenTime)
	if err != nil {
		return nil, err
	}

	days := cfg.TradingDays
	if len(days) == 0 {
		days = DefaultConfig().TradingDays
	}

	w := &Window{
		loc:         loc,
		rthStart:    start,
		rthEnd:      end,
		flatten:     flatten,
		tradingDays: make(map[time.Weekday]struct{}, len(days)),
	}

	for _, d := range days {
		w.tradingDays[d] = struct{}{}
	}

	if !w.inRTH(flatten) {
		return nil, errors.Newf(errors.ErrCodeInvalidClock,
			"flatten time %s is outside the session %s-%s", cfg.FlattenTime, cfg.RTHStart, cfg.RTHEnd)
	}

	return w, nil
}

// Location is the exchange timezone.
func (w *Window) Location() *time.Location {
	return w.loc
}

// SessionDate is the exchange-local date on which t's session opened. An
// overnight session keeps the date of its open until rth_end of the next day.
func (w *Window) SessionDate(t time.Time) string {
	return w.sessionDay(t).Format(dateLayout)
}

// sessionDay is local midnight of the date t's session belongs to.
func (w *Window) sessionDay(t time.Time) time.Time {
	local := t.In(w.loc)
	y, m, d := local.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, w.loc)

	if w.overnight() && clockOf(local).before(w.rthEnd) {
		day = day.AddDate(0, 0, -1)
	}

	return day
}

// ForDay computes the window for the session t belongs to. Computing it per
// date keeps daylight saving transitions correct.
func (w *Window) ForDay(t time.Time) Day {
	session := w.sessionDay(t)
	y, m, d := session.Date()

	start := time.Date(y, m, d, w.rthStart.hour, w.rthStart.minute, 0, 0, w.loc)
	end := time.Date(y, m, d, w.rthEnd.hour, w.rthEnd.minute, 0, 0, w.loc)
	flatten := time.Date(y, m, d, w.flatten.hour, w.flatten.minute, 0, 0, w.loc)

	if w.overnight() {
		end = end.AddDate(0, 0, 1)
		if w.flatten.before(w.rthStart) {
			flatten = flatten.AddDate(0, 0, 1)
		}
	}

	return Day{
		Date:      session.Format(dateLayout),
		RTHStart:  start,
		RTHEnd:    end,
		FlattenAt: flatten,
	}
}

// IsTradingDay reports whether the session of t opened on a trading weekday.
func (w *Window) IsTradingDay(t time.Time) bool {
	_, ok := w.tradingDays[w.sessionDay(t).Weekday()]

	return ok
}

// IsRTH reports whether t falls in [rth_start, rth_end) on a trading day.
func (w *Window) IsRTH(t time.Time) bool {
	if !w.IsTradingDay(t) {
		return false
	}

	return w.inRTH(clockOf(t.In(w.loc)))
}

// ShouldFlatten reports whether positions must be closed at t.
func (w *Window) ShouldFlatten(t time.Time) bool {
	if !w.IsTradingDay(t) {
		return false
	}

	c := clockOf(t.In(w.loc))

	if w.overnight() {
		// measured from the open so the deadline can fall after midnight
		return w.sinceOpen(c) >= w.sinceOpen(w.flatten)
	}

	return !c.before(w.flatten)
}

// EntryAllowed reports whether new entries may be opened at t.
func (w *Window) EntryAllowed(t time.Time) bool {
	return w.IsRTH(t) && !w.ShouldFlatten(t)
}

// TimeUntilFlatten returns the duration until the flatten deadline of t's session
// date, or zero once it has passed.
func (w *Window) TimeUntilFlatten(t time.Time) time.Duration {
	remaining := w.ForDay(t).FlattenAt.Sub(t)
	if remaining < 0 {
		return 0
	}

	return remaining
}

func (w *Window) overnight() bool {
	return w.rthEnd.before(w.rthStart)
}

func (w *Window) sinceOpen(c clock) int {
	return (c.minutes() - w.rthStart.minutes() + minutesPerDay) % minutesPerDay
}

func (w *Window) inRTH(c clock) bool {
	if w.overnight() {
		return !c.before(w.rthStart) || c.before(w.rthEnd)
	}

	return !c.before(w.rthStart) && c.before(w.rthEnd)
}

type clock struct {
	hour   int
	minute int
}

func parseClock(value string) (clock, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return clock{}, errors.Wrapf(errors.ErrCodeInvalidClock, err, "invalid clock %q, expected HH:MM", value)
	}

	return clock{hour: parsed.Hour(), minute: parsed.Minute()}, nil
}

func clockOf(t time.Time) clock {
	return clock{hour: t.Hour(), minute: t.Minute()}
}

func (c clock) minutes() int {
	return c.hour*60 + c.minute
}

func (c clock) before(other clock) bool {
	return c.minutes() < other.minutes()
}
