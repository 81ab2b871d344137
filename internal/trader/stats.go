package trader

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TradeStats summarizes the round trips closed over a period.
type TradeStats struct {
	Date           string          `yaml:"date" json:"date"`
	Trades         int             `yaml:"trades" json:"trades"`
	Wins           int             `yaml:"wins" json:"wins"`
	Losses         int             `yaml:"losses" json:"losses"`
	WinRate        float64         `yaml:"win_rate" json:"win_rate"`
	GrossPnL       decimal.Decimal `yaml:"gross_pnl" json:"gross_pnl"`
	Commission     decimal.Decimal `yaml:"commission" json:"commission"`
	NetPnL         decimal.Decimal `yaml:"net_pnl" json:"net_pnl"`
	MaxProfit      decimal.Decimal `yaml:"max_profit" json:"max_profit"`
	MaxLoss        decimal.Decimal `yaml:"max_loss" json:"max_loss"`
	MaxDrawdown    decimal.Decimal `yaml:"max_drawdown" json:"max_drawdown"`
	AvgHoldSeconds int             `yaml:"avg_hold_seconds" json:"avg_hold_seconds"`
}

// Trade is one closed bracket.
type Trade struct {
	BracketID  string          `yaml:"bracket_id" json:"bracket_id"`
	Instrument string          `yaml:"instrument" json:"instrument"`
	Reason     string          `yaml:"reason" json:"reason"`
	Quantity   int             `yaml:"quantity" json:"quantity"`
	GrossPnL   decimal.Decimal `yaml:"gross_pnl" json:"gross_pnl"`
	Commission decimal.Decimal `yaml:"commission" json:"commission"`
	NetPnL     decimal.Decimal `yaml:"net_pnl" json:"net_pnl"`
	OpenedAt   time.Time       `yaml:"opened_at" json:"opened_at"`
	ClosedAt   time.Time       `yaml:"closed_at" json:"closed_at"`
}

type accumulator struct {
	trades     int
	wins       int
	losses     int
	gross      decimal.Decimal
	commission decimal.Decimal
	net        decimal.Decimal
	maxProfit  decimal.Decimal
	maxLoss    decimal.Decimal
	peak       decimal.Decimal
	drawdown   decimal.Decimal
	holdTotal  time.Duration
}

// ledger collects the fills of one bracket until it closes.
type ledger struct {
	instrument string
	position   int
	quantity   int
	cash       decimal.Decimal
	commission decimal.Decimal
	openedAt   time.Time
	lastFill   time.Time
}

// StatsTracker is a journal sink that turns fills and bracket transitions into
// per-trade results, daily and cumulative.
type StatsTracker struct {
	instruments map[string]types.InstrumentSpec
	ledgers     map[string]*ledger
	trades      []Trade
	currentDate string
	daily       *accumulator
	cumulative  *accumulator
	mu          sync.Mutex
	logger      *logger.Logger
}

var _ journal.Sink = (*StatsTracker)(nil)

// NewStatsTracker creates an empty tracker.
func NewStatsTracker(instruments map[string]types.InstrumentSpec, log *logger.Logger) *StatsTracker {
	return &StatsTracker{
		instruments: instruments,
		ledgers:     map[string]*ledger{},
		daily:       &accumulator{},
		cumulative:  &accumulator{},
		logger:      log.Named("stats"),
	}
}

// Record implements journal.Sink.
func (s *StatsTracker) Record(event types.JournalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case types.FillEvent:
		s.onFill(e)
	case types.OrderEvent:
		if bracket.State(e.State).IsTerminal() {
			s.onClosed(e)
		}
	}
}

// HandleDateBoundary resets the daily figures.
func (s *StatsTracker) HandleDateBoundary(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentDate == date {
		return
	}

	s.logger.Debug("Daily stats reset", zap.String("old_date", s.currentDate), zap.String("new_date", date))

	s.currentDate = date
	s.daily = &accumulator{}
}

// Daily returns the statistics for the current session date.
func (s *StatsTracker) Daily() TradeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.build(s.daily, s.currentDate)
}

// Cumulative returns the statistics since the tracker was created.
func (s *StatsTracker) Cumulative() TradeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.build(s.cumulative, s.currentDate)
}

// Trades returns every closed trade in closing order.
func (s *StatsTracker) Trades() []Trade {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Trade, len(s.trades))
	copy(out, s.trades)

	return out
}

// WriteStatsYAML writes the cumulative statistics to path.
func (s *StatsTracker) WriteStatsYAML(path string) error {
	stats := s.Cumulative()

	data, err := yaml.Marshal(stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to marshal stats", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create stats directory", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write stats", err)
	}

	return nil
}

func (s *StatsTracker) onFill(fill types.FillEvent) {
	l, ok := s.ledgers[fill.BracketID]
	if !ok {
		l = &ledger{instrument: fill.Instrument, openedAt: fill.Time}
		s.ledgers[fill.BracketID] = l
	}

	signed := fill.SignedQuantity()
	if fill.Role == types.LegRoleEntry {
		l.quantity += fill.Quantity
	}

	l.position += signed
	l.cash = l.cash.Sub(fill.Price.Mul(decimal.NewFromInt(int64(signed))))
	l.commission = l.commission.Add(fill.Commission)
	l.lastFill = fill.Time
}

func (s *StatsTracker) onClosed(event types.OrderEvent) {
	l, ok := s.ledgers[event.BracketID]
	if !ok {
		return
	}

	// An open remainder stays with the risk governor's halt handling.
	if l.position != 0 {
		s.logger.Warn("Bracket terminal with open position, not counted",
			zap.String("bracket_id", event.BracketID),
			zap.Int("position", l.position),
		)

		return
	}

	delete(s.ledgers, event.BracketID)

	multiplier := decimal.NewFromInt(1)
	if spec, ok := s.instruments[l.instrument]; ok {
		multiplier = spec.Multiplier()
	}

	gross := l.cash.Mul(multiplier)
	trade := Trade{
		BracketID:  event.BracketID,
		Instrument: l.instrument,
		Reason:     event.Reason,
		Quantity:   l.quantity,
		GrossPnL:   gross,
		Commission: l.commission,
		NetPnL:     gross.Sub(l.commission),
		OpenedAt:   l.openedAt,
		ClosedAt:   l.lastFill,
	}

	s.trades = append(s.trades, trade)
	s.daily.add(trade)
	s.cumulative.add(trade)

	s.logger.Debug("Trade closed",
		zap.String("bracket_id", trade.BracketID),
		zap.String("net_pnl", trade.NetPnL.String()),
		zap.String("reason", trade.Reason),
	)
}

func (a *accumulator) add(trade Trade) {
	a.trades++
	a.gross = a.gross.Add(trade.GrossPnL)
	a.commission = a.commission.Add(trade.Commission)
	a.net = a.net.Add(trade.NetPnL)
	a.holdTotal += trade.ClosedAt.Sub(trade.OpenedAt)

	switch {
	case trade.NetPnL.IsPositive():
		a.wins++
	case trade.NetPnL.IsNegative():
		a.losses++
	}

	a.maxProfit = decimal.Max(a.maxProfit, trade.NetPnL)
	a.maxLoss = decimal.Min(a.maxLoss, trade.NetPnL)
	a.peak = decimal.Max(a.peak, a.net)
	a.drawdown = decimal.Max(a.drawdown, a.peak.Sub(a.net))
}

func (s *StatsTracker) build(a *accumulator, date string) TradeStats {
	stats := TradeStats{
		Date:        date,
		Trades:      a.trades,
		Wins:        a.wins,
		Losses:      a.losses,
		GrossPnL:    a.gross,
		Commission:  a.commission,
		NetPnL:      a.net,
		MaxProfit:   a.maxProfit,
		MaxLoss:     a.maxLoss,
		MaxDrawdown: a.drawdown,
	}

	if a.trades > 0 {
		stats.WinRate = float64(a.wins) / float64(a.trades)
		stats.AvgHoldSeconds = int(a.holdTotal.Seconds()) / a.trades
	}

	return stats
}
