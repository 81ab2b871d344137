package journal

import (
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a LogSink on a child logger named "journal".
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.Named("journal")}
}

func (l *LogSink) Record(event types.JournalEvent) {
	fields := []zap.Field{
		zap.String("kind", string(event.Kind())),
		zap.Time("time", event.OccurredAt()),
	}

	switch e := event.(type) {
	case types.DecisionEvent:
		fields = append(fields,
			zap.String("strategy_id", e.StrategyID),
			zap.String("instrument", e.Instrument),
			zap.Bool("accepted", e.Accepted),
			zap.String("bracket_id", e.BracketID),
			zap.String("reason", e.Reason),
		)
	case types.OrderEvent:
		fields = append(fields,
			zap.String("bracket_id", e.BracketID),
			zap.String("instrument", e.Instrument),
			zap.String("state", e.State),
			zap.String("reason", e.Reason),
		)
	case types.FillEvent:
		fields = append(fields,
			zap.String("bracket_id", e.BracketID),
			zap.String("leg_id", e.LegID),
			zap.String("role", string(e.Role)),
			zap.String("side", string(e.Side)),
			zap.Int("quantity", e.Quantity),
			zap.String("price", e.Price.String()),
			zap.String("commission", e.Commission.String()),
		)
	case types.RiskEvent:
		fields = append(fields,
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.String("reason", e.Reason),
			zap.String("daily_realized_pnl", e.State.DailyRealizedPnL.String()),
			zap.String("current_drawdown", e.State.CurrentDrawdown.String()),
			zap.Bool("kill_switch_engaged", e.State.KillSwitchEngaged),
		)
	}

	l.logger.Info("journal event", fields...)
}
