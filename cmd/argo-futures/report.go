package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/shopspring/decimal"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HintStyle for secondary text.
	HintStyle = lipgloss.NewStyle().Faint(true)

	// AcceptStyle for accepted signals.
	AcceptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// RejectStyle for rejected signals.
	RejectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	// WarnStyle for a session that ended with the kill switch engaged or brackets open.
	WarnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))

	tableBorder = lipgloss.NewStyle().Faint(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers(headers...)
}

// formatPnL marks a profit or loss with an arrow.
func formatPnL(value decimal.Decimal) string {
	text := value.StringFixed(2)

	switch value.Sign() {
	case 1:
		return text + " ▲"
	case -1:
		return text + " ▼"
	default:
		return text
	}
}

func statsRow(stats trader.TradeStats) []string {
	return []string{
		stats.Date,
		strconv.Itoa(stats.Trades),
		fmt.Sprintf("%d/%d", stats.Wins, stats.Losses),
		fmt.Sprintf("%.1f%%", stats.WinRate*100),
		stats.Commission.StringFixed(2),
		formatPnL(stats.NetPnL),
		stats.MaxDrawdown.StringFixed(2),
	}
}

func renderBacktestResult(result backtest.Result) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Backtest summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("bars %d  signals %d  submitted %d  strategies %v\n",
		result.Bars, result.Signals, result.Submitted, result.Strategies))

	sessions := newTable("session", "trades", "w/l", "win rate", "commission", "net pnl", "max dd")
	for _, stats := range result.Sessions {
		sessions.Row(statsRow(stats)...)
	}

	total := statsRow(result.Summary)
	total[0] = "total"
	sessions.Row(total...)

	b.WriteString(sessions.String())
	b.WriteString("\n")

	if len(result.Rejections) > 0 {
		reasons := make([]string, 0, len(result.Rejections))
		for reason := range result.Rejections {
			reasons = append(reasons, reason)
		}

		sort.Strings(reasons)

		rejections := newTable("rejection", "count")
		for _, reason := range reasons {
			rejections.Row(reason, strconv.Itoa(result.Rejections[reason]))
		}

		b.WriteString(rejections.String())
		b.WriteString("\n")
	}

	if result.KillSwitch {
		b.WriteString(WarnStyle.Render("kill switch engaged: " + result.Risk.KillSwitchReason))
		b.WriteString("\n")
	}

	if result.OpenBrackets > 0 {
		b.WriteString(WarnStyle.Render(fmt.Sprintf("%d bracket(s) still open at the end of the data", result.OpenBrackets)))
		b.WriteString("\n")
	}

	return b.String()
}

func renderSnapshot(snapshot trader.Snapshot) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Paper session " + snapshot.SessionDate))
	b.WriteString("\n")

	stats := newTable("period", "trades", "w/l", "win rate", "commission", "net pnl", "max dd")

	daily := statsRow(snapshot.Daily)
	daily[0] = "today"
	stats.Row(daily...)

	cumulative := statsRow(snapshot.Cumulative)
	cumulative[0] = "total"
	stats.Row(cumulative...)

	b.WriteString(stats.String())
	b.WriteString("\n")

	risk := snapshot.Risk
	b.WriteString(fmt.Sprintf("realized %s  unrealized %s  drawdown %s  trades today %d\n",
		risk.DailyRealizedPnL.StringFixed(2), risk.DailyUnrealizedPnL.StringFixed(2),
		risk.CurrentDrawdown.StringFixed(2), risk.TradeCountToday))

	if risk.KillSwitchEngaged {
		b.WriteString(WarnStyle.Render("kill switch engaged: " + risk.KillSwitchReason))
		b.WriteString("\n")
	}

	if len(snapshot.OpenBrackets) > 0 {
		open := newTable("bracket", "instrument", "direction", "state")
		for i := range snapshot.OpenBrackets {
			order := &snapshot.OpenBrackets[i]
			open.Row(order.ID, order.Instrument(), string(order.Signal.Direction), string(order.State))
		}

		b.WriteString(open.String())
		b.WriteString("\n")
	}

	return b.String()
}

func renderConfigSummary(cfg *config.Config) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Configuration OK"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("session %s %s-%s, flatten at %s\n",
		cfg.Session.Timezone, cfg.Session.RTHStart, cfg.Session.RTHEnd, cfg.Session.FlattenTime))

	limits := cfg.Limits()
	b.WriteString(fmt.Sprintf("daily loss %s  max drawdown %s  max risk/trade %s  max trades %d\n",
		limits.DailyLossLimit.StringFixed(2), limits.MaxDrawdown.StringFixed(2),
		limits.MaxRiskPerTrade.StringFixed(2), limits.MaxTradesPerDay))

	strategies := newTable("strategy", "instrument", "direction", "stop ticks", "target ticks")
	for _, s := range cfg.Strategies {
		direction := string(s.Direction)
		if direction == "" {
			direction = "both"
		}

		strategies.Row(string(s.ID), s.Instrument, direction, strconv.Itoa(s.StopTicks), strconv.Itoa(s.TargetTicks))
	}

	b.WriteString(strategies.String())
	b.WriteString("\n")

	return b.String()
}
