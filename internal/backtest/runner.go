// Package backtest replays historical bars through the simulated matching
// engine and the same trader that runs live sessions.
package backtest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/execution"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	ResultsFile = "results.yaml"
	StatsFile   = "stats.yaml"
)

// OnBacktestStartCallback is called once before the first bar with the number of bars to replay.
type OnBacktestStartCallback func(total int) error

// OnBacktestEndCallback is called once after the run with the error that ended it, if any.
type OnBacktestEndCallback func(err error)

// OnProcessDataCallback is called after every replayed bar.
type OnProcessDataCallback func(current int, total int) error

// LifecycleCallbacks are optional hooks into a run. Nil means no callback is invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnProcessData   *OnProcessDataCallback
	OnSignal        *trader.OnSignalCallback
}

// Config holds everything a run needs besides the bars.
type Config struct {
	Execution   execution.Config
	Limits      risk.Limits
	Instruments map[string]types.InstrumentSpec
	Session     session.Config
	Matching    matching.Config
	Strategies  []strategy.Config
	StartTime   optional.Option[time.Time]
	EndTime     optional.Option[time.Time]
	// ResultsFolder receives results.yaml and stats.yaml. Empty skips writing.
	ResultsFolder string
}

// Result summarizes a run.
type Result struct {
	Bars         int                 `yaml:"bars" json:"bars"`
	Signals      int                 `yaml:"signals" json:"signals"`
	Submitted    int                 `yaml:"submitted" json:"submitted"`
	Rejections   map[string]int      `yaml:"rejections" json:"rejections"`
	OpenBrackets int                 `yaml:"open_brackets" json:"open_brackets"`
	KillSwitch   bool                `yaml:"kill_switch" json:"kill_switch"`
	Summary      trader.TradeStats   `yaml:"summary" json:"summary"`
	Sessions     []trader.TradeStats `yaml:"sessions" json:"sessions"`
	Trades       []trader.Trade      `yaml:"trades" json:"trades"`
	Strategies   []strategy.ID       `yaml:"strategies" json:"strategies"`
	StartedAt    time.Time           `yaml:"started_at" json:"started_at"`
	FinishedAt   time.Time           `yaml:"finished_at" json:"finished_at"`
	Risk         types.RiskState     `yaml:"risk" json:"risk"`
}

// Runner replays one bar source.
type Runner struct {
	config    Config
	journal   journal.Sink
	callbacks LifecycleCallbacks
	logger    *logger.Logger
}

func NewRunner(config Config, sink journal.Sink, callbacks LifecycleCallbacks, log *logger.Logger) *Runner {
	return &Runner{
		config:    config,
		journal:   sink,
		callbacks: callbacks,
		logger:    log.Named("backtest"),
	}
}

func (r *Runner) preRunCheck() error {
	if len(r.config.Strategies) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no strategies configured")
	}

	if len(r.config.Instruments) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no instruments configured")
	}

	return nil
}

// Run replays source to the end or until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, source Source) (result Result, err error) {
	if r.callbacks.OnBacktestEnd != nil {
		defer func() {
			(*r.callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := r.preRunCheck(); err != nil {
		return Result{}, err
	}

	window, err := session.New(r.config.Session)
	if err != nil {
		return Result{}, err
	}

	strategies, err := strategy.NewAll(r.config.Strategies, r.config.Instruments, window, r.logger)
	if err != nil {
		return Result{}, err
	}

	sim := matching.NewEngine(r.config.Matching, r.config.Instruments, r.logger)

	result = Result{
		Rejections: map[string]int{},
		StartedAt:  time.Now(),
	}

	onSignal := trader.OnSignalCallback(func(signal types.Signal, order bracket.BracketOrder, submitErr error) {
		result.Signals++

		if submitErr == nil {
			result.Submitted++
		} else if reason := errors.RejectionReason(submitErr); reason != "" {
			result.Rejections[reason]++
		} else {
			result.Rejections[fmt.Sprintf("error_%d", errors.GetCode(submitErr))]++
		}

		if r.callbacks.OnSignal != nil {
			(*r.callbacks.OnSignal)(signal, order, submitErr)
		}
	})

	t := trader.New(trader.Options{
		Execution:   r.config.Execution,
		Limits:      r.config.Limits,
		Instruments: r.config.Instruments,
		Window:      window,
		Broker:      sim,
		Runner:      execution.NewInlineRunner(ctx),
		Journal:     r.journal,
		Strategies:  strategies,
		Callbacks:   trader.Callbacks{OnSignal: &onSignal},
	}, r.logger)

	total, err := source.Count(r.config.StartTime, r.config.EndTime)
	if err != nil {
		return Result{}, err
	}

	if total == 0 {
		return Result{}, errors.New(errors.ErrCodeDataNotFound, "no bars in the selected range")
	}

	if r.callbacks.OnBacktestStart != nil {
		if err := (*r.callbacks.OnBacktestStart)(total); err != nil {
			return Result{}, err
		}
	}

	r.logger.Info("Backtest started",
		zap.Int("bars", total),
		zap.Int("strategies", len(strategies)),
	)

	sessionDate := ""

	for md, readErr := range source.ReadAll(r.config.StartTime, r.config.EndTime) {
		if readErr != nil {
			return Result{}, readErr
		}

		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		// close out the finished session before the trader rolls over
		if date := window.SessionDate(md.Time); date != sessionDate {
			if sessionDate != "" {
				result.Sessions = append(result.Sessions, t.Stats().Daily())
			}

			sessionDate = date
		}

		fills := sim.OnMarketData(md)
		t.OnFills(fills)
		t.OnMarketData(md)

		result.Bars++

		if r.callbacks.OnProcessData != nil {
			if err := (*r.callbacks.OnProcessData)(result.Bars, total); err != nil {
				return Result{}, err
			}
		}
	}

	if sessionDate != "" {
		result.Sessions = append(result.Sessions, t.Stats().Daily())
	}

	snapshot := t.Snapshot()
	result.OpenBrackets = len(snapshot.OpenBrackets)
	result.Risk = snapshot.Risk
	result.KillSwitch = snapshot.Risk.KillSwitchEngaged
	result.Summary = t.Stats().Cumulative()
	result.Trades = t.Stats().Trades()
	result.Strategies = snapshot.Strategies
	result.FinishedAt = time.Now()

	if result.OpenBrackets > 0 {
		r.logger.Warn("Backtest ended with open brackets",
			zap.Int("open_brackets", result.OpenBrackets),
		)
	}

	r.logger.Info("Backtest finished",
		zap.Int("bars", result.Bars),
		zap.Int("trades", result.Summary.Trades),
		zap.String("net_pnl", result.Summary.NetPnL.String()),
	)

	if r.config.ResultsFolder != "" {
		if err := r.writeResults(t, result); err != nil {
			return Result{}, err
		}
	}

	return result, nil
}

func (r *Runner) writeResults(t *trader.Trader, result Result) error {
	if err := os.MkdirAll(r.config.ResultsFolder, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create results folder", err)
	}

	data, err := yaml.Marshal(result)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to marshal results", err)
	}

	if err := os.WriteFile(filepath.Join(r.config.ResultsFolder, ResultsFile), data, 0o600); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write results", err)
	}

	return t.Stats().WriteStatsYAML(filepath.Join(r.config.ResultsFolder, StatsFile))
}
