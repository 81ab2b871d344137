// Package paper runs a live-style session against the matching simulator.
// Bars are replayed from a source at a wall-clock pace, broker calls run in
// the background and every state change goes through one event loop, the same
// way a session against a real venue would run.
package paper

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/broker"
	"github.com/rxtech-lab/argo-futures/internal/eventloop"
	"github.com/rxtech-lab/argo-futures/internal/execution"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching"
	"github.com/rxtech-lab/argo-futures/internal/risk"
	"github.com/rxtech-lab/argo-futures/internal/session"
	"github.com/rxtech-lab/argo-futures/internal/status"
	"github.com/rxtech-lab/argo-futures/internal/strategy"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OnReadyCallback is called once the trader exists and the loop is running.
type OnReadyCallback func(t *trader.Trader, loop *eventloop.Loop)

// OnReplayEndCallback is called after the last bar has been handed to the loop.
type OnReplayEndCallback func(bars int)

// Callbacks are optional hooks. Nil means no callback is invoked.
type Callbacks struct {
	OnReady     *OnReadyCallback
	OnReplayEnd *OnReplayEndCallback
	OnSignal    *trader.OnSignalCallback
}

// Config holds everything a paper session needs besides the bars.
type Config struct {
	Execution   execution.Config
	Limits      risk.Limits
	Instruments map[string]types.InstrumentSpec
	Session     session.Config
	Matching    matching.Config
	Strategies  []strategy.Config

	// ReplayInterval is the pause between bars. Zero replays as fast as the loop drains.
	ReplayInterval time.Duration
	// TimerInterval is the period of the session clock.
	TimerInterval time.Duration
	// ReconcileInterval is the wall-clock period of position reconciliation. Zero disables it.
	ReconcileInterval time.Duration
	OrdersPerSecond   float64
	OrderBurst        int
	EventBuffer       int
	// StatusAddress serves the status endpoint when set.
	StatusAddress string
	// Hold keeps the session running after the last bar until ctx is cancelled.
	Hold bool
}

// Runner owns one paper session.
type Runner struct {
	config    Config
	journal   journal.Sink
	callbacks Callbacks
	logger    *logger.Logger
}

func NewRunner(config Config, sink journal.Sink, callbacks Callbacks, log *logger.Logger) *Runner {
	return &Runner{
		config:    config,
		journal:   sink,
		callbacks: callbacks,
		logger:    log.Named("paper"),
	}
}

// Run replays source until it is exhausted (or ctx is cancelled when Hold is
// set) and returns the final snapshot.
func (r *Runner) Run(ctx context.Context, source backtest.Source) (trader.Snapshot, error) {
	if len(r.config.Strategies) == 0 {
		return trader.Snapshot{}, errors.New(errors.ErrCodeInvalidConfiguration, "no strategies configured")
	}

	if r.config.TimerInterval <= 0 {
		return trader.Snapshot{}, errors.New(errors.ErrCodeInvalidConfiguration, "timer interval must be positive")
	}

	window, err := session.New(r.config.Session)
	if err != nil {
		return trader.Snapshot{}, err
	}

	strategies, err := strategy.NewAll(r.config.Strategies, r.config.Instruments, window, r.logger)
	if err != nil {
		return trader.Snapshot{}, err
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	group, groupCtx := errgroup.WithContext(runCtx)

	loop := eventloop.New(r.config.EventBuffer, r.logger)
	tasks := eventloop.NewRunner(groupCtx, loop)
	sim := matching.NewEngine(r.config.Matching, r.config.Instruments, r.logger)
	venue := broker.NewThrottledBroker(sim, r.config.OrdersPerSecond, r.config.OrderBurst)

	callbacks := trader.Callbacks{OnSignal: r.callbacks.OnSignal}

	t := trader.New(trader.Options{
		Execution:   r.config.Execution,
		Limits:      r.config.Limits,
		Instruments: r.config.Instruments,
		Window:      window,
		Broker:      venue,
		Runner:      tasks,
		Journal:     r.journal,
		Strategies:  strategies,
		Callbacks:   callbacks,
	}, r.logger)

	// the simulator publishes fills on the feed goroutine; they join the queue
	// ahead of the bar that produced them
	venue.SubscribeFills(func(fill types.FillEvent) {
		if err := loop.Post(func() { t.OnFills([]types.FillEvent{fill}) }); err != nil {
			r.logger.Warn("Fill dropped", zap.String("fill_id", fill.FillID), zap.Error(err))
		}
	})

	clock := &replayClock{}

	group.Go(func() error {
		return loop.Run(groupCtx)
	})

	group.Go(func() error {
		return loop.Every(groupCtx, r.config.TimerInterval, func(now time.Time) {
			if at, ok := clock.now(now); ok {
				t.OnTimer(at)
			}
		})
	})

	if r.config.StatusAddress != "" {
		server := status.NewServer(t, loop, r.logger)

		group.Go(func() error {
			return server.Run(groupCtx, r.config.StatusAddress)
		})
	}

	if r.callbacks.OnReady != nil {
		(*r.callbacks.OnReady)(t, loop)
	}

	feed := &feed{
		source:         source,
		sim:            sim,
		loop:           loop,
		trader:         t,
		clock:          clock,
		interval:       r.config.ReplayInterval,
		reconcileEvery: r.config.ReconcileInterval,
		logger:         r.logger,
	}

	group.Go(func() error {
		bars, err := feed.run(groupCtx)
		if err != nil {
			return err
		}

		r.logger.Info("Replay finished", zap.Int("bars", bars))

		if r.callbacks.OnReplayEnd != nil {
			(*r.callbacks.OnReplayEnd)(bars)
		}

		if !r.config.Hold {
			// let queued completions land before the loop stops
			_ = loop.Call(groupCtx, func() {})
			stop()
		}

		return nil
	})

	r.logger.Info("Paper session started",
		zap.Int("strategies", len(strategies)),
		zap.Duration("replay_interval", r.config.ReplayInterval),
		zap.String("status_address", r.config.StatusAddress),
	)

	err = group.Wait()
	tasks.Wait()

	snapshot := t.Snapshot()

	r.logger.Info("Paper session stopped",
		zap.Int64("events", snapshot.Events),
		zap.Int("open_brackets", len(snapshot.OpenBrackets)),
		zap.String("net_pnl", snapshot.Cumulative.NetPnL.String()),
	)

	return snapshot, err
}
