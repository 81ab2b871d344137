package paper

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/eventloop"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/matching"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"go.uber.org/zap"
)

// feed plays the venue: it matches each bar in the simulator and then hands
// the bar to the loop. The simulator's book only moves on this goroutine.
type feed struct {
	source         backtest.Source
	sim            *matching.Engine
	loop           *eventloop.Loop
	trader         *trader.Trader
	clock          *replayClock
	interval       time.Duration
	reconcileEvery time.Duration
	logger         *logger.Logger
}

func (f *feed) run(ctx context.Context) (int, error) {
	bars := 0
	lastReconcile := time.Now()

	for md, err := range f.source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			return bars, err
		}

		if ctx.Err() != nil {
			return bars, nil
		}

		// fills are posted by the subscription before the bar is
		f.sim.OnMarketData(md)

		if err := f.loop.Post(f.deliver(md)); err != nil {
			return bars, nil
		}

		bars++

		if f.reconcileEvery > 0 && time.Since(lastReconcile) >= f.reconcileEvery {
			f.reconcile(ctx)
			lastReconcile = time.Now()
		}

		if !f.wait(ctx) {
			return bars, nil
		}
	}

	return bars, nil
}

func (f *feed) deliver(md types.MarketData) func() {
	return func() {
		f.clock.observe(md.Time, time.Now())
		f.trader.OnMarketData(md)
	}
}

// reconcile reads positions between bars, so every fill behind them is
// already queued ahead of the check.
func (f *feed) reconcile(ctx context.Context) {
	positions, err := f.sim.Positions(ctx)
	if err != nil {
		f.logger.Error("Failed to read simulator positions", zap.Error(err))

		return
	}

	_ = f.loop.Post(func() {
		if err := f.trader.ReconcilePositions(positions); err != nil {
			f.logger.Error("Position reconciliation failed", zap.Error(err))
		}
	})
}

func (f *feed) wait(ctx context.Context) bool {
	if f.interval <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(f.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// replayClock maps wall time onto the replayed timeline: the time of the last
// delivered bar plus the wall time elapsed since it was delivered. It is only
// touched on the loop goroutine.
type replayClock struct {
	barTime   time.Time
	deliverAt time.Time
}

func (c *replayClock) observe(barTime, wall time.Time) {
	c.barTime = barTime
	c.deliverAt = wall
}

// now is false until the first bar arrives.
func (c *replayClock) now(wall time.Time) (time.Time, bool) {
	if c.barTime.IsZero() {
		return time.Time{}, false
	}

	elapsed := wall.Sub(c.deliverAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return c.barTime.Add(elapsed), true
}
