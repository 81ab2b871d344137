package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical bars through the strategies, risk governor and matching simulator",
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Bars `FILE` (.csv or .parquet) with time, instrument, open, high, low, close, volume",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Output `DIR` for results.yaml and stats.yaml",
				Value:   "results",
			},
			&cli.TimestampFlag{
				Name:  "start",
				Usage: "Skip bars before `YYYY-MM-DD`",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "Skip bars after `YYYY-MM-DD`",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Do not draw the progress bar",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	defer func() {
		_ = log.Sync()
	}()

	dataPath := cmd.String("data")

	source, err := backtest.NewDuckDBSource(dataPath, log)
	if err != nil {
		return err
	}

	defer source.Close()

	j, err := journal.Open(cfg.Journal, log)
	if err != nil {
		return err
	}

	defer func() {
		if err := j.Close(); err != nil {
			log.Error("Failed to close journal", zap.Error(err))
		}
	}()

	runConfig := backtest.Config{
		Execution:     cfg.Execution,
		Limits:        cfg.Limits(),
		Instruments:   cfg.InstrumentMap(),
		Session:       cfg.Session,
		Matching:      cfg.Matching,
		Strategies:    cfg.Strategies,
		StartTime:     optional.None[time.Time](),
		EndTime:       optional.None[time.Time](),
		ResultsFolder: cmd.String("results"),
	}

	if cmd.IsSet("start") {
		runConfig.StartTime = optional.Some(cmd.Timestamp("start"))
	}

	if cmd.IsSet("end") {
		runConfig.EndTime = optional.Some(cmd.Timestamp("end"))
	}

	callbacks := backtest.LifecycleCallbacks{}

	if !cmd.Bool("no-progress") {
		var bar *progressbar.ProgressBar

		onStart := backtest.OnBacktestStartCallback(func(total int) error {
			bar = progressbar.Default(int64(total))
			bar.Describe(fmt.Sprintf("Backtesting %s", filepath.Base(dataPath)))

			return nil
		})
		onProcess := backtest.OnProcessDataCallback(func(current int, _ int) error {
			return bar.Set(current)
		})
		onEnd := backtest.OnBacktestEndCallback(func(error) {
			if bar != nil {
				_ = bar.Finish()
			}
		})

		callbacks.OnBacktestStart = &onStart
		callbacks.OnProcessData = &onProcess
		callbacks.OnBacktestEnd = &onEnd
	}

	runner := backtest.NewRunner(runConfig, j, callbacks, log)

	result, err := runner.Run(ctx, source)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(renderBacktestResult(result))
	fmt.Println(HintStyle.Render("Results written to " + runConfig.ResultsFolder))

	return nil
}
