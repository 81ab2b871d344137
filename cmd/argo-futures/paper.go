package main

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-futures/internal/backtest"
	"github.com/rxtech-lab/argo-futures/internal/bracket"
	"github.com/rxtech-lab/argo-futures/internal/journal"
	"github.com/rxtech-lab/argo-futures/internal/paper"
	"github.com/rxtech-lab/argo-futures/internal/trader"
	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func paperCommand() *cli.Command {
	return &cli.Command{
		Name:  "paper",
		Usage: "Run a paper session that replays bars in real time against the matching simulator",
		Flags: []cli.Flag{
			configFlag(),
			logLevelFlag(),
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Bars `FILE` to replay (overrides paper.data_path)",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Serve the status endpoint on `ADDRESS` (overrides status.address and enables it)",
			},
			&cli.BoolFlag{
				Name:  "hold",
				Usage: "Keep the session and status endpoint up after the last bar until interrupted",
			},
		},
		Action: paperAction,
	}
}

func paperAction(ctx context.Context, cmd *cli.Command) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	defer func() {
		_ = log.Sync()
	}()

	dataPath := cfg.Paper.DataPath
	if cmd.IsSet("data") {
		dataPath = cmd.String("data")
	}

	if dataPath == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "paper trading needs --data or paper.data_path")
	}

	statusAddress := ""
	if cfg.Status.Enabled {
		statusAddress = cfg.Status.Address
	}

	if cmd.IsSet("status") {
		statusAddress = cmd.String("status")
	}

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

	onSignal := trader.OnSignalCallback(func(signal types.Signal, order bracket.BracketOrder, submitErr error) {
		if submitErr != nil {
			fmt.Println(RejectStyle.Render(fmt.Sprintf("%s %s %s %s rejected: %s",
				signal.Timestamp.Format("2006-01-02 15:04"), signal.StrategyID, signal.Direction, signal.Instrument, submitErr)))

			return
		}

		fmt.Println(AcceptStyle.Render(fmt.Sprintf("%s %s %s %s bracket %s",
			signal.Timestamp.Format("2006-01-02 15:04"), signal.StrategyID, signal.Direction, signal.Instrument, order.ID)))
	})

	runner := paper.NewRunner(paper.Config{
		Execution:         cfg.Execution,
		Limits:            cfg.Limits(),
		Instruments:       cfg.InstrumentMap(),
		Session:           cfg.Session,
		Matching:          cfg.Matching,
		Strategies:        cfg.Strategies,
		ReplayInterval:    cfg.Paper.ReplayInterval,
		TimerInterval:     cfg.Paper.TimerInterval,
		ReconcileInterval: cfg.Paper.ReconcileInterval,
		OrdersPerSecond:   cfg.Paper.OrdersPerSecond,
		OrderBurst:        cfg.Paper.OrderBurst,
		EventBuffer:       cfg.Paper.EventBuffer,
		StatusAddress:     statusAddress,
		Hold:              cmd.Bool("hold"),
	}, j, paper.Callbacks{OnSignal: &onSignal}, log)

	snapshot, err := runner.Run(ctx, source)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(renderSnapshot(snapshot))

	return nil
}
