package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rxtech-lab/argo-futures/internal/config"
	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/internal/version"
	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to the run configuration `FILE`",
		Required: true,
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "log-level",
		Usage: "Override the configured log level (debug, info, warn, error)",
	}
}

// loadConfig reads the configuration named by --config and builds the logger
// at the configured (or overridden) level.
func loadConfig(cmd *cli.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if override := cmd.String("log-level"); override != "" {
		level = override
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	schema, err := config.Schema()
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		fmt.Println(schema)

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}

	if err := os.WriteFile(output, []byte(schema), 0o600); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}

	fmt.Printf("Generated schema at %s\n", output)

	return nil
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	fmt.Println(renderConfigSummary(cfg))

	return nil
}

func versionAction(_ context.Context, _ *cli.Command) error {
	fmt.Println(version.GetVersion())

	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "argo-futures",
		Usage:   "Rule-based intraday futures trading with a risk governor and bracket execution",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			backtestCommand(),
			paperCommand(),
			{
				Name:   "validate",
				Usage:  "Load and validate a configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: validateAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the schema to `FILE` instead of stdout",
					},
				},
				Action: schemaAction,
			},
			{
				Name:   "version",
				Usage:  "Print the binary version",
				Action: versionAction,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
