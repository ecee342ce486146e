package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/logging"
)

// loadConfig reads configuration from the --config file and the environment.
// Commands validate the sections they use.
func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// openDatabase connects and, when migrate is set, applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, logger logging.Logger, migrate bool) (db.Port, error) {
	port, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if !migrate {
		return port, nil
	}

	applied, err := db.Migrate(ctx, port)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Info(ctx, "applied migrations", "versions", applied)
	}
	return port, nil
}

// background is used when a command runs without a cobra context.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
