package db

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-optimizer/internal/config"
)

// Open connects the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch Dialect(cfg.Driver) {
	case DialectSQLite:
		return OpenSQLite(ctx, cfg.DSN)
	case DialectPostgres:
		return OpenPostgres(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}
}
