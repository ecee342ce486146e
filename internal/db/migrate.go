package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// MigrationStatus reports one migration and whether it has been applied.
type MigrationStatus struct {
	Version int64
	Path    string
	Applied bool
}

// Migrate applies all pending migrations and returns the versions it applied.
func Migrate(ctx context.Context, port Port) ([]int64, error) {
	provider, closeFn, err := newProvider(port)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// Status lists every known migration in version order.
func Status(ctx context.Context, port Port) ([]MigrationStatus, error) {
	provider, closeFn, err := newProvider(port)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration status: %w", err)
	}

	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version: s.Source.Version,
			Path:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

func newProvider(port Port) (*goose.Provider, func(), error) {
	var (
		sqlDB   *sql.DB
		dialect goose.Dialect
		dir     string
		closeFn = func() {}
	)

	switch p := port.(type) {
	case *SQLite:
		sqlDB, dialect, dir = p.DB(), goose.DialectSQLite3, "migrations/sqlite"
	case *Postgres:
		// The pool stays open; only the database/sql wrapper is closed.
		sqlDB = stdlib.OpenDBFromPool(p.Pool())
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
		closeFn = func() { _ = sqlDB.Close() }
	default:
		return nil, nil, fmt.Errorf("migrations are not supported for %T", port)
	}

	fsys, err := fs.Sub(migrationFS, dir)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(dialect, sqlDB, fsys)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create migration provider: %w", err)
	}
	return provider, closeFn, nil
}
