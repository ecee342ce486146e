package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres is the Port implementation backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
	q    querier
	tx   bool
}

// OpenPostgres establishes a connection pool to the database.
func OpenPostgres(ctx context.Context, databaseURL string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool, q: pool}, nil
}

// Pool exposes the underlying pool for migrations.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) Dialect() Dialect {
	return DialectPostgres
}

func (p *Postgres) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := p.q.Exec(ctx, Rebind(query), args...)
	if err != nil {
		return 0, mapPostgresError("exec", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) QueryOne(ctx context.Context, query string, args []any, dest ...any) error {
	if err := p.q.QueryRow(ctx, Rebind(query), args...).Scan(dest...); err != nil {
		return mapPostgresError("query one", err)
	}
	return nil
}

func (p *Postgres) QueryMany(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	rows, err := p.q.Query(ctx, Rebind(query), args...)
	if err != nil {
		return mapPostgresError("query many", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return mapPostgresError("scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		return mapPostgresError("iterate rows", err)
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, u Upsert) error {
	query, err := u.SQL()
	if err != nil {
		return &StorageError{Op: "build upsert", Cause: err}
	}
	if _, err := p.q.Exec(ctx, Rebind(query), u.Values...); err != nil {
		return mapPostgresError("upsert "+u.Table, err)
	}
	return nil
}

// WithTx commits on success and rolls back on error or panic. Panics are rethrown.
func (p *Postgres) WithTx(ctx context.Context, fn func(ctx context.Context, tx Port) error) (err error) {
	if p.tx {
		return fn(ctx, p)
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return mapPostgresError("begin", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = mapPostgresError("commit", cerr)
		}
	}()

	err = fn(ctx, &Postgres{pool: p.pool, q: tx, tx: true})
	return err
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Cause: err}
	}
	return nil
}

// Close closes the pool. It is a no-op on a transactional Port.
func (p *Postgres) Close() error {
	if !p.tx && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func mapPostgresError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrConflict)
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Cause: err}
}
