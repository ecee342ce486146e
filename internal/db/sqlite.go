package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is the Port implementation backed by mattn/go-sqlite3.
type SQLite struct {
	db *sql.DB
	q  dbtx
	tx bool
}

// OpenSQLite opens a SQLite database. Foreign keys and a busy timeout are
// enabled through the DSN when the caller did not set them, and the pool is
// limited to one connection so writers serialize instead of failing with SQLITE_BUSY.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLite{db: conn, q: conn}, nil
}

func sqliteDSN(dsn string) string {
	for _, p := range []struct{ key, value string }{
		{"_foreign_keys", "on"},
		{"_busy_timeout", "5000"},
	} {
		if strings.Contains(dsn, p.key+"=") {
			continue
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + p.key + "=" + p.value
	}
	return dsn
}

// DB exposes the underlying handle for migrations.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func (s *SQLite) Dialect() Dialect {
	return DialectSQLite
}

func (s *SQLite) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapSQLiteError("exec", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &StorageError{Op: "rows affected", Cause: err}
	}
	return n, nil
}

func (s *SQLite) QueryOne(ctx context.Context, query string, args []any, dest ...any) error {
	if err := s.q.QueryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return mapSQLiteError("query one", err)
	}
	return nil
}

func (s *SQLite) QueryMany(ctx context.Context, query string, args []any, scan func(Scanner) error) error {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return mapSQLiteError("query many", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return mapSQLiteError("scan", err)
		}
	}
	if err := rows.Err(); err != nil {
		return mapSQLiteError("iterate rows", err)
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, u Upsert) error {
	query, err := u.SQL()
	if err != nil {
		return &StorageError{Op: "build upsert", Cause: err}
	}
	if _, err := s.q.ExecContext(ctx, query, u.Values...); err != nil {
		return mapSQLiteError("upsert "+u.Table, err)
	}
	return nil
}

// WithTx commits on success and rolls back on error or panic. Panics are rethrown.
func (s *SQLite) WithTx(ctx context.Context, fn func(ctx context.Context, tx Port) error) (err error) {
	if s.tx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteError("begin", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = mapSQLiteError("commit", cerr)
		}
	}()

	err = fn(ctx, &SQLite{db: s.db, q: tx, tx: true})
	return err
}

func (s *SQLite) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return &StorageError{Op: "ping", Cause: err}
	}
	return nil
}

// Close closes the database. It is a no-op on a transactional Port.
func (s *SQLite) Close() error {
	if s.tx {
		return nil
	}
	return s.db.Close()
}

func mapSQLiteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return err
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		}
	}
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Op: op, Cause: err}
}
