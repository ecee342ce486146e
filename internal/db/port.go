// Package db provides the persistence port shared by the credential and profile stores,
// with SQLite and PostgreSQL implementations selected at startup.
package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Dialect identifies the SQL backend behind a Port.
type Dialect string

// Supported dialects.
const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

var (
	// ErrNotFound is returned by QueryOne when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write violates a unique constraint.
	ErrConflict = errors.New("unique constraint violation")
)

// StorageError wraps any other persistence failure.
type StorageError struct {
	Op    string
	Cause error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("storage error: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("storage error: %s", e.Op)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Scanner is the row interface handed to QueryMany callbacks.
type Scanner interface {
	Scan(dest ...any) error
}

// Port is the persistence capability set used by business code.
// Queries use '?' placeholders regardless of dialect.
type Port interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// QueryOne scans the first row into dest, or returns ErrNotFound.
	QueryOne(ctx context.Context, query string, args []any, dest ...any) error
	// QueryMany calls scan once per row.
	QueryMany(ctx context.Context, query string, args []any, scan func(Scanner) error) error
	// Upsert inserts a row or updates it on conflict, in one statement.
	Upsert(ctx context.Context, u Upsert) error
	// WithTx runs fn inside a transaction. Calling WithTx on a transactional Port
	// reuses the open transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Port) error) error
	Dialect() Dialect
	Ping(ctx context.Context) error
	Close() error
}

// Upsert describes an INSERT ... ON CONFLICT ... DO UPDATE statement.
type Upsert struct {
	Table           string
	Columns         []string
	Values          []any
	ConflictColumns []string
	UpdateColumns   []string
}

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQL renders the statement with '?' placeholders. Both SQLite and PostgreSQL
// accept this form.
func (u Upsert) SQL() (string, error) {
	if !identifierPattern.MatchString(u.Table) {
		return "", fmt.Errorf("invalid table name %q", u.Table)
	}
	if len(u.Columns) == 0 || len(u.Columns) != len(u.Values) {
		return "", fmt.Errorf("upsert into %s: %d columns for %d values", u.Table, len(u.Columns), len(u.Values))
	}
	if len(u.ConflictColumns) == 0 {
		return "", fmt.Errorf("upsert into %s: no conflict columns", u.Table)
	}
	for _, group := range [][]string{u.Columns, u.ConflictColumns, u.UpdateColumns} {
		for _, col := range group {
			if !identifierPattern.MatchString(col) {
				return "", fmt.Errorf("invalid column name %q", col)
			}
		}
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(u.Columns)), ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		u.Table, strings.Join(u.Columns, ", "), placeholders, strings.Join(u.ConflictColumns, ", "))

	if len(u.UpdateColumns) == 0 {
		b.WriteString("DO NOTHING")
		return b.String(), nil
	}

	sets := make([]string, len(u.UpdateColumns))
	for i, col := range u.UpdateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", col, col)
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	return b.String(), nil
}

// Rebind rewrites '?' placeholders as PostgreSQL '$n' parameters.
// Placeholders inside single-quoted literals are left alone.
func Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case r == '?' && !inQuote:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
