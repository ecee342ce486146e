package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		name    string
		upsert  Upsert
		want    string
		wantErr string
	}{
		{
			name: "update on conflict",
			upsert: Upsert{
				Table:           "writing_styles",
				Columns:         []string{"id", "user_id", "analysis"},
				Values:          []any{"a", "b", "c"},
				ConflictColumns: []string{"user_id"},
				UpdateColumns:   []string{"analysis"},
			},
			want: "INSERT INTO writing_styles (id, user_id, analysis) VALUES (?, ?, ?) ON CONFLICT (user_id) DO UPDATE SET analysis = excluded.analysis",
		},
		{
			name: "do nothing",
			upsert: Upsert{
				Table:           "users",
				Columns:         []string{"id"},
				Values:          []any{"a"},
				ConflictColumns: []string{"id"},
			},
			want: "INSERT INTO users (id) VALUES (?) ON CONFLICT (id) DO NOTHING",
		},
		{
			name: "value count mismatch",
			upsert: Upsert{
				Table:           "users",
				Columns:         []string{"id", "email"},
				Values:          []any{"a"},
				ConflictColumns: []string{"id"},
			},
			wantErr: "2 columns for 1 values",
		},
		{
			name: "missing conflict target",
			upsert: Upsert{
				Table:   "users",
				Columns: []string{"id"},
				Values:  []any{"a"},
			},
			wantErr: "no conflict columns",
		},
		{
			name: "bad table name",
			upsert: Upsert{
				Table:           "users; DROP TABLE users",
				Columns:         []string{"id"},
				Values:          []any{"a"},
				ConflictColumns: []string{"id"},
			},
			wantErr: "invalid table name",
		},
		{
			name: "bad column name",
			upsert: Upsert{
				Table:           "users",
				Columns:         []string{"id"},
				Values:          []any{"a"},
				ConflictColumns: []string{"id"},
				UpdateColumns:   []string{"Email"},
			},
			wantErr: "invalid column name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.upsert.SQL()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = $1"},
		{"UPDATE t SET a = ?, b = ? WHERE c = ?", "UPDATE t SET a = $1, b = $2 WHERE c = $3"},
		{"SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Rebind(tt.in), tt.in)
	}
}

func TestStorageError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StorageError{Op: "exec", Cause: cause}

	assert.Equal(t, "storage error: exec: disk full", err.Error())
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", err), cause)
	assert.Equal(t, "storage error: ping", (&StorageError{Op: "ping"}).Error())
}
