package auth

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
)

const testSecret = "test-secret-key-at-least-16-bytes"

func newTestService(t *testing.T) (*Service, db.Port) {
	t.Helper()
	return newTestServiceWithPepper(t, "")
}

func newTestServiceWithPepper(t *testing.T, pepper string) (*Service, db.Port) {
	t.Helper()
	ctx := context.Background()

	port, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = port.Close() })
	_, err = db.Migrate(ctx, port)
	require.NoError(t, err)

	passwords, err := config.NewPasswordConfig(config.MinBcryptCost, pepper)
	require.NoError(t, err)

	svc, err := NewService(port, passwords, config.SessionConfig{
		Secret:     testSecret,
		TTL:        time.Hour,
		CookieName: "session",
	})
	require.NoError(t, err)
	return svc, port
}

func TestNewService_ValidatesConfig(t *testing.T) {
	passwords := &config.PasswordConfig{BcryptCost: config.MinBcryptCost}

	_, err := NewService(nil, passwords, config.SessionConfig{TTL: time.Hour, CookieName: "session"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session secret")

	_, err = NewService(nil, &config.PasswordConfig{BcryptCost: 4}, config.SessionConfig{Secret: testSecret, TTL: time.Hour, CookieName: "s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt cost")
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.COM ", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Nil(t, user.LastLoginAt)

	t.Run("duplicate email differs only in case", func(t *testing.T) {
		_, err := svc.Register(ctx, "ALICE@example.com", "another1")
		var taken *ErrEmailTaken
		require.ErrorAs(t, err, &taken)
		assert.Equal(t, "alice@example.com", taken.Email)
	})

	t.Run("invalid emails", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "@example.com", "alice@"} {
			_, err := svc.Register(ctx, email, "secret1")
			assert.ErrorIs(t, err, ErrInvalidEmail, email)
		}
	})

	t.Run("weak passwords", func(t *testing.T) {
		_, err := svc.Register(ctx, "bob@example.com", "12345")
		assert.ErrorIs(t, err, ErrWeakPassword)

		_, err = svc.Register(ctx, "bob@example.com", strings.Repeat("x", MaxPasswordBytes+1))
		var verr *ErrValidation
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "password", verr.Field)
		assert.Contains(t, verr.Message, "at most 72 bytes")
	})

	t.Run("six characters is enough", func(t *testing.T) {
		_, err := svc.Register(ctx, "carol@example.com", "123456")
		assert.NoError(t, err)
	})
}

func TestRegister_WithPepper(t *testing.T) {
	svc, _ := newTestServiceWithPepper(t, strings.Repeat("k", 32))
	ctx := context.Background()

	password := strings.Repeat("a", 60)
	user, err := svc.Register(ctx, "long@example.com", password)
	require.NoError(t, err)

	authed, _, err := svc.Authenticate(ctx, "long@example.com", password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = svc.Register(ctx, "max@example.com", strings.Repeat("b", MaxPasswordBytes))
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)

	user, session, err := svc.Authenticate(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, user.LastLoginAt)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	_, _, wrongPassword := svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	_, _, unknownEmail := svc.Authenticate(ctx, "nobody@example.com", "secret1")

	var invalid *ErrInvalidCredentials
	require.ErrorAs(t, wrongPassword, &invalid)
	require.ErrorAs(t, unknownEmail, &invalid)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	fetched, err := svc.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, fetched.LastLoginAt)
}

func TestSessionLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.IssueSession(ctx, registered.ID)
	require.NoError(t, err)

	user, err := svc.ResolveSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Equal(t, "alice@example.com", user.Email)

	require.NoError(t, svc.InvalidateSession(ctx, session.Token))
	_, err = svc.ResolveSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	// Idempotent, and garbage is not an error.
	assert.NoError(t, svc.InvalidateSession(ctx, session.Token))
	assert.NoError(t, svc.InvalidateSession(ctx, "not-a-token"))
	assert.NoError(t, svc.InvalidateSession(ctx, ""))
}

func TestResolveSession_Rejects(t *testing.T) {
	svc, port := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.IssueSession(ctx, registered.ID)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := svc.ResolveSession(ctx, "")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := svc.ResolveSession(ctx, session.Token+"x")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("signed with another secret", func(t *testing.T) {
		claims := &Claims{
			UserID: registered.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        session.ID.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("another-secret-of-enough-length"))
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, forged)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{
			UserID:           registered.ID,
			RegisteredClaims: jwt.RegisteredClaims{ID: session.ID.String()},
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, unsigned)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("session row expired", func(t *testing.T) {
		other, err := svc.IssueSession(ctx, registered.ID)
		require.NoError(t, err)
		_, err = port.Exec(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Minute), other.ID)
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, other.Token)
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("token expired", func(t *testing.T) {
		past := time.Now().Add(-2 * time.Hour)
		svc.now = func() time.Time { return past }
		expired, err := svc.IssueSession(ctx, registered.ID)
		svc.now = func() time.Time { return time.Now().UTC() }
		require.NoError(t, err)

		_, err = svc.ResolveSession(ctx, expired.Token)
		assert.ErrorIs(t, err, ErrNoSession)

		// Expired tokens can still be revoked.
		require.NoError(t, svc.InvalidateSession(ctx, expired.Token))
		var count int
		require.NoError(t, port.QueryOne(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, []any{expired.ID}, &count))
		assert.Zero(t, count)
	})
}

func TestPurgeExpiredSessions(t *testing.T) {
	svc, port := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	live, err := svc.IssueSession(ctx, registered.ID)
	require.NoError(t, err)
	stale, err := svc.IssueSession(ctx, registered.ID)
	require.NoError(t, err)
	_, err = port.Exec(ctx, `UPDATE sessions SET expires_at = ? WHERE id = ?`, time.Now().UTC().Add(-time.Hour), stale.ID)
	require.NoError(t, err)

	n, err := svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.ResolveSession(ctx, live.Token)
	assert.NoError(t, err)
}

func TestDeleteUser(t *testing.T) {
	svc, port := newTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "secret1")
	require.NoError(t, err)
	session, err := svc.IssueSession(ctx, user.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	_, err = port.Exec(ctx, `INSERT INTO cover_letters (id, user_id, content, uploaded_at) VALUES (?, ?, ?, ?)`, uuid.New(), user.ID, "letter", now)
	require.NoError(t, err)
	_, err = port.Exec(ctx, `INSERT INTO master_resumes (id, user_id, content, uploaded_at) VALUES (?, ?, ?, ?)`, uuid.New(), user.ID, "resume", now)
	require.NoError(t, err)
	_, err = port.Exec(ctx, `INSERT INTO writing_styles (id, user_id, analysis, updated_at) VALUES (?, ?, ?, ?)`, uuid.New(), user.ID, "style", now)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, user.ID))

	for _, table := range append([]string{"users"}, ownedTables...) {
		var count int
		require.NoError(t, port.QueryOne(ctx, `SELECT COUNT(*) FROM `+table, nil, &count))
		assert.Zero(t, count, table)
	}

	_, err = svc.ResolveSession(ctx, session.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	var notFound *ErrUserNotFound
	assert.ErrorAs(t, svc.DeleteUser(ctx, user.ID), &notFound)

	_, err = svc.GetUserByEmail(ctx, "alice@example.com")
	assert.True(t, errors.As(err, &notFound))
}
