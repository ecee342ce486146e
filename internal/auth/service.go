// Package auth implements the credential store: registration, password
// verification and server-side sessions carried by signed tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/jonathan/resume-optimizer/internal/db"
)

// Password length bounds. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLength = 6
	MaxPasswordBytes  = 72
)

// User is the public view of an account. The password hash never leaves the package.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// Session is an issued session and its client token.
type Session struct {
	ID        uuid.UUID `json:"-"`
	UserID    uuid.UUID `json:"-"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ownedTables lists every table holding per-user rows, children first.
var ownedTables = []string{
	"generated_artifacts",
	"writing_styles",
	"master_resumes",
	"cover_letters",
	"sessions",
}

// Service provides business logic for user authentication operations
type Service struct {
	port      db.Port
	passwords *config.PasswordConfig
	sessions  config.SessionConfig
	validate  *validator.Validate
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a new Service with the given dependencies
func NewService(port db.Port, passwords *config.PasswordConfig, sessions config.SessionConfig) (*Service, error) {
	if err := passwords.Validate(); err != nil {
		return nil, err
	}
	if err := sessions.Validate(); err != nil {
		return nil, err
	}
	return &Service{
		port:      port,
		passwords: passwords,
		sessions:  sessions,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user with password authentication
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{ID: uuid.New(), Email: email, CreatedAt: s.now()}
	_, err = s.port.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, passwordHash, user.CreatedAt,
	)
	if errors.Is(err, db.ErrConflict) {
		return nil, &ErrEmailTaken{Email: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies credentials and issues a new session.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, *Session, error) {
	user, hash, err := s.lookupByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		var notFound *ErrUserNotFound
		if !errors.As(err, &notFound) {
			return nil, nil, err
		}
		// Same bcrypt cost on the unknown-email path.
		s.passwords.VerifyPassword(password, s.dummy())
		return nil, nil, &ErrInvalidCredentials{}
	}

	if !s.passwords.VerifyPassword(password, hash) {
		return nil, nil, &ErrInvalidCredentials{}
	}

	now := s.now()
	if _, err := s.port.Exec(ctx, `UPDATE users SET last_login_at = ? WHERE id = ?`, now, user.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	session, err := s.IssueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// IssueSession persists a new session for userID and signs its token.
func (s *Service) IssueSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	now := s.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessions.TTL),
	}

	_, err := s.port.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, userID, now, session.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	session.Token, err = s.signToken(userID, session.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ResolveSession returns the owner of a live session. Any invalid, expired or
// revoked token yields ErrNoSession.
func (s *Service) ResolveSession(ctx context.Context, token string) (*User, error) {
	claims, err := s.parseToken(token, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil, fmt.Errorf("%w: bad session id", ErrNoSession)
	}

	var (
		user      User
		expiresAt time.Time
	)
	err = s.port.QueryOne(ctx,
		`SELECT u.id, u.email, u.created_at, u.last_login_at, s.expires_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.id = ? AND s.user_id = ?`,
		[]any{sessionID, claims.UserID},
		&user.ID, &user.Email, &user.CreatedAt, &user.LastLoginAt, &expiresAt,
	)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !s.now().Before(expiresAt) {
		return nil, ErrNoSession
	}
	return &user, nil
}

// InvalidateSession deletes the session behind token. Unknown, expired and
// malformed tokens are ignored.
func (s *Service) InvalidateSession(ctx context.Context, token string) error {
	claims, err := s.parseToken(token, true)
	if err != nil {
		return nil
	}
	sessionID, err := claims.SessionID()
	if err != nil {
		return nil
	}
	if _, err := s.port.Exec(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions removes sessions past their expiry and returns how many were removed.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.port.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}

// DeleteUser removes a user and every record they own in one transaction.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return s.port.WithTx(ctx, func(ctx context.Context, tx db.Port) error {
		for _, table := range ownedTables {
			if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}
		n, err := tx.Exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if n == 0 {
			return &ErrUserNotFound{UserID: userID}
		}
		return nil
	})
}

// GetUserByEmail looks a user up by address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user, _, err := s.lookupByEmail(ctx, NormalizeEmail(email))
	return user, err
}

func (s *Service) lookupByEmail(ctx context.Context, email string) (*User, string, error) {
	var (
		user User
		hash string
	)
	err := s.port.QueryOne(ctx,
		`SELECT id, email, password_hash, created_at, last_login_at FROM users WHERE email = ?`,
		[]any{email},
		&user.ID, &user.Email, &hash, &user.CreatedAt, &user.LastLoginAt,
	)
	if errors.Is(err, db.ErrNotFound) {
		return nil, "", &ErrUserNotFound{Email: email}
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, hash, nil
}

func (s *Service) validateEmail(email string) error {
	if err := s.validate.Var(email, "required,email"); err != nil {
		return &ErrValidation{Field: "email", Message: "must be a valid email address", Kind: ErrInvalidEmail}
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength),
			Kind:    ErrWeakPassword,
		}
	}
	if len(password) > MaxPasswordBytes {
		return &ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes),
			Kind:    ErrWeakPassword,
		}
	}
	return nil
}

// dummy returns a hash used to equalize timing for unknown emails.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.passwords.HashPassword(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
