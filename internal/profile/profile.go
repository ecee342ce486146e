// Package profile stores the per-user records the generator works from: cover
// letter samples, the master resume, the writing-style summary and generated artifacts.
// Every operation takes the owning user explicitly.
package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/db"
)

// ErrNotFound is returned when the requested record does not exist for the user.
var ErrNotFound = errors.New("profile record not found")

// CoverLetterInput is an uploaded cover letter after text extraction.
type CoverLetterInput struct {
	Content    string
	Filename   string
	StoredPath string
}

// CoverLetter is a stored cover-letter sample.
type CoverLetter struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"-"`
	Content    string    `json:"content"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ResumeInput is an uploaded master resume after text extraction.
type ResumeInput struct {
	Content    string
	Filename   string
	StoredPath string
}

// MasterResume is the single reference resume of a user.
type MasterResume struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"-"`
	Content    string    `json:"content"`
	Filename   string    `json:"filename"`
	StoredPath string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// WritingStyle is the derived style summary of a user.
type WritingStyle struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Analysis  string    `json:"analysis"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists profile records through a db.Port.
type Store struct {
	port db.Port
	now  func() time.Time
}

// NewStore creates a Store over port.
func NewStore(port db.Port) *Store {
	return &Store{
		port: port,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// AddCoverLetter stores a new sample. Samples accumulate; nothing is replaced.
// Ids are time-ordered so samples sharing a timestamp still list in insertion order.
func (s *Store) AddCoverLetter(ctx context.Context, userID uuid.UUID, in CoverLetterInput) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to generate cover letter id: %w", err)
	}
	_, err = s.port.Exec(ctx,
		`INSERT INTO cover_letters (id, user_id, content, filename, stored_path, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, in.Content, in.Filename, in.StoredPath, s.now(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add cover letter: %w", err)
	}
	return id, nil
}

// ListCoverLetters returns the user's samples in upload order.
func (s *Store) ListCoverLetters(ctx context.Context, userID uuid.UUID) ([]CoverLetter, error) {
	letters := []CoverLetter{}
	err := s.port.QueryMany(ctx,
		`SELECT id, user_id, content, filename, stored_path, uploaded_at
		 FROM cover_letters WHERE user_id = ? ORDER BY uploaded_at, id`,
		[]any{userID},
		func(row db.Scanner) error {
			var cl CoverLetter
			if err := row.Scan(&cl.ID, &cl.UserID, &cl.Content, &cl.Filename, &cl.StoredPath, &cl.UploadedAt); err != nil {
				return err
			}
			letters = append(letters, cl)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list cover letters: %w", err)
	}
	return letters, nil
}

// CoverLetterTexts returns only the contents of the user's samples, in upload order.
func (s *Store) CoverLetterTexts(ctx context.Context, userID uuid.UUID) ([]string, error) {
	letters, err := s.ListCoverLetters(ctx, userID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(letters))
	for i, cl := range letters {
		texts[i] = cl.Content
	}
	return texts, nil
}

// SetMasterResume creates or replaces the user's master resume and returns the
// stored path of the resume it replaced ("" if none). Concurrent calls for one
// user are serialized, so each replaced path is reported to exactly one caller.
func (s *Store) SetMasterResume(ctx context.Context, userID uuid.UUID, in ResumeInput) (string, error) {
	var previous string
	err := s.port.WithTx(ctx, func(ctx context.Context, tx db.Port) error {
		if tx.Dialect() == db.DialectPostgres {
			// The user row always exists, so locking it also covers the first upload.
			var locked uuid.UUID
			if err := tx.QueryOne(ctx, `SELECT id FROM users WHERE id = ? FOR UPDATE`, []any{userID}, &locked); err != nil {
				return err
			}
		}

		err := tx.QueryOne(ctx, `SELECT stored_path FROM master_resumes WHERE user_id = ?`, []any{userID}, &previous)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return err
		}

		return tx.Upsert(ctx, db.Upsert{
			Table:           "master_resumes",
			Columns:         []string{"id", "user_id", "content", "filename", "stored_path", "uploaded_at"},
			Values:          []any{uuid.New(), userID, in.Content, in.Filename, in.StoredPath, s.now()},
			ConflictColumns: []string{"user_id"},
			UpdateColumns:   []string{"content", "filename", "stored_path", "uploaded_at"},
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to save master resume: %w", err)
	}
	return previous, nil
}

// GetMasterResume returns the user's master resume or ErrNotFound.
func (s *Store) GetMasterResume(ctx context.Context, userID uuid.UUID) (*MasterResume, error) {
	var r MasterResume
	err := s.port.QueryOne(ctx,
		`SELECT id, user_id, content, filename, stored_path, uploaded_at
		 FROM master_resumes WHERE user_id = ?`,
		[]any{userID},
		&r.ID, &r.UserID, &r.Content, &r.Filename, &r.StoredPath, &r.UploadedAt,
	)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master resume: %w", err)
	}
	return &r, nil
}

// SetWritingStyle creates or replaces the user's style summary in one statement.
func (s *Store) SetWritingStyle(ctx context.Context, userID uuid.UUID, analysis string) error {
	err := s.port.Upsert(ctx, db.Upsert{
		Table:           "writing_styles",
		Columns:         []string{"id", "user_id", "analysis", "updated_at"},
		Values:          []any{uuid.New(), userID, analysis, s.now()},
		ConflictColumns: []string{"user_id"},
		UpdateColumns:   []string{"analysis", "updated_at"},
	})
	if err != nil {
		return fmt.Errorf("failed to save writing style: %w", err)
	}
	return nil
}

// GetWritingStyle returns the user's style summary or ErrNotFound.
func (s *Store) GetWritingStyle(ctx context.Context, userID uuid.UUID) (*WritingStyle, error) {
	var w WritingStyle
	err := s.port.QueryOne(ctx,
		`SELECT id, user_id, analysis, updated_at FROM writing_styles WHERE user_id = ?`,
		[]any{userID},
		&w.ID, &w.UserID, &w.Analysis, &w.UpdatedAt,
	)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get writing style: %w", err)
	}
	return &w, nil
}

// StoredPaths returns every blob location recorded for the user's uploads.
func (s *Store) StoredPaths(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var paths []string
	err := s.port.QueryMany(ctx,
		`SELECT stored_path FROM cover_letters WHERE user_id = ? AND stored_path <> ''
		 UNION ALL
		 SELECT stored_path FROM master_resumes WHERE user_id = ? AND stored_path <> ''`,
		[]any{userID, userID},
		func(row db.Scanner) error {
			var p string
			if err := row.Scan(&p); err != nil {
				return err
			}
			paths = append(paths, p)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored paths: %w", err)
	}
	return paths, nil
}
