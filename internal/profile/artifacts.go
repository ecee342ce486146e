package profile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/db"
)

// Artifact kinds.
const (
	KindResume      = "resume"
	KindCoverLetter = "cover_letter"
)

// ArtifactInput is a freshly generated document.
type ArtifactInput struct {
	Kind     string
	Format   string
	JobKey   string
	JobTitle string
	Company  string
	Content  string
}

// Artifact is a stored generated document. Content is empty in list results.
type Artifact struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Kind      string    `json:"kind"`
	Format    string    `json:"format,omitempty"`
	JobKey    string    `json:"job_key"`
	JobTitle  string    `json:"job_title,omitempty"`
	Company   string    `json:"company,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobKey identifies a generation request so that regenerating for the same job
// replaces the previous artifact.
func JobKey(format, jobDescription, company, title string) string {
	h := sha256.New()
	for _, part := range []string{format, strings.TrimSpace(jobDescription), strings.TrimSpace(company), strings.TrimSpace(title)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

const artifactColumns = `id, user_id, kind, format, job_key, job_title, company, content, created_at, updated_at`

// SaveArtifact stores an artifact, replacing the content of an earlier one for
// the same (kind, job key), and returns the stored row.
func (s *Store) SaveArtifact(ctx context.Context, userID uuid.UUID, in ArtifactInput) (*Artifact, error) {
	switch in.Kind {
	case KindResume, KindCoverLetter:
	default:
		return nil, fmt.Errorf("unknown artifact kind: %q", in.Kind)
	}
	if in.JobKey == "" {
		return nil, fmt.Errorf("artifact job key is required")
	}

	var saved *Artifact
	err := s.port.WithTx(ctx, func(ctx context.Context, tx db.Port) error {
		now := s.now()
		err := tx.Upsert(ctx, db.Upsert{
			Table:           "generated_artifacts",
			Columns:         []string{"id", "user_id", "kind", "format", "job_key", "job_title", "company", "content", "created_at", "updated_at"},
			Values:          []any{uuid.New(), userID, in.Kind, in.Format, in.JobKey, in.JobTitle, in.Company, in.Content, now, now},
			ConflictColumns: []string{"user_id", "kind", "job_key"},
			UpdateColumns:   []string{"format", "job_title", "company", "content", "updated_at"},
		})
		if err != nil {
			return err
		}

		a, err := scanArtifact(func(dest ...any) error {
			return tx.QueryOne(ctx,
				`SELECT `+artifactColumns+` FROM generated_artifacts WHERE user_id = ? AND kind = ? AND job_key = ?`,
				[]any{userID, in.Kind, in.JobKey}, dest...)
		})
		if err != nil {
			return err
		}
		saved = a
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save artifact: %w", err)
	}
	return saved, nil
}

// ListArtifacts returns the user's artifacts without content, most recently updated first.
func (s *Store) ListArtifacts(ctx context.Context, userID uuid.UUID) ([]Artifact, error) {
	artifacts := []Artifact{}
	err := s.port.QueryMany(ctx,
		`SELECT id, user_id, kind, format, job_key, job_title, company, created_at, updated_at
		 FROM generated_artifacts WHERE user_id = ? ORDER BY updated_at DESC, id`,
		[]any{userID},
		func(row db.Scanner) error {
			var a Artifact
			if err := row.Scan(&a.ID, &a.UserID, &a.Kind, &a.Format, &a.JobKey, &a.JobTitle, &a.Company, &a.CreatedAt, &a.UpdatedAt); err != nil {
				return err
			}
			artifacts = append(artifacts, a)
			return nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// GetArtifact returns one of the user's artifacts. Another user's artifact is ErrNotFound.
func (s *Store) GetArtifact(ctx context.Context, userID, id uuid.UUID) (*Artifact, error) {
	a, err := scanArtifact(func(dest ...any) error {
		return s.port.QueryOne(ctx,
			`SELECT `+artifactColumns+` FROM generated_artifacts WHERE id = ? AND user_id = ?`,
			[]any{id, userID}, dest...)
	})
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return a, nil
}

func scanArtifact(query func(dest ...any) error) (*Artifact, error) {
	var a Artifact
	if err := query(&a.ID, &a.UserID, &a.Kind, &a.Format, &a.JobKey, &a.JobTitle, &a.Company, &a.Content, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
