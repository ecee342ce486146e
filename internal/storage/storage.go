// Package storage keeps original uploads in a blob store. Drivers are none,
// local filesystem and S3 compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/resume-optimizer/internal/config"
)

// ErrInvalidKey is returned for keys or locations that escape the store.
var ErrInvalidKey = errors.New("invalid object key")

// Store persists upload blobs. Put returns a location that Delete accepts.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

// Error wraps a blob store failure.
type Error struct {
	Op    string
	Key   string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("blob store %s %s: %v", e.Op, e.Key, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns the Store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return Nop{}, nil
	case "local":
		return NewLocal(cfg.LocalDir)
	case "s3":
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// Nop discards uploads. Put returns an empty location.
type Nop struct{}

func (Nop) Put(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", nil
}

func (Nop) Delete(context.Context, string) error {
	return nil
}

const maxFilenameLength = 128

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeFilename strips directories and keeps only [A-Za-z0-9._-]. The
// result is at most 128 characters and never empty.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > maxFilenameLength {
		name = name[:maxFilenameLength]
	}
	if name == "" {
		return "upload"
	}
	return name
}

// ObjectKey builds users/<uid>/<category>/<uuid>-<filename>.
func ObjectKey(userID uuid.UUID, category, filename string) string {
	return fmt.Sprintf("users/%s/%s/%s-%s", userID, category, uuid.New(), SanitizeFilename(filename))
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return false
		}
	}
	return true
}
