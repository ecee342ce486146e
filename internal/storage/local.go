package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs as files under a root directory.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("local storage directory is required")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{root: root}, nil
}

// Put writes body to root/key and returns the file path.
func (l *Local) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if !validKey(key) {
		return "", &Error{Op: "put", Key: key, Cause: ErrInvalidKey}
	}
	path := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", &Error{Op: "put", Key: key, Cause: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return "", &Error{Op: "put", Key: key, Cause: err}
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", &Error{Op: "put", Key: key, Cause: err}
	}
	if err := f.Close(); err != nil {
		return "", &Error{Op: "put", Key: key, Cause: err}
	}
	return path, nil
}

// Delete removes a file written by Put. Missing files are not an error.
func (l *Local) Delete(_ context.Context, location string) error {
	path, err := filepath.Abs(location)
	if err != nil || !strings.HasPrefix(path, l.root+string(filepath.Separator)) {
		return &Error{Op: "delete", Key: location, Cause: ErrInvalidKey}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &Error{Op: "delete", Key: location, Cause: err}
	}
	return nil
}
