package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/storage"
)

const (
	// extractConcurrency bounds parallel text extraction within one upload.
	extractConcurrency = 4
	// multipartMemory is the part of a multipart form kept in memory.
	multipartMemory = 32 << 20
	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 1 << 20
)

// upload is one file of a multipart request after extraction.
type upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Text        string
	Err         error
}

// UploadWarning reports a file that was skipped.
type UploadWarning struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// parseUploads reads the files sent under the "file" and "files" fields.
func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, error) {
	maxFiles := s.cfg.Upload.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxFiles)*s.maxFileBytes()+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body: %w", extract.ErrTooLarge)
		}
		return nil, &APIError{Status: http.StatusBadRequest, Kind: KindValidation, Message: "Expected a multipart form upload.", Cause: err}
	}

	var headers []*multipart.FileHeader
	for _, field := range []string{"file", "files"} {
		headers = append(headers, r.MultipartForm.File[field]...)
	}
	if len(headers) == 0 {
		return nil, badRequest(KindValidation, "No file was uploaded.")
	}
	if len(headers) > maxFiles {
		return nil, badRequest(KindValidation, fmt.Sprintf("At most %d files can be uploaded at once.", maxFiles))
	}
	return headers, nil
}

func (s *Server) maxFileBytes() int64 {
	if n := s.cfg.Upload.MaxFileBytes; n > 0 && n <= extract.MaxSize {
		return n
	}
	return extract.MaxSize
}

// extractUploads extracts every file concurrently. Results keep the request
// order and carry per-file errors instead of failing the batch.
func (s *Server) extractUploads(ctx context.Context, headers []*multipart.FileHeader) []upload {
	results := make([]upload, len(headers))

	var g errgroup.Group
	g.SetLimit(extractConcurrency)
	for i, fh := range headers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = upload{Filename: fh.Filename, Err: err}
				return nil
			}
			results[i] = s.extractUpload(fh)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Server) extractUpload(fh *multipart.FileHeader) upload {
	u := upload{
		Filename:    filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
	}

	limit := s.maxFileBytes()
	if fh.Size > limit {
		u.Err = fmt.Errorf("%s: %w", u.Filename, extract.ErrTooLarge)
		return u
	}

	f, err := fh.Open()
	if err != nil {
		u.Err = fmt.Errorf("failed to open upload: %w", err)
		return u
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		u.Err = fmt.Errorf("failed to read upload: %w", err)
		return u
	}
	if int64(len(data)) > limit {
		u.Err = fmt.Errorf("%s: %w", u.Filename, extract.ErrTooLarge)
		return u
	}
	u.Data = data

	kind, err := extract.DetectKind(u.Filename, u.ContentType, data)
	if err != nil {
		u.Err = err
		return u
	}
	text, err := extract.Extract(data, kind)
	if err != nil {
		u.Err = err
		return u
	}
	if strings.TrimSpace(text) == "" {
		u.Err = fmt.Errorf("%s: no text found: %w", u.Filename, extract.ErrUnreadable)
		return u
	}
	u.Text = text
	return u
}

// storeOriginal keeps the uploaded bytes in the blob store and returns their
// location. The Nop store returns an empty location.
func (s *Server) storeOriginal(ctx context.Context, userID uuid.UUID, category string, u upload) (string, error) {
	key := storage.ObjectKey(userID, category, u.Filename)
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return s.blobs.Put(ctx, key, bytes.NewReader(u.Data), int64(len(u.Data)), contentType)
}

// deleteOriginal removes a replaced upload. Failures are only logged.
func (s *Server) deleteOriginal(ctx context.Context, location string) {
	if location == "" {
		return
	}
	if err := s.blobs.Delete(ctx, location); err != nil {
		s.logger.Warn(ctx, "failed to delete replaced upload", "location", location, "error", err)
	}
}
