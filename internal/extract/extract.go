// Package extract converts uploaded PDF and plain-text files into plain text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MaxSize is the largest blob Extract accepts.
const MaxSize = 10 << 20

// Kind is the declared type of an upload.
type Kind string

// Supported kinds.
const (
	KindPDF  Kind = "pdf"
	KindText Kind = "text"
)

var (
	// ErrUnreadable is returned for malformed PDFs, empty files and invalid UTF-8.
	ErrUnreadable = errors.New("file could not be read")
	// ErrUnsupportedType is returned for anything that is neither PDF nor text.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned when a blob exceeds MaxSize.
	ErrTooLarge = errors.New("file too large")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Extract returns the plain text of blob. A PDF without extractable text
// yields an empty string, not an error.
func Extract(blob []byte, kind Kind) (string, error) {
	if len(blob) > MaxSize {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(blob), MaxSize)
	}

	switch kind {
	case KindPDF:
		return extractPDF(blob)
	case KindText:
		return extractText(blob)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, kind)
	}
}

func extractText(blob []byte) (string, error) {
	blob = bytes.TrimPrefix(blob, utf8BOM)
	if len(blob) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnreadable)
	}
	if !utf8.Valid(blob) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrUnreadable)
	}
	return CleanText(string(blob)), nil
}

func extractPDF(blob []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", ErrUnreadable, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, i, err)
		}
		if content = CleanText(content); content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// DetectKind decides the kind of an upload from its filename, then its declared
// content type, then a sniff of its first bytes.
func DetectKind(filename, contentType string, head []byte) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF, nil
	case ".txt", ".text", ".md":
		return KindText, nil
	}

	if ct, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), ";"); ct != "" {
		switch {
		case ct == "application/pdf":
			return KindPDF, nil
		case ct == "text/plain", ct == "text/markdown":
			return KindText, nil
		}
	}

	if len(head) > 0 {
		for m := mimetype.Detect(head); m != nil; m = m.Parent() {
			switch {
			case m.Is("application/pdf"):
				return KindPDF, nil
			case m.Is("text/plain"):
				return KindText, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedType, describe(filename, contentType))
}

func describe(filename, contentType string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	if contentType != "" {
		return contentType
	}
	return "unknown"
}
