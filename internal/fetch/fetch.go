// Package fetch retrieves job postings by URL and reduces HTML to plain text.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/resume-optimizer/internal/config"
)

// Defaults used when the corresponding setting is zero.
const (
	DefaultTimeout   = 15 * time.Second
	DefaultMaxBytes  = 2 << 20
	DefaultUserAgent = "resume-optimizer/1.0"
)

// ErrEmptyPage is returned when a page yields no text.
var ErrEmptyPage = errors.New("page contains no readable text")

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Client fetches job descriptions over plain HTTP.
type Client struct {
	http      *http.Client
	userAgent string
	maxBytes  int64
}

// NewClient creates a Client from fetch settings.
func NewClient(cfg config.FetchConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: timeout, Transport: newTransport(cfg.AllowPrivateNetworks)},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// JobDescription downloads rawURL and returns the posting text. HTML pages
// are reduced with the selectors of the detected job board.
func (c *Client) JobDescription(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := c.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	var text string
	if isHTMLContent(contentType, body) {
		platform := DetectPlatform(rawURL)
		text, err = ExtractMainText(body, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
		if err != nil {
			return "", &Error{URL: rawURL, Message: "failed to parse HTML", Cause: err}
		}
	} else {
		text = cleanWhitespace(body)
	}

	if text == "" {
		return "", &Error{URL: rawURL, Message: "no text found", Cause: ErrEmptyPage}
	}
	return text, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (string, string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Host == "" || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return "", "", &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsedURL.String(), nil)
	if err != nil {
		return "", "", &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,*/*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, ErrBlockedAddress) {
			return "", "", &Error{URL: rawURL, Message: "address not allowed", Cause: ErrBlockedAddress}
		}
		return "", "", &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", &Error{
			URL:        rawURL,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", "", &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	if int64(len(body)) > c.maxBytes {
		return "", "", &Error{URL: rawURL, Message: fmt.Sprintf("response body exceeds %d bytes", c.maxBytes)}
	}
	return string(body), resp.Header.Get("Content-Type"), nil
}

var htmlTagPattern = regexp.MustCompile(`(?i)<(html|body|div|p|br|span|ul|ol|li|h[1-6]|section|article|main)[\s>/]`)

// LooksLikeHTML reports whether s appears to contain HTML markup.
func LooksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

func isHTMLContent(contentType, body string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "text/html", "application/xhtml+xml":
			return true
		case "text/plain":
			return false
		}
	}
	return LooksLikeHTML(body)
}

// HTMLToText reduces an HTML document to its job posting text. Input that is
// not HTML, or cannot be parsed, is returned trimmed.
func HTMLToText(s string) string {
	if !LooksLikeHTML(s) {
		return strings.TrimSpace(s)
	}
	text, err := ExtractMainText(s, JobPostingSelectors(), PlatformNoiseSelectors(PlatformUnknown)...)
	if err != nil || text == "" {
		return strings.TrimSpace(s)
	}
	return text
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements using noiseSelectors, then finds content using contentSelectors.
// If no content selectors match, it falls back to the body element.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()
	if len(noiseSelectors) > 0 {
		doc.Find(strings.Join(noiseSelectors, ", ")).Remove()
	}

	// Block elements become line breaks so list items and paragraphs stay separate.
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, div, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	return cleanWhitespace(mainContent.Text()), nil
}

// JobPostingSelectors returns selectors optimized for job board pages.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

var spaceRun = regexp.MustCompile(`[ \t\f\v]+`)

// cleanWhitespace trims every line, collapses inner runs of spaces and drops
// blank lines.
func cleanWhitespace(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
