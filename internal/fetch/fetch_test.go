package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonathan/resume-optimizer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient(config.FetchConfig{Enabled: true, MaxBytes: 1024, AllowPrivateNetworks: true})
}

func TestJobDescription_HTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<nav>Jobs Home</nav>
			<div class="job-description"><h2>Backend Engineer</h2><ul><li>Go</li><li>PostgreSQL</li></ul></div>
			<form>Apply now</form>
			<footer>Copyright</footer>
		</body></html>`))
	}))
	defer server.Close()

	text, err := newTestClient().JobDescription(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer\nGo\nPostgreSQL", text)
}

func TestJobDescription_PlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("  Senior   Go engineer  \r\n\r\n\r\nRemote  "))
	}))
	defer server.Close()

	text, err := newTestClient().JobDescription(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "Senior Go engineer\nRemote", text)
}

func TestJobDescription_Errors(t *testing.T) {
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()

	huge := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer huge.Close()

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><script>var x = 1;</script></body></html>"))
	}))
	defer empty.Close()

	tests := []struct {
		name    string
		url     string
		wantMsg string
	}{
		{name: "invalid url", url: "not-a-valid-url", wantMsg: "invalid URL"},
		{name: "unsupported scheme", url: "ftp://example.com/job", wantMsg: "invalid URL"},
		{name: "status", url: notFound.URL, wantMsg: "404"},
		{name: "too large", url: huge.URL, wantMsg: "exceeds 1024 bytes"},
		{name: "empty page", url: empty.URL, wantMsg: "no text found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient().JobDescription(context.Background(), tt.url)
			var fetchErr *Error
			require.ErrorAs(t, err, &fetchErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestJobDescription_StatusCodeRecorded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient().JobDescription(context.Background(), server.URL)
	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
}

func TestExtractMainText_FallbackToBody(t *testing.T) {
	html := `<html><body><nav>Navigation</nav><div>Some content here.</div></body></html>`

	text, err := ExtractMainText(html, JobPostingSelectors())
	require.NoError(t, err)
	assert.Equal(t, "Some content here.", text)
}

func TestExtractMainText_NoiseSelectors(t *testing.T) {
	html := `<html><body><main><p>Keep this</p><div class="eeo-statement">Drop this</div></main></body></html>`

	text, err := ExtractMainText(html, JobPostingSelectors(), PlatformNoiseSelectors(PlatformUnknown)...)
	require.NoError(t, err)
	assert.Equal(t, "Keep this", text)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "Plain job text", HTMLToText("  Plain job text \n"))
	assert.Equal(t, "Title\nLine one\nLine two", HTMLToText("<p>Title</p><p>Line one<br>Line two</p>"))
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<div class='x'>hi</div>"))
	assert.True(t, LooksLikeHTML("line<br/>line"))
	assert.False(t, LooksLikeHTML("Salary < 100k and > 50k"))
	assert.False(t, LooksLikeHTML("Use <b>bold</b> sparingly"))
}
