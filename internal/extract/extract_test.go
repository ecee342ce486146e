package extract

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF assembles a minimal PDF with one page per entry in pages. An empty
// entry produces a page with an empty content stream.
func buildPDF(pages ...string) []byte {
	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pages {
		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_PDF(t *testing.T) {
	text, err := Extract(buildPDF("Hello PDF World", "", "Second page"), KindPDF)
	require.NoError(t, err)
	assert.Contains(t, text, "Hello PDF World")
	assert.Contains(t, text, "Second page")
	assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "Second"))
}

func TestExtract_PDFWithoutTextIsEmpty(t *testing.T) {
	text, err := Extract(buildPDF("", ""), KindPDF)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExtract_MalformedPDF(t *testing.T) {
	for name, blob := range map[string][]byte{
		"garbage":   []byte("this is not a pdf at all"),
		"truncated": buildPDF("Hello")[:60],
		"empty":     {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(blob, KindPDF)
			assert.ErrorIs(t, err, ErrUnreadable)
		})
	}
}

func TestExtract_Text(t *testing.T) {
	text, err := Extract([]byte("\xEF\xBB\xBFDear hiring manager,\r\n\r\n\r\n\r\nI am   writing.  \r\n"), KindText)
	require.NoError(t, err)
	assert.Equal(t, "Dear hiring manager,\n\nI am writing.", text)
}

func TestExtract_TextErrors(t *testing.T) {
	_, err := Extract(nil, KindText)
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = Extract([]byte{0xEF, 0xBB, 0xBF}, KindText)
	assert.ErrorIs(t, err, ErrUnreadable)

	_, err = Extract([]byte{0xff, 0xfe, 0x00, 'a'}, KindText)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestExtract_SizeBound(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxSize+1)

	_, err := Extract(big, KindText)
	assert.ErrorIs(t, err, ErrTooLarge)
	_, err = Extract(big, KindPDF)
	assert.ErrorIs(t, err, ErrTooLarge)

	text, err := Extract(bytes.Repeat([]byte("a"), MaxSize), KindText)
	require.NoError(t, err)
	assert.Len(t, text, MaxSize)
}

func TestExtract_UnsupportedKind(t *testing.T) {
	_, err := Extract([]byte("data"), Kind("docx"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtract_IsPure(t *testing.T) {
	blob := []byte("same  input")
	first, err := Extract(blob, KindText)
	require.NoError(t, err)
	second, err := Extract(blob, KindText)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "same  input", string(blob))
}

func TestDetectKind(t *testing.T) {
	pdfHead := buildPDF("x")[:32]
	pngHead := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	tests := []struct {
		name        string
		filename    string
		contentType string
		head        []byte
		want        Kind
		wantErr     bool
	}{
		{name: "pdf extension", filename: "Resume.PDF", want: KindPDF},
		{name: "txt extension", filename: "letter.txt", want: KindText},
		{name: "markdown extension", filename: "letter.md", want: KindText},
		{name: "content type pdf", filename: "upload", contentType: "application/pdf", want: KindPDF},
		{name: "content type text with charset", filename: "upload", contentType: "text/plain; charset=utf-8", want: KindText},
		{name: "sniffed pdf", filename: "upload", contentType: "application/octet-stream", head: pdfHead, want: KindPDF},
		{name: "sniffed text", filename: "upload", head: []byte("Dear hiring manager"), want: KindText},
		{name: "image", filename: "photo.png", contentType: "image/png", head: pngHead, wantErr: true},
		{name: "docx", filename: "resume.docx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectKind(tt.filename, tt.contentType, tt.head)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "a\r\nb\rc", "a\nb\nc"},
		{"trailing whitespace", "a  \t\nb ", "a\nb"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"indent kept", "Skills\n  - Go\n  - SQL", "Skills\n  - Go\n  - SQL"},
		{"inner spaces", "Senior    Engineer\tat Acme", "Senior Engineer at Acme"},
		{"nul bytes", "a\x00b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}
