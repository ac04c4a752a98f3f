package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal uncompressed PDF with one line of Helvetica text
// per page and a correct cross-reference table.
func buildPDF(pages ...string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	n := len(pages)
	fontID := 3 + 2*n
	kids := ""
	for i := range pages {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}

	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 %d 0 R >> >> >>", 4+2*i, fontID))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestExtract_NativeText(t *testing.T) {
	path := writeTemp(t, "invoice.pdf", buildPDF("Invoice 42", "Total 99.50"))

	doc, err := New(WithoutFallback()).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, MethodNative, doc.Method)
	assert.Equal(t, 2, doc.PageCount)
	require.Len(t, doc.Pages, 2)
	assert.Contains(t, doc.Pages[0].Text, "Invoice 42")
	assert.Contains(t, doc.Pages[1].Text, "Total 99.50")
	assert.Contains(t, doc.Text, "--- Page 1 ---")
	assert.Contains(t, doc.Text, "--- Page 2 ---")
}

func TestExtract_CorruptFile(t *testing.T) {
	path := writeTemp(t, "broken.pdf", []byte("%PDF-1.4\nthis is not really a pdf"))

	_, err := New(WithoutFallback()).Extract(context.Background(), path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadablePDF)
	assert.Contains(t, err.Error(), path)
}

func TestExtract_CorruptFileWithFallback(t *testing.T) {
	path := writeTemp(t, "broken.pdf", []byte("not a pdf at all"))

	_, err := New(WithPdftotextPath("pdftotext-missing-for-test")).Extract(context.Background(), path)
	assert.ErrorIs(t, err, ErrUnreadablePDF)
}

func TestExtract_InvalidInputs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o750))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pdf")},
		{name: "wrong extension", path: writeTemp(t, "notes.txt", buildPDF("hello"))},
		{name: "directory", path: filepath.Join(dir, "folder.pdf")},
	}

	e := New(WithoutFallback())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), tt.path)
			assert.ErrorIs(t, err, ErrUnreadablePDF)
		})
	}
}

func TestExtract_UppercaseExtension(t *testing.T) {
	path := writeTemp(t, "SCAN.PDF", []byte("garbage"))

	_, err := New(WithoutFallback()).Extract(context.Background(), path)
	require.ErrorIs(t, err, ErrUnreadablePDF)
	assert.NotContains(t, err.Error(), "not a .pdf file")
}

func TestExtract_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Extract(ctx, "whatever.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoinPages(t *testing.T) {
	text := JoinPages([]Page{
		{Number: 1, Text: "  first  "},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "third"},
	})
	assert.Equal(t, "--- Page 1 ---\nfirst\n\n--- Page 3 ---\nthird", text)
	assert.Empty(t, JoinPages(nil))
}

func TestSample(t *testing.T) {
	assert.Equal(t, "short", Sample("short", 500))
	assert.Equal(t, "abc...", Sample("abcdef", 3))
	assert.Equal(t, "é...", Sample("éé", 3))
	assert.Equal(t, "anything", Sample("anything", 0))
}

func TestEstimateProcessingTime(t *testing.T) {
	assert.Equal(t, 2*time.Second, EstimateProcessingTime(1000, 1))
	assert.Equal(t, 20*time.Second, EstimateProcessingTime(5000, 2))
	assert.Equal(t, 2*time.Second, EstimateProcessingTime(1000, 0))
	assert.Equal(t, time.Duration(0), EstimateProcessingTime(0, 3))

	assert.Equal(t, "20 seconds", FormatEstimate(20*time.Second))
	assert.Equal(t, "1.5 minutes", FormatEstimate(90*time.Second))
}

func TestDocument_String(t *testing.T) {
	doc := &Document{Path: "a.pdf", Text: "xyz", PageCount: 1, Method: MethodNative}
	assert.Equal(t, "a.pdf: 1 pages, 3 characters via ledongthuc/pdf", doc.String())
}
