package commands

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/pdfstruct/internal/config"
	"github.com/jmylchreest/pdfstruct/internal/output"
	"github.com/jmylchreest/pdfstruct/pkg/batch"
	"github.com/jmylchreest/pdfstruct/pkg/extraction"
	"github.com/jmylchreest/pdfstruct/pkg/llm"
	"github.com/jmylchreest/pdfstruct/pkg/pdftext"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

var clearedVars = []string{
	"GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LANGEXTRACT_API_KEY",
	"PDFSTRUCT_API_GOOGLE_API_KEY", "PDFSTRUCT_API_OPENAI_API_KEY",
	"PDFSTRUCT_API_ANTHROPIC_API_KEY", "PDFSTRUCT_API_LANGEXTRACT_API_KEY",
	"PDFSTRUCT_MODEL_PROVIDER", "PDFSTRUCT_MODEL_NAME", "PDFSTRUCT_MODEL_BASE_URL",
	"PDFSTRUCT_OUTPUT_FORMAT", "PDFSTRUCT_TEMPLATE_NAME", "PDFSTRUCT_TEMPLATE_DIRS",
}

// sandbox runs the test in an empty working and home directory with no
// credentials and the pdftotext fallback disabled.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	for _, k := range clearedVars {
		t.Setenv(k, "")
	}
	t.Setenv("PDFSTRUCT_PROCESSING_NO_FALLBACK", "true")
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// buildPDF writes a minimal PDF with one line of text per page.
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

func writeFile(t *testing.T, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

const invoiceReply = `{"extractions":[{"extraction_class":"invoice_number","extraction_text":"INV-42","attributes":{"format":"alphanumeric"}}]}`

// fakeOllama serves /api/chat with a fixed reply and points the CLI at it.
func fakeOllama(t *testing.T, reply string) *atomic.Int32 {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             "llama3.2",
			"message":           map[string]string{"role": "assistant", "content": reply},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 120,
			"eval_count":        30,
		})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("PDFSTRUCT_MODEL_BASE_URL", srv.URL)
	return &calls
}

func decodeResults(t *testing.T, data string) []extraction.DocumentResult {
	t.Helper()
	var results []extraction.DocumentResult
	require.NoError(t, json.Unmarshal([]byte(data), &results), data)
	return results
}

func TestListTemplates_EachBuiltinOnce(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, config.DefaultTemplateDir, "lease.yaml"), []byte(`template_name: lease
description: Residential lease agreements
prompt: Extract the parties, rent and term.
examples:
  - text: "Lease between A and B for $900 per month"
    extractions:
      - extraction_class: rent
        extraction_text: "$900"
`))

	stdout, _, err := run(t, "list-templates")
	require.NoError(t, err)

	counts := map[string]int{}
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n")[1:] {
		fields := strings.Fields(line)
		require.NotEmpty(t, fields)
		counts[fields[0]]++
	}

	builtins := template.NewRegistry().List()
	require.Len(t, builtins, 10)
	for _, name := range builtins {
		assert.Equal(t, 1, counts[name], "template %s", name)
	}
	assert.Equal(t, 1, counts["lease"])
	assert.Contains(t, stdout, "Residential lease agreements")
	assert.Len(t, counts, 11)
}

func TestExtract_UnknownTemplate(t *testing.T) {
	sandbox(t)

	_, _, err := run(t, "extract", "doc.pdf", "-t", "no_such_template")
	require.Error(t, err)
	assert.ErrorIs(t, err, template.ErrUnknownTemplate)
	assert.Contains(t, err.Error(), "invoice")
}

func TestExtract_InvalidCustomTemplate(t *testing.T) {
	dir := sandbox(t)
	path := writeFile(t, filepath.Join(dir, "bad.yaml"), []byte("template_name: bad\nprompt: \"\"\n"))

	_, _, err := run(t, "extract", "doc.pdf", "--custom-template", path)
	assert.ErrorIs(t, err, template.ErrInvalidTemplate)
}

func TestExtract_MissingCredentials(t *testing.T) {
	dir := sandbox(t)
	pdf := writeFile(t, filepath.Join(dir, "invoice.pdf"), buildPDF("Invoice INV-42"))

	_, _, err := run(t, "extract", pdf, "-t", "invoice")
	require.Error(t, err)
	assert.ErrorIs(t, err, extraction.ErrAuthentication)
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	sandbox(t)

	_, _, err := run(t, "extract", "doc.pdf", "-t", "invoice", "-f", "docx")
	assert.ErrorIs(t, err, output.ErrUnsupportedFormat)
}

func TestExtract_Stdout(t *testing.T) {
	dir := sandbox(t)
	calls := fakeOllama(t, invoiceReply)
	pdf := writeFile(t, filepath.Join(dir, "invoice.pdf"), buildPDF("Invoice INV-42", "Total 99.50"))

	stdout, stderr, err := run(t, "extract", pdf, "-t", "invoice", "-p", "ollama", "--passes", "1")
	require.NoError(t, err, stderr)

	results := decodeResults(t, stdout)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, pdf, r.File)
	assert.Equal(t, extraction.StatusSuccess, r.Status)
	require.Len(t, r.Extractions, 1)
	assert.Equal(t, "invoice_number", r.Extractions[0].Class)
	assert.Equal(t, "INV-42", r.Extractions[0].Text)
	assert.InDelta(t, 1.0, r.Extractions[0].Confidence, 1e-9)
	assert.Equal(t, 2, r.Metadata.Pages)
	assert.Equal(t, "ollama", r.Metadata.Provider)
	assert.Equal(t, "invoice", r.Metadata.Template)
	assert.Equal(t, 1, r.Metadata.Passes)
	assert.Equal(t, int32(1), calls.Load())

	assert.Contains(t, stderr, "invoice_number: 1")
}

func TestExtract_FileOutputAndReport(t *testing.T) {
	dir := sandbox(t)
	fakeOllama(t, invoiceReply)
	pdf := writeFile(t, filepath.Join(dir, "invoice.pdf"), buildPDF("Invoice INV-42"))
	out := filepath.Join(dir, "out", "invoice.csv")

	stdout, stderr, err := run(t, "extract", pdf, "-t", "invoice", "-p", "ollama", "-o", out, "--visualize")
	require.NoError(t, err, stderr)
	assert.Empty(t, stdout)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, append(append([]string{}, output.BaseColumns...), "attr_format"), records[0])
	assert.Equal(t, "INV-42", records[1][3])
	assert.Equal(t, "alphanumeric", records[1][7])

	report, err := os.ReadFile(filepath.Join(dir, "out", "invoice_report.html"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "INV-42")
}

func TestExtract_UnreadablePDF(t *testing.T) {
	dir := sandbox(t)
	fakeOllama(t, invoiceReply)
	pdf := writeFile(t, filepath.Join(dir, "corrupt.pdf"), []byte("%PDF-1.4\nthis is not really a pdf"))

	_, _, err := run(t, "extract", pdf, "-t", "invoice", "-p", "ollama")
	require.Error(t, err)
	assert.ErrorIs(t, err, pdftext.ErrUnreadablePDF)
}

func TestBatch_EmptyFolder(t *testing.T) {
	dir := sandbox(t)
	folder := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(folder, 0o755))

	stdout, _, err := run(t, "batch", folder, "-t", "invoice")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(stdout))
}

func TestBatch_MissingFolder(t *testing.T) {
	dir := sandbox(t)

	_, _, err := run(t, "batch", filepath.Join(dir, "nope"), "-t", "invoice")
	assert.Error(t, err)
}

func TestBatch_ValidAndCorrupt(t *testing.T) {
	dir := sandbox(t)
	fakeOllama(t, invoiceReply)
	folder := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(folder, "a.pdf"), buildPDF("Invoice INV-42"))
	writeFile(t, filepath.Join(folder, "b.pdf"), []byte("garbage"))
	writeFile(t, filepath.Join(folder, "notes.txt"), []byte("ignored"))
	outDir := filepath.Join(dir, "results")

	stdout, stderr, err := run(t, "batch", folder, "-t", "invoice", "-p", "ollama", "--output-dir", outDir)
	require.NoError(t, err, stderr)
	assert.Empty(t, stdout)

	perFile, err := os.ReadFile(filepath.Join(outDir, "a_extracted.json"))
	require.NoError(t, err)
	a := decodeResults(t, string(perFile))
	require.Len(t, a, 1)
	assert.Equal(t, "INV-42", a[0].Extractions[0].Text)

	_, err = os.Stat(filepath.Join(outDir, "b_extracted.json"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(outDir, batch.SummaryFile))
	require.NoError(t, err)
	var summary batch.Summary
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, extraction.KindUnreadablePDF, summary.Files[1].ErrorKind)

	assert.Contains(t, stderr, "Failed files:")
	assert.Contains(t, stderr, "b.pdf")
}

func TestBatch_CombinedOutput(t *testing.T) {
	dir := sandbox(t)
	fakeOllama(t, invoiceReply)
	folder := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(folder, "a.pdf"), buildPDF("Invoice INV-42"))
	writeFile(t, filepath.Join(folder, "b.PDF"), buildPDF("Invoice INV-42 copy"))
	writeFile(t, filepath.Join(folder, "c.pdf"), buildPDF("Invoice INV-42 again"))

	stdout, stderr, err := run(t, "batch", folder, "-t", "invoice", "-p", "ollama", "--max-files", "2")
	require.NoError(t, err, stderr)

	results := decodeResults(t, stdout)
	require.Len(t, results, 2)
	assert.Equal(t, "a.pdf", filepath.Base(results[0].File))
	assert.Equal(t, "b.PDF", filepath.Base(results[1].File))
	for _, r := range results {
		assert.True(t, r.Succeeded(), r.Error)
	}
}

func TestBatch_NoCredentials(t *testing.T) {
	dir := sandbox(t)
	writeFile(t, filepath.Join(dir, "in", "a.pdf"), buildPDF("Invoice INV-42"))

	_, _, err := run(t, "batch", filepath.Join(dir, "in"), "-t", "invoice")
	assert.ErrorIs(t, err, extraction.ErrAuthentication)
}

func TestModels(t *testing.T) {
	sandbox(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	stdout, _, err := run(t, "models")
	require.NoError(t, err)

	for _, name := range llm.AvailableProviders() {
		assert.Contains(t, stdout, name)
	}
	assert.Contains(t, stdout, "gemini-2.5-flash")
	assert.Contains(t, stdout, "not required")
	assert.Contains(t, stdout, "missing (GOOGLE_API_KEY or GEMINI_API_KEY or LANGEXTRACT_API_KEY)")
	assert.Contains(t, stdout, "Current selection: openai (gpt-4o-mini)")
}

func TestInfo(t *testing.T) {
	dir := sandbox(t)
	pdf := writeFile(t, filepath.Join(dir, "doc.pdf"), buildPDF("Invoice INV-42", "Total 99.50"))

	stdout, _, err := run(t, "info", pdf, "--passes", "2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Pages:       2")
	assert.Contains(t, stdout, "Method:      ledongthuc/pdf")
	assert.Contains(t, stdout, "(2 passes)")
	assert.Contains(t, stdout, "--- Page 1 ---")
}

func TestVersion(t *testing.T) {
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "pdfstruct "))

	stdout, _, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, "pdfstruct", info["name"])
}

func TestResolveFormat(t *testing.T) {
	cfg := config.Default()

	f, err := resolveFormat("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatJSON, f)

	f, err = resolveFormat("", "out/results.xlsx", cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatExcel, f)

	cfg.Output.Format = "yaml"
	f, err = resolveFormat("", "results.csv", cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatCSV, f)

	f, err = resolveFormat("", "", cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatYAML, f)

	f, err = resolveFormat("html", "results.csv", cfg)
	require.NoError(t, err)
	assert.Equal(t, output.FormatHTML, f)
}

func TestWriteResults_BinaryToStdout(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})

	err := writeResults(cmd, "", output.FormatExcel, nil, "x")
	assert.Error(t, err)
}

func TestExtract_BinaryToStdoutFailsBeforeExtraction(t *testing.T) {
	dir := sandbox(t)
	calls := fakeOllama(t, invoiceReply)
	pdf := writeFile(t, filepath.Join(dir, "invoice.pdf"), buildPDF("Invoice INV-42"))

	stdout, _, err := run(t, "extract", pdf, "-t", "invoice", "-p", "ollama", "-f", "excel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be written to stdout")
	assert.Empty(t, stdout)
	assert.Zero(t, calls.Load())
}

func TestBatch_BinaryToStdoutFailsBeforeExtraction(t *testing.T) {
	dir := sandbox(t)
	calls := fakeOllama(t, invoiceReply)
	folder := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(folder, "a.pdf"), buildPDF("Invoice INV-42"))
	writeFile(t, filepath.Join(folder, "b.pdf"), buildPDF("Invoice INV-43"))

	stdout, _, err := run(t, "batch", folder, "-t", "invoice", "-p", "ollama", "-f", "excel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be written to stdout")
	assert.Empty(t, stdout)
	assert.Zero(t, calls.Load())
}

func TestBatch_ExcelPerFileOutputs(t *testing.T) {
	dir := sandbox(t)
	calls := fakeOllama(t, invoiceReply)
	folder := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(folder, "a.pdf"), buildPDF("Invoice INV-42"))
	outDir := filepath.Join(dir, "results")

	stdout, stderr, err := run(t, "batch", folder, "-t", "invoice", "-p", "ollama", "-f", "excel", "--output-dir", outDir)
	require.NoError(t, err, stderr)
	assert.Empty(t, stdout)
	assert.Positive(t, calls.Load())

	_, err = os.Stat(filepath.Join(outDir, "a_extracted.xlsx"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, batch.SummaryFile))
	assert.NoError(t, err)
}
