// Package output handles output formatting and writing of extraction results.
package output

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

// ErrUnsupportedFormat is returned for output format names that are not known.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatHTML  Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatJSON, FormatJSONL, FormatYAML, FormatCSV, FormatExcel, FormatHTML}

// ParseFormat normalizes a user-supplied format name. "excel" and "yml" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: json, jsonl, yaml, csv, excel, html)", ErrUnsupportedFormat, s)
	}
}

// FormatFromPath infers a format from a file extension. It reports false when
// the extension does not name a format.
func FormatFromPath(path string) (Format, bool) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// Extension returns the file extension for the format, without the dot.
func (f Format) Extension() string {
	return string(f)
}

// Binary reports whether the format should not be written to a terminal.
func (f Format) Binary() bool {
	return f == FormatExcel
}

// Writer serializes document results. Formats that need the whole result
// set, such as a JSON array or a workbook, buffer until Close.
type Writer interface {
	// Write outputs a single result.
	Write(result extraction.DocumentResult) error

	// WriteAll outputs multiple results.
	WriteAll(results []extraction.DocumentResult) error

	// Close writes any buffered output.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty bool
	indent string
	title  string
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithTitle sets the title of the HTML report.
func WithTitle(title string) WriterOption {
	return func(c *writerConfig) {
		c.title = title
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
		title:  "Extraction report",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		return NewJSONWriter(w, cfg.pretty, cfg.indent), nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		return NewYAMLWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatExcel:
		return NewExcelWriter(w), nil
	case FormatHTML:
		return NewHTMLWriter(w, cfg.title), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Render serializes results in one call.
func Render(results []extraction.DocumentResult, format Format, opts ...WriterOption) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format, opts...)
	if err != nil {
		return nil, err
	}
	if err := w.WriteAll(results); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buffer collects results for writers that emit everything on Close.
type buffer struct {
	results []extraction.DocumentResult
}

func (b *buffer) Write(result extraction.DocumentResult) error {
	b.results = append(b.results, result)
	return nil
}

func (b *buffer) WriteAll(results []extraction.DocumentResult) error {
	b.results = append(b.results, results...)
	return nil
}

// all returns the buffered results, never nil.
func (b *buffer) all() []extraction.DocumentResult {
	if b.results == nil {
		return []extraction.DocumentResult{}
	}
	return b.results
}
