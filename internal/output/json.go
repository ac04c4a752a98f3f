package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

// JSONWriter writes results as a JSON array, even for a single document, so
// that consumers see one shape for single-file and batch runs.
type JSONWriter struct {
	buffer
	w      *bufio.Writer
	pretty bool
	indent string
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
	}
}

// Close writes the buffered results as a JSON array.
func (w *JSONWriter) Close() error {
	var output []byte
	var err error

	if w.pretty {
		output, err = json.MarshalIndent(w.all(), "", w.indent)
	} else {
		output, err = json.Marshal(w.all())
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	return w.w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL), one result per line.
type JSONLWriter struct {
	w *bufio.Writer
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{
		w: bufio.NewWriter(w),
	}
}

// Write writes a single result as a JSON line.
func (w *JSONLWriter) Write(result extraction.DocumentResult) error {
	output, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if _, err := w.w.Write(output); err != nil {
		return err
	}
	if _, err := w.w.WriteString("\n"); err != nil {
		return err
	}

	return w.w.Flush()
}

// WriteAll writes multiple results as JSON lines.
func (w *JSONLWriter) WriteAll(results []extraction.DocumentResult) error {
	for _, r := range results {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.w.Flush()
}
