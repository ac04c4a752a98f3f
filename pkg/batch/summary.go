package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

// SummaryFile is the name of the summary written into an output directory.
const SummaryFile = "batch_summary.json"

// FileStatus is one line of a batch summary.
type FileStatus struct {
	File        string               `json:"file"`
	Status      extraction.Status    `json:"status"`
	Extractions int                  `json:"extractions"`
	ErrorKind   extraction.ErrorKind `json:"error_kind,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Summary aggregates the outcome of a batch run.
type Summary struct {
	RunID       string       `json:"run_id"`
	Template    string       `json:"template,omitempty"`
	CompletedAt time.Time    `json:"completed_at"`
	Total       int          `json:"total"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Extractions int          `json:"extractions"`
	Files       []FileStatus `json:"files"`
}

// Summarize builds a Summary with a fresh run ID.
func Summarize(results []extraction.DocumentResult) Summary {
	s := Summary{
		RunID:       uuid.NewString(),
		CompletedAt: time.Now().UTC(),
		Total:       len(results),
		Files:       make([]FileStatus, 0, len(results)),
	}
	for _, r := range results {
		if s.Template == "" {
			s.Template = r.Metadata.Template
		}
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Extractions += len(r.Extractions)
		s.Files = append(s.Files, FileStatus{
			File:        r.File,
			Status:      r.Status,
			Extractions: len(r.Extractions),
			ErrorKind:   r.ErrorKind,
			Error:       r.Error,
		})
	}
	return s
}

// FailedFiles returns the entries that did not succeed.
func (s Summary) FailedFiles() []FileStatus {
	var failed []FileStatus
	for _, f := range s.Files {
		if f.Status != extraction.StatusSuccess {
			failed = append(failed, f)
		}
	}
	return failed
}

// WriteFile writes the summary as indented JSON to dir/batch_summary.json and
// returns the path.
func (s Summary) WriteFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, SummaryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing batch summary: %w", err)
	}
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename replaces characters that are not safe in file names and
// trims leading and trailing dots and spaces.
func SanitizeFilename(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "unnamed"
	}
	return name
}

// OutputName returns the per-file output name for a PDF: its base name
// without extension, sanitized, with ext appended.
func OutputName(pdfPath, ext string) string {
	base := filepath.Base(pdfPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return SanitizeFilename(base) + "_extracted." + strings.TrimPrefix(ext, ".")
}
