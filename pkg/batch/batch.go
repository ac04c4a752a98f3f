// Package batch runs a template over every PDF in a folder, one file at a
// time, isolating per-file failures in that file's result.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmylchreest/pdfstruct/internal/logger"
	"github.com/jmylchreest/pdfstruct/pkg/extraction"
	"github.com/jmylchreest/pdfstruct/pkg/pdftext"
	"github.com/jmylchreest/pdfstruct/pkg/template"
)

// Processor turns PDF files into DocumentResults.
type Processor struct {
	// Text extracts document text. Defaults to pdftext.New().
	Text pdftext.Extractor

	// Client runs the template over the text.
	Client *extraction.Client

	// MaxFiles limits how many files RunBatch processes (0 = unlimited).
	MaxFiles int

	// OnResult, when set, is called after each file with its position in the
	// batch (1-based) and the batch size.
	OnResult func(result extraction.DocumentResult, index, total int)
}

// New creates a Processor using the default text extractor.
func New(client *extraction.Client) *Processor {
	return &Processor{
		Text:   pdftext.New(),
		Client: client,
	}
}

// ProcessFile extracts text from path and runs tmpl over it. It never returns
// an error: failures are recorded in the result.
func (p *Processor) ProcessFile(ctx context.Context, path string, tmpl template.Template) (result extraction.DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(ctx, "panic while processing file", "file", path, "panic", r)
			result = extraction.FailedResult(path, fmt.Errorf("internal error: %v", r))
			result.Metadata.Template = tmpl.Name
		}
	}()

	text := p.Text
	if text == nil {
		text = pdftext.New()
	}

	meta := extraction.Metadata{Template: tmpl.Name}

	doc, err := text.Extract(ctx, path)
	if err != nil {
		result = extraction.FailedResult(path, err)
		result.Metadata = meta
		return result
	}
	meta.Pages = doc.PageCount
	meta.TextLength = len(doc.Text)
	meta.TextMethod = string(doc.Method)

	client := p.Client
	if client == nil {
		client = extraction.New(nil)
	}
	out, err := client.Extract(ctx, doc.Text, tmpl)
	if err != nil {
		result = extraction.FailedResult(path, err)
		result.Metadata = meta
		return result
	}

	result = extraction.NewResult(path, out)
	result.Metadata.Pages = meta.Pages
	result.Metadata.TextLength = meta.TextLength
	result.Metadata.TextMethod = meta.TextMethod
	result.Metadata.Template = meta.Template
	return result
}

// RunBatch processes the *.pdf files directly inside folder in name order.
// It only fails when the folder cannot be listed; an empty folder yields an
// empty slice. A cancelled context stops the loop between files and returns
// the results gathered so far with the context error.
func (p *Processor) RunBatch(ctx context.Context, folder string, tmpl template.Template) ([]extraction.DocumentResult, error) {
	files, err := FindPDFs(folder)
	if err != nil {
		return nil, err
	}
	if p.MaxFiles > 0 && len(files) > p.MaxFiles {
		logger.Info("limiting batch", "found", len(files), "max_files", p.MaxFiles)
		files = files[:p.MaxFiles]
	}

	logger.Debug("batch starting", "folder", folder, "files", len(files), "template", tmpl.Name)

	results := make([]extraction.DocumentResult, 0, len(files))
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := p.ProcessFile(ctx, file, tmpl)
		results = append(results, result)

		log := logger.With("file", file)
		if result.Succeeded() {
			log.DebugContext(ctx, "file processed", "extractions", len(result.Extractions))
		} else {
			log.DebugContext(ctx, "file failed", "kind", result.ErrorKind, "error", result.Error)
		}
		if p.OnResult != nil {
			p.OnResult(result, i+1, len(files))
		}
	}
	return results, nil
}

// FindPDFs lists the files in folder with a .pdf extension (any case),
// sorted by name. Subdirectories are not searched.
func FindPDFs(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("reading batch folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reading batch folder: %s is not a directory", folder)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading batch folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(folder, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
