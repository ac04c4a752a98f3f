package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jmylchreest/pdfstruct/internal/logger"
)

// PDFExtractor reads the text layer with github.com/ledongthuc/pdf and falls
// back to the pdftotext binary when the native parser yields nothing.
type PDFExtractor struct {
	pdftotext string
	fallback  bool
}

// Option configures a PDFExtractor.
type Option func(*PDFExtractor)

// WithoutFallback disables the pdftotext fallback.
func WithoutFallback() Option {
	return func(e *PDFExtractor) {
		e.fallback = false
	}
}

// WithPdftotextPath sets the pdftotext binary to use for the fallback.
func WithPdftotextPath(path string) Option {
	return func(e *PDFExtractor) {
		e.pdftotext = path
	}
}

// New creates a PDFExtractor.
func New(opts ...Option) *PDFExtractor {
	e := &PDFExtractor{
		pdftotext: "pdftotext",
		fallback:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the text of the PDF at path.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s: not a .pdf file", ErrUnreadablePDF, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s: is a directory", ErrUnreadablePDF, path)
	}

	pageCount, pages, nativeErr := readNative(path)
	if nativeErr == nil {
		if text := JoinPages(pages); text != "" {
			logger.Debug("extracted PDF text", "path", path, "pages", pageCount, "chars", len(text))
			return &Document{
				Path:      path,
				Text:      text,
				Pages:     pages,
				PageCount: pageCount,
				Method:    MethodNative,
			}, nil
		}
	} else {
		logger.Debug("native PDF parser failed", "path", path, "error", nativeErr)
	}

	if e.fallback {
		doc, err := e.extractPdftotext(ctx, path)
		switch {
		case err == nil:
			if doc.PageCount < pageCount {
				doc.PageCount = pageCount
			}
			return doc, nil
		case errors.Is(err, exec.ErrNotFound):
			logger.Debug("pdftotext not available", "path", path)
		default:
			logger.Debug("pdftotext fallback failed", "path", path, "error", err)
		}
	}

	if nativeErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, path, nativeErr)
	}
	return nil, fmt.Errorf("%w: %s: no extractable text (scanned or image-only document?)", ErrUnreadablePDF, path)
}

// readNative extracts page text with the pure-Go parser. The parser panics on
// some malformed input, so panics are turned into errors.
func readNative(path string) (pageCount int, pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = f.Close() }()

	pageCount = r.NumPage()
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= pageCount; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}

		text, err := p.GetPlainText(fonts)
		if err != nil {
			return pageCount, nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: strings.TrimSpace(text)})
	}
	return pageCount, pages, nil
}

// extractPdftotext shells out to pdftotext. Its output separates pages with
// form feeds.
func (e *PDFExtractor) extractPdftotext(ctx context.Context, path string) (*Document, error) {
	bin, err := exec.LookPath(e.pdftotext)
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-layout", path, "-") //#nosec G204 -- fixed arguments, user-selected file
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw := strings.Split(strings.TrimRight(string(out), "\f\n"), "\f")
	pages := make([]Page, 0, len(raw))
	for i, text := range raw {
		pages = append(pages, Page{Number: i + 1, Text: strings.TrimSpace(text)})
	}

	text := JoinPages(pages)
	if text == "" {
		return nil, errors.New("pdftotext produced no text")
	}
	logger.Debug("extracted PDF text with pdftotext", "path", path, "pages", len(pages), "chars", len(text))
	return &Document{
		Path:      path,
		Text:      text,
		Pages:     pages,
		PageCount: len(pages),
		Method:    MethodPdftotext,
	}, nil
}
