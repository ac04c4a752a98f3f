// Package pdftext extracts the text layer of PDF files.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrUnreadablePDF is returned when a file is not a readable PDF: missing,
// corrupt, encrypted, unsupported or without any text layer.
var ErrUnreadablePDF = errors.New("unreadable PDF")

// Method names the backend that produced a Document's text.
type Method string

const (
	MethodNative    Method = "ledongthuc/pdf"
	MethodPdftotext Method = "pdftotext"
)

// Extractor turns a PDF file into text.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Document, error)
}

// Page is the text of one page. Number is 1-based.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the extracted text of a PDF.
type Document struct {
	Path      string `json:"path"`
	Text      string `json:"text"`
	Pages     []Page `json:"pages"`
	PageCount int    `json:"page_count"`
	Method    Method `json:"method"`
}

func (d *Document) String() string {
	return fmt.Sprintf("%s: %d pages, %s characters via %s",
		d.Path, d.PageCount, humanize.Comma(int64(len(d.Text))), d.Method)
}

// JoinPages renders pages as the document text, each non-empty page prefixed
// with a "--- Page N ---" marker and separated by a blank line.
func JoinPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s", p.Number, text)
	}
	return b.String()
}

// Sample returns at most n bytes of text, cut back to a rune boundary, with
// "..." appended when the text was truncated.
func Sample(text string, n int) string {
	if n <= 0 || len(text) <= n {
		return text
	}
	cut := n
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// Rough model throughput used for estimates shown to the user.
const secondsPerThousandChars = 2.0

// EstimateProcessingTime gives a rough wall-clock estimate for extracting
// chars characters of text with the given number of passes.
func EstimateProcessingTime(chars, passes int) time.Duration {
	if passes < 1 {
		passes = 1
	}
	seconds := float64(chars) / 1000 * secondsPerThousandChars * float64(passes)
	return time.Duration(seconds * float64(time.Second)).Round(time.Second)
}

// FormatEstimate renders an estimate in seconds or minutes.
func FormatEstimate(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	return fmt.Sprintf("%.1f minutes", d.Minutes())
}
