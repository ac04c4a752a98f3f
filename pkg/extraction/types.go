// Package extraction sends document text to an LLM together with a template's
// prompt and few-shot examples and turns the reply into grounded extractions.
package extraction

import (
	"errors"
	"time"

	"github.com/jmylchreest/pdfstruct/pkg/llm"
)

// Span locates an extraction in the document text, as byte offsets.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Extraction is one field found in a document.
type Extraction struct {
	Class      string         `json:"extraction_class" yaml:"extraction_class"`
	Text       string         `json:"extraction_text" yaml:"extraction_text"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Span       *Span          `json:"span,omitempty" yaml:"span,omitempty"`
}

// Output is the result of running a template over one document's text.
type Output struct {
	Extractions []Extraction
	Usage       llm.Usage
	Cost        float64
	Provider    string
	Model       string
	Chunks      int
	Passes      int
	Duration    time.Duration
}

// Status is the outcome of processing one document.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Metadata describes how a document was processed.
type Metadata struct {
	Pages         int     `json:"pages,omitempty" yaml:"pages,omitempty"`
	TextLength    int     `json:"text_length,omitempty" yaml:"text_length,omitempty"`
	TextMethod    string  `json:"text_method,omitempty" yaml:"text_method,omitempty"`
	Template      string  `json:"template,omitempty" yaml:"template,omitempty"`
	Provider      string  `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model         string  `json:"model,omitempty" yaml:"model,omitempty"`
	Passes        int     `json:"passes,omitempty" yaml:"passes,omitempty"`
	Chunks        int     `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	InputTokens   int     `json:"input_tokens,omitempty" yaml:"input_tokens,omitempty"`
	OutputTokens  int     `json:"output_tokens,omitempty" yaml:"output_tokens,omitempty"`
	EstimatedCost float64 `json:"estimated_cost_usd,omitempty" yaml:"estimated_cost_usd,omitempty"`
	DurationMS    int64   `json:"duration_ms" yaml:"duration_ms"`
}

// DocumentResult is the record written for one input file. Extractions is
// never nil so that it serializes as an empty list.
type DocumentResult struct {
	File        string       `json:"file" yaml:"file"`
	Status      Status       `json:"status" yaml:"status"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind   ErrorKind    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Extractions []Extraction `json:"extractions" yaml:"extractions"`
	Metadata    Metadata     `json:"metadata" yaml:"metadata"`

	err error
}

// Succeeded reports whether the document was processed without error.
func (r DocumentResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Err returns the error that failed the document, or nil on success. For
// results decoded from serialized output only the message survives.
func (r DocumentResult) Err() error {
	switch {
	case r.err != nil:
		return r.err
	case r.Error != "":
		return errors.New(r.Error)
	default:
		return nil
	}
}

// NewResult builds a successful DocumentResult from an Output.
func NewResult(file string, out *Output) DocumentResult {
	r := DocumentResult{
		File:        file,
		Status:      StatusSuccess,
		Extractions: out.Extractions,
		Metadata: Metadata{
			Provider:      out.Provider,
			Model:         out.Model,
			Passes:        out.Passes,
			Chunks:        out.Chunks,
			InputTokens:   out.Usage.InputTokens,
			OutputTokens:  out.Usage.OutputTokens,
			EstimatedCost: out.Cost,
			DurationMS:    out.Duration.Milliseconds(),
		},
	}
	if r.Extractions == nil {
		r.Extractions = []Extraction{}
	}
	return r
}

// FailedResult builds a DocumentResult recording err.
func FailedResult(file string, err error) DocumentResult {
	return DocumentResult{
		File:        file,
		Status:      StatusFailed,
		Error:       err.Error(),
		ErrorKind:   Kind(err),
		Extractions: []Extraction{},
		err:         err,
	}
}
