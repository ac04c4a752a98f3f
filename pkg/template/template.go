// Package template defines extraction templates: a prompt plus few-shot
// examples that steer the LLM towards a document type.
package template

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTemplate is returned when a name matches neither a built-in
	// template nor a template file in any configured directory.
	ErrUnknownTemplate = errors.New("unknown template")

	// ErrInvalidTemplate is returned when a template file cannot be parsed or
	// is missing required fields.
	ErrInvalidTemplate = errors.New("invalid template")
)

// Default extraction settings applied when a template does not set them.
const (
	DefaultExtractionPasses = 1
	MaxExtractionPasses     = 3
	DefaultMaxCharBuffer    = 1000
)

// SourceKind distinguishes built-in templates from ones loaded from disk.
type SourceKind string

const (
	SourceBuiltin SourceKind = "builtin"
	SourceFile    SourceKind = "file"
)

// Source records where a template came from.
type Source struct {
	Kind SourceKind `json:"kind" yaml:"kind"`
	Path string     `json:"path,omitempty" yaml:"path,omitempty"`
}

func (s Source) String() string {
	if s.Kind == SourceFile {
		return "file:" + s.Path
	}
	return string(s.Kind)
}

// Template bundles the instructions and examples for one document type.
type Template struct {
	Name        string    `json:"template_name" yaml:"template_name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Prompt      string    `json:"prompt" yaml:"prompt" validate:"required"`
	Examples    []Example `json:"examples" yaml:"examples" validate:"required,min=1,dive"`
	Fields      []string  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Settings    Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`
	Source      Source    `json:"-" yaml:"-"`
}

// Example is a sample text paired with the extractions expected from it.
type Example struct {
	Text        string              `json:"text" yaml:"text" validate:"required"`
	Extractions []ExampleExtraction `json:"extractions" yaml:"extractions" validate:"required,min=1,dive"`
}

// ExampleExtraction is one expected extraction in an Example.
type ExampleExtraction struct {
	Class      string         `json:"extraction_class" yaml:"extraction_class" validate:"required"`
	Text       string         `json:"extraction_text" yaml:"extraction_text" validate:"required"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Settings tune how a template is run against a document.
type Settings struct {
	// ExtractionPasses is how many times each chunk is sent to the model.
	// Later passes only add extractions not already found.
	ExtractionPasses int `json:"extraction_passes,omitempty" yaml:"extraction_passes,omitempty" validate:"omitempty,min=0"`

	// MaxCharBuffer caps the size of each chunk of document text, in bytes.
	MaxCharBuffer int `json:"max_char_buffer,omitempty" yaml:"max_char_buffer,omitempty" validate:"omitempty,min=0"`
}

// Passes returns the effective number of extraction passes.
func (s Settings) Passes() int {
	switch {
	case s.ExtractionPasses <= 0:
		return DefaultExtractionPasses
	case s.ExtractionPasses > MaxExtractionPasses:
		return MaxExtractionPasses
	default:
		return s.ExtractionPasses
	}
}

// CharBuffer returns the effective chunk size.
func (s Settings) CharBuffer() int {
	if s.MaxCharBuffer <= 0 {
		return DefaultMaxCharBuffer
	}
	return s.MaxCharBuffer
}

// WithPasses returns a copy of t with the extraction pass count overridden.
// Values outside [1, MaxExtractionPasses] are clamped by Settings.Passes.
func (t Template) WithPasses(n int) Template {
	t.Settings.ExtractionPasses = n
	return t
}

// Classes returns the distinct extraction classes used by the examples, in
// first-seen order.
func (t Template) Classes() []string {
	seen := make(map[string]bool)
	var classes []string
	for _, ex := range t.Examples {
		for _, e := range ex.Extractions {
			if !seen[e.Class] {
				seen[e.Class] = true
				classes = append(classes, e.Class)
			}
		}
	}
	return classes
}

func (t Template) String() string {
	return fmt.Sprintf("%s (%s, %d examples)", t.Name, t.Source, len(t.Examples))
}

// normalize trims free text so that whitespace-only fields fail validation.
func (t *Template) normalize() {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.Prompt = strings.TrimSpace(t.Prompt)
	for i := range t.Examples {
		t.Examples[i].Text = strings.TrimSpace(t.Examples[i].Text)
		for j := range t.Examples[i].Extractions {
			e := &t.Examples[i].Extractions[j]
			e.Class = strings.TrimSpace(e.Class)
			e.Text = strings.TrimSpace(e.Text)
		}
	}
}
