package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedBuiltins = []string{
	"academic_paper",
	"bank_statement",
	"business_card",
	"contract",
	"invoice",
	"medical_report",
	"receipt",
	"research_paper",
	"resume",
	"tax_document",
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validYAML = `
template_name: purchase_order
description: Purchase orders
prompt: Extract the buyer and the order number.
examples:
  - text: "PO 7781 issued by Kestrel Foods"
    extractions:
      - extraction_class: order_number
        extraction_text: "7781"
      - extraction_class: buyer
        extraction_text: Kestrel Foods
        attributes:
          type: company
`

func TestRegistry_BuiltinsHavePromptAndExamples(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, expectedBuiltins, r.List())

	for _, name := range r.List() {
		t.Run(name, func(t *testing.T) {
			tmpl, err := r.Get(name)
			require.NoError(t, err)

			assert.Equal(t, name, tmpl.Name)
			assert.NotEmpty(t, tmpl.Prompt)
			assert.NotEmpty(t, tmpl.Description)
			require.NotEmpty(t, tmpl.Examples)
			for _, ex := range tmpl.Examples {
				assert.NotEmpty(t, ex.Text)
				assert.NotEmpty(t, ex.Extractions)
			}
			assert.Equal(t, SourceBuiltin, tmpl.Source.Kind)
			assert.GreaterOrEqual(t, tmpl.Settings.Passes(), 1)
			assert.LessOrEqual(t, tmpl.Settings.Passes(), MaxExtractionPasses)
		})
	}
}

func TestRegistry_UnknownTemplate(t *testing.T) {
	r := NewRegistry(t.TempDir())

	_, err := r.Get("nonexistent_template")
	require.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Contains(t, err.Error(), "invoice")
}

func TestRegistry_GetFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "purchase_order.yaml", validYAML)

	r := NewRegistry(dir)
	tmpl, err := r.Get("purchase_order")
	require.NoError(t, err)

	assert.Equal(t, "purchase_order", tmpl.Name)
	assert.Equal(t, SourceFile, tmpl.Source.Kind)
	assert.Equal(t, filepath.Join(dir, "purchase_order.yaml"), tmpl.Source.Path)
	assert.Equal(t, []string{"order_number", "buyer"}, tmpl.Classes())
}

func TestRegistry_GetFromDirectory_LegacyJSONName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "memo_template.json", `{
		"name": "memo",
		"prompt": "Extract the memo author.",
		"examples": [{"text": "From: Ana", "extractions": [{"extraction_class": "author", "extraction_text": "Ana"}]}]
	}`)

	tmpl, err := NewRegistry(dir).Get("memo")
	require.NoError(t, err)
	assert.Equal(t, "memo", tmpl.Name)
}

func TestRegistry_BuiltinShadowsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "invoice.yaml", validYAML)

	r := NewRegistry(dir)
	tmpl, err := r.Get("invoice")
	require.NoError(t, err)
	assert.Equal(t, SourceBuiltin, tmpl.Source.Kind)

	count := 0
	for _, e := range r.ListAll() {
		if e.Name == "invoice" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRegistry_ListAllIncludesCustom(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "po.yaml", validYAML)
	writeFile(t, dir, "broken.yaml", "prompt: only a prompt")
	writeFile(t, dir, "notes.txt", "ignored")

	entries := NewRegistry(dir).ListAll()
	require.Len(t, entries, len(expectedBuiltins)+1)

	last := entries[len(entries)-1]
	assert.Equal(t, "purchase_order", last.Name)
	assert.Equal(t, SourceFile, last.Source.Kind)
}

func TestRegistry_Resolve(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "po.yaml", validYAML)
	r := NewRegistry()

	tmpl, err := r.Resolve("invoice", path)
	require.NoError(t, err)
	assert.Equal(t, "purchase_order", tmpl.Name)

	tmpl, err = r.Resolve("resume", "")
	require.NoError(t, err)
	assert.Equal(t, "resume", tmpl.Name)

	_, err = r.Resolve("", "")
	assert.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestLoadCustom_Valid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "po.yaml", validYAML)

	tmpl, err := LoadCustom(path)
	require.NoError(t, err)

	assert.Equal(t, "Extract the buyer and the order number.", tmpl.Prompt)
	require.Len(t, tmpl.Examples, 1)
	require.Len(t, tmpl.Examples[0].Extractions, 2)
	assert.Equal(t, "company", tmpl.Examples[0].Extractions[1].Attributes["type"])
	assert.Equal(t, DefaultExtractionPasses, tmpl.Settings.Passes())
	assert.Equal(t, DefaultMaxCharBuffer, tmpl.Settings.CharBuffer())
}

func TestLoadCustom_NameFromFilename(t *testing.T) {
	path := writeFile(t, t.TempDir(), "lease_template.json", `{
		"prompt": "Extract the landlord.",
		"examples": [{"text": "Landlord: Bo", "extractions": [{"extraction_class": "landlord", "extraction_text": "Bo"}]}]
	}`)

	tmpl, err := LoadCustom(path)
	require.NoError(t, err)
	assert.Equal(t, "lease", tmpl.Name)
}

func TestLoadCustom_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name:    "missing prompt",
			file:    "t.json",
			content: `{"template_name": "x", "examples": [{"text": "a", "extractions": [{"extraction_class": "c", "extraction_text": "a"}]}]}`,
		},
		{
			name:    "blank prompt",
			file:    "t.json",
			content: `{"template_name": "x", "prompt": "   ", "examples": [{"text": "a", "extractions": [{"extraction_class": "c", "extraction_text": "a"}]}]}`,
		},
		{
			name:    "missing examples",
			file:    "t.yaml",
			content: "template_name: x\nprompt: Extract things\n",
		},
		{
			name:    "empty examples",
			file:    "t.yaml",
			content: "template_name: x\nprompt: Extract things\nexamples: []\n",
		},
		{
			name:    "example without text",
			file:    "t.yaml",
			content: "prompt: p\nexamples:\n  - extractions:\n      - extraction_class: c\n        extraction_text: t\n",
		},
		{
			name:    "extraction without class",
			file:    "t.yaml",
			content: "prompt: p\nexamples:\n  - text: t\n    extractions:\n      - extraction_text: t\n",
		},
		{
			name:    "examples wrong type",
			file:    "t.json",
			content: `{"prompt": "p", "examples": "not a list"}`,
		},
		{
			name:    "invalid json",
			file:    "t.json",
			content: `{"prompt": `,
		},
		{
			name:    "unsupported extension",
			file:    "t.txt",
			content: validYAML,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)
			_, err := LoadCustom(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestLoadCustom_MissingFile(t *testing.T) {
	_, err := LoadCustom(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}

func TestSettings_Passes(t *testing.T) {
	assert.Equal(t, 1, Settings{}.Passes())
	assert.Equal(t, 2, Settings{ExtractionPasses: 2}.Passes())
	assert.Equal(t, 3, Settings{ExtractionPasses: 7}.Passes())

	tmpl := Template{}.WithPasses(3)
	assert.Equal(t, 3, tmpl.Settings.Passes())
}
