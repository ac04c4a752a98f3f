package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmylchreest/pdfstruct/pkg/template"
)

const systemPrompt = `You are a document extraction assistant. Your task is to extract structured information from the text of a PDF document.

Rules:
1. Follow the task description and mirror the style of the examples
2. Use the exact wording from the document for extraction_text, do not paraphrase
3. Only extract information that is present in the document text
4. Use attributes for context that helps interpret an extraction
5. Set confidence between 0 and 1 when you are unsure
6. Return only JSON of the form {"extractions": [{"extraction_class": "...", "extraction_text": "...", "attributes": {...}, "confidence": 0.9}]}
7. Return {"extractions": []} when nothing relevant is present`

// responseItem is the wire form of one extraction in prompts and replies.
type responseItem struct {
	Class      string         `json:"extraction_class"`
	Text       string         `json:"extraction_text"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type responsePayload struct {
	Extractions []responseItem `json:"extractions"`
}

// responseSchema constrains providers that support structured output.
var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"extractions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"extraction_class": map[string]any{"type": "string"},
					"extraction_text":  map[string]any{"type": "string"},
					"attributes":       map[string]any{"type": "object"},
					"confidence":       map[string]any{"type": "number"},
				},
				"required": []string{"extraction_class", "extraction_text"},
			},
		},
	},
	"required": []string{"extractions"},
}

// SystemPrompt returns the fixed system prompt sent with every request.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt renders the user prompt for one chunk of document text: the
// template task, its few-shot examples, then the chunk.
func BuildPrompt(tmpl template.Template, chunk string) string {
	var prompt strings.Builder

	prompt.WriteString("## Task\n")
	prompt.WriteString(tmpl.Prompt)
	prompt.WriteString("\n")

	if len(tmpl.Fields) > 0 {
		prompt.WriteString("\nExpected fields: ")
		prompt.WriteString(strings.Join(tmpl.Fields, ", "))
		prompt.WriteString("\n")
	}

	if classes := tmpl.Classes(); len(classes) > 0 {
		prompt.WriteString("Extraction classes used in the examples: ")
		prompt.WriteString(strings.Join(classes, ", "))
		prompt.WriteString("\n")
	}

	prompt.WriteString("\n## Examples\n")
	for i, ex := range tmpl.Examples {
		fmt.Fprintf(&prompt, "\n### Example %d\nText:\n```\n%s\n```\nOutput:\n```json\n%s\n```\n",
			i+1, ex.Text, renderExample(ex))
	}

	prompt.WriteString("\n## Document\n")
	prompt.WriteString("```\n")
	prompt.WriteString(chunk)
	prompt.WriteString("\n```\n")

	return prompt.String()
}

func renderExample(ex template.Example) string {
	payload := responsePayload{Extractions: make([]responseItem, 0, len(ex.Extractions))}
	for _, e := range ex.Extractions {
		payload.Extractions = append(payload.Extractions, responseItem{
			Class:      e.Class,
			Text:       e.Text,
			Attributes: e.Attributes,
		})
	}
	// Attribute values come from YAML or JSON and always marshal.
	data, _ := json.MarshalIndent(payload, "", "  ")
	return string(data)
}

// StripMarkdownCodeBlock removes markdown code block wrappers from JSON responses.
// Some models wrap their JSON output in ```json ... ``` blocks.
func StripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	} else {
		return s
	}

	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}
