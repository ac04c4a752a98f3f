package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/pdfstruct/internal/logger"
)

// rawExtraction accepts loosely typed model output.
type rawExtraction struct {
	Class      string         `json:"extraction_class"`
	Text       any            `json:"extraction_text"`
	Attributes map[string]any `json:"attributes"`
	Confidence *float64       `json:"confidence"`
}

// parsedItem is a validated extraction from a model reply.
type parsedItem struct {
	Class      string
	Text       string
	Attributes map[string]any
	Confidence *float64
}

// parseResponse decodes a model reply into extractions. The reply may be
// wrapped in a markdown code fence and may be either an object with an
// "extractions" list or a bare list.
func parseResponse(content string) ([]parsedItem, error) {
	body := StripMarkdownCodeBlock(content)
	if body == "" {
		return nil, errors.New("empty response")
	}

	var items []rawExtraction
	switch body[0] {
	case '[':
		if err := decodeJSON(body, &items); err != nil {
			return nil, err
		}
	case '{':
		var payload struct {
			Extractions *[]rawExtraction `json:"extractions"`
		}
		if err := decodeJSON(body, &payload); err != nil {
			return nil, err
		}
		if payload.Extractions == nil {
			return nil, errors.New(`response has no "extractions" field`)
		}
		items = *payload.Extractions
	default:
		return nil, fmt.Errorf("response is not JSON: %s", truncateForError(body))
	}

	parsed := make([]parsedItem, 0, len(items))
	for _, it := range items {
		class := strings.TrimSpace(it.Class)
		text := strings.TrimSpace(stringify(it.Text))
		if class == "" || text == "" {
			logger.Debug("dropping incomplete extraction", "class", class, "text", text)
			continue
		}
		parsed = append(parsed, parsedItem{
			Class:      class,
			Text:       text,
			Attributes: it.Attributes,
			Confidence: it.Confidence,
		})
	}
	return parsed, nil
}

func decodeJSON(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w (response: %s)", err, truncateForError(body))
	}
	return nil
}

// stringify renders scalar extraction text that a model returned as a
// number or boolean.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// truncateForError truncates content for error messages.
func truncateForError(s string) string {
	if len(s) <= 200 {
		return s
	}
	return s[:200] + "..."
}
