package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

// BaseColumns are the fixed leading columns of a flattened table.
var BaseColumns = []string{"file", "status", "extraction_class", "extraction_text", "confidence", "start", "end"}

// AttributePrefix prefixes the column of each attribute key.
const AttributePrefix = "attr_"

// Table is a flattened view of results with one row per extraction.
type Table struct {
	Header []string
	Rows   [][]any
}

// Flatten turns results into one row per extraction. Attribute keys across
// all extractions become attr_<key> columns, sorted by key. Documents without
// extractions contribute no rows. Span cells are empty when the extraction
// was not located in the text.
func Flatten(results []extraction.DocumentResult) Table {
	keySet := make(map[string]bool)
	for _, r := range results {
		for _, e := range r.Extractions {
			for k := range e.Attributes {
				keySet[k] = true
			}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	header := append([]string{}, BaseColumns...)
	for _, k := range keys {
		header = append(header, AttributePrefix+k)
	}

	var rows [][]any
	for _, r := range results {
		for _, e := range r.Extractions {
			row := make([]any, 0, len(header))
			row = append(row, r.File, string(r.Status), e.Class, e.Text, e.Confidence)
			if e.Span != nil {
				row = append(row, e.Span.Start, e.Span.End)
			} else {
				row = append(row, "", "")
			}
			for _, k := range keys {
				v, ok := e.Attributes[k]
				if !ok {
					row = append(row, "")
					continue
				}
				row = append(row, attributeCell(v))
			}
			rows = append(rows, row)
		}
	}
	return Table{Header: header, Rows: rows}
}

// attributeCell renders an attribute value for a single cell. Scalars keep
// their natural form; lists and objects are encoded as JSON.
func attributeCell(v any) any {
	switch t := v.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

// cellString renders a table cell as text.
func cellString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
