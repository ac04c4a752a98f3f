package output

import (
	"encoding/csv"
	"io"
)

// CSVWriter writes one row per extraction. The attribute columns depend on
// every result, so rows are written on Close.
type CSVWriter struct {
	buffer
	w io.Writer
}

// NewCSVWriter creates a CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

// Close writes the header and all rows.
func (w *CSVWriter) Close() error {
	table := Flatten(w.all())

	cw := csv.NewWriter(w.w)
	if err := cw.Write(table.Header); err != nil {
		return err
	}
	record := make([]string, len(table.Header))
	for _, row := range table.Rows {
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
