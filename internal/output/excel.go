package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

// Sheet names used in Excel workbooks.
const (
	ExtractionsSheet = "Extractions"
	DocumentsSheet   = "Documents"
)

// DocumentColumns is the header of the per-document sheet.
var DocumentColumns = []string{
	"file", "status", "error_kind", "error", "extractions",
	"pages", "text_length", "text_method", "provider", "model",
	"passes", "chunks", "input_tokens", "output_tokens",
	"estimated_cost_usd", "duration_ms",
}

// ExcelWriter writes an .xlsx workbook with an Extractions sheet holding the
// flattened table and a Documents sheet with one row per input file.
type ExcelWriter struct {
	buffer
	w io.Writer
}

// NewExcelWriter creates an Excel writer.
func NewExcelWriter(w io.Writer) *ExcelWriter {
	return &ExcelWriter{w: w}
}

// Close builds the workbook and writes it.
func (w *ExcelWriter) Close() error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", ExtractionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DocumentsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	table := Flatten(w.all())
	if err := writeSheet(f, ExtractionsSheet, table.Header, table.Rows, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, DocumentsSheet, DocumentColumns, documentRows(w.all()), headerStyle); err != nil {
		return err
	}

	_ = f.SetColWidth(ExtractionsSheet, "A", "A", 32)
	_ = f.SetColWidth(ExtractionsSheet, "C", "D", 28)
	_ = f.SetColWidth(DocumentsSheet, "A", "A", 32)
	_ = f.SetColWidth(DocumentsSheet, "D", "D", 40)

	if err := f.Write(w.w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, headerStyle int) error {
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func documentRows(results []extraction.DocumentResult) [][]any {
	rows := make([][]any, 0, len(results))
	for _, r := range results {
		m := r.Metadata
		rows = append(rows, []any{
			r.File, string(r.Status), string(r.ErrorKind), r.Error, len(r.Extractions),
			m.Pages, m.TextLength, m.TextMethod, m.Provider, m.Model,
			m.Passes, m.Chunks, m.InputTokens, m.OutputTokens,
			m.EstimatedCost, m.DurationMS,
		})
	}
	return rows
}
