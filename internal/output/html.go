package output

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/jmylchreest/pdfstruct/pkg/extraction"
)

const htmlReport = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.6rem; text-align: left; vertical-align: top; }
th { background: #f3f6fa; }
.status-success { color: #1a7f37; }
.status-failed { color: #cf222e; }
.confidence { background: #eee; width: 6rem; height: 0.6rem; }
.confidence-bar { background: #2f81f7; height: 100%; }
.error { color: #cf222e; font-family: monospace; }
.attributes { font-size: 0.9em; color: #555; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="summary">{{.Total}} documents, {{.Succeeded}} succeeded, {{.Failed}} failed, {{.Extractions}} extractions. Generated {{.Generated}}.</p>
{{range .Documents}}
<section class="document" data-file="{{.File}}">
<h2>{{.File}} <span class="status status-{{.Status}}">{{.Status}}</span></h2>
{{if .Error}}<p class="error">{{.ErrorKind}}: {{.Error}}</p>{{end}}
{{if .Extractions}}
<table class="extractions">
<thead><tr><th>Class</th><th>Text</th><th>Attributes</th><th>Confidence</th></tr></thead>
<tbody>
{{range .Extractions}}<tr class="extraction">
<td class="class">{{.Class}}</td>
<td class="text">{{.Text}}</td>
<td class="attributes">{{range $k, $v := .Attributes}}<div><b>{{$k}}</b>: {{attr $v}}</div>{{end}}</td>
<td><div class="confidence" title="{{percent .Confidence}}%"><div class="confidence-bar" style="width: {{percent .Confidence}}%"></div></div></td>
</tr>
{{end}}</tbody>
</table>
{{else if not .Error}}<p class="empty">No extractions found.</p>
{{end}}
</section>
{{end}}
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"percent": func(c float64) int {
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		return int(c*100 + 0.5)
	},
	"attr": func(v any) string {
		return cellString(attributeCell(v))
	},
}).Parse(htmlReport))

type reportData struct {
	Title       string
	Generated   string
	Total       int
	Succeeded   int
	Failed      int
	Extractions int
	Documents   []extraction.DocumentResult
}

// HTMLWriter renders results as a standalone HTML report.
type HTMLWriter struct {
	buffer
	w     *bufio.Writer
	title string
	now   func() time.Time
}

// NewHTMLWriter creates an HTML writer.
func NewHTMLWriter(w io.Writer, title string) *HTMLWriter {
	return &HTMLWriter{
		w:     bufio.NewWriter(w),
		title: title,
		now:   time.Now,
	}
}

// Close renders the report.
func (w *HTMLWriter) Close() error {
	results := w.all()
	data := reportData{
		Title:     w.title,
		Generated: w.now().UTC().Format(time.RFC3339),
		Total:     len(results),
		Documents: results,
	}
	for _, r := range results {
		if r.Succeeded() {
			data.Succeeded++
		} else {
			data.Failed++
		}
		data.Extractions += len(r.Extractions)
	}

	if err := reportTemplate.Execute(w.w, data); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return w.w.Flush()
}
