package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// HTMLRenderer renders an audit run as a self-contained HTML report suitable
// for an email body.
type HTMLRenderer struct {
	tmpl *template.Template
}

// NewHTMLRenderer creates the renderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{tmpl: template.Must(template.New("report").Parse(reportTemplate))}
}

// ContentType implements port.ReportRenderer.
func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

// Render implements port.ReportRenderer.
func (r *HTMLRenderer) Render(run *domain.AuditRun, issues []domain.AuditIssue) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Run    *domain.AuditRun
		Issues []domain.AuditIssue
	}{Run: run, Issues: issues}

	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Data Quality Audit {{.Run.ID}}</title>
<style>
body { font-family: -apple-system, Helvetica, Arial, sans-serif; color: #1f2933; margin: 24px; }
h1 { font-size: 20px; }
.score { font-size: 36px; font-weight: bold; }
table { border-collapse: collapse; margin-top: 16px; }
th, td { border: 1px solid #cbd2d9; padding: 6px 10px; text-align: left; font-size: 13px; }
th { background: #f5f7fa; }
.error { color: #ba2525; }
.warning { color: #cb6e17; }
.info { color: #2680c2; }
</style>
</head>
<body>
<h1>Data Quality Audit Report</h1>
<p>Run {{.Run.ID}} started {{.Run.StartedAt.Format "2006-01-02 15:04"}}</p>
<p class="score">{{printf "%.1f" .Run.DataQualityScore}} / 100</p>
<table>
<tr><th>Total issues</th><th>Errors</th><th>Warnings</th><th>Info</th><th>Auto-fixed</th><th>Manual queue</th></tr>
<tr><td>{{.Run.TotalIssues}}</td><td>{{.Run.Errors}}</td><td>{{.Run.Warnings}}</td><td>{{.Run.Info}}</td><td>{{.Run.AutoFixed}}</td><td>{{.Run.ManualQueue}}</td></tr>
</table>
<table>
<tr><th>Severity</th><th>Status</th><th>Entity</th><th>Description</th><th>Resolved by</th></tr>
{{range .Issues}}
<tr>
<td class="{{.Severity}}">{{.Severity}}</td>
<td>{{.Status}}</td>
<td>{{.EntityType}} {{.EntityID}}</td>
<td>{{.Description}}</td>
<td>{{.ResolvedBy}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`
