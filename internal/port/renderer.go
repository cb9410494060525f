package port

import "github.com/arturoeanton/go-data-auditor-ollama/internal/domain"

// ReportRenderer turns a finished audit run into a downloadable report.
type ReportRenderer interface {
	// ContentType returns the MIME type of the rendered output.
	ContentType() string

	// Render produces the report body for a run and its issues.
	Render(run *domain.AuditRun, issues []domain.AuditIssue) ([]byte, error)
}
