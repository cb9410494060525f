package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// CSVRenderer renders an audit run as a CSV document: one summary row followed
// by one row per issue.
type CSVRenderer struct{}

// NewCSVRenderer creates the renderer.
func NewCSVRenderer() *CSVRenderer {
	return &CSVRenderer{}
}

// ContentType implements port.ReportRenderer.
func (r *CSVRenderer) ContentType() string { return "text/csv" }

// Render implements port.ReportRenderer.
func (r *CSVRenderer) Render(run *domain.AuditRun, issues []domain.AuditIssue) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	summary := [][]string{
		{"audit_run_id", "started_at", "completed_at", "total_issues", "errors", "warnings", "info",
			"auto_fixed", "flagged_for_review", "manual_queue", "data_quality_score"},
		{run.ID, run.StartedAt.Format(time.RFC3339), formatTime(run.CompletedAt),
			strconv.Itoa(run.TotalIssues), strconv.Itoa(run.Errors), strconv.Itoa(run.Warnings),
			strconv.Itoa(run.Info), strconv.Itoa(run.AutoFixed), strconv.Itoa(run.FlaggedForReview),
			strconv.Itoa(run.ManualQueue), fmt.Sprintf("%.1f", run.DataQualityScore)},
		{},
		{"issue_id", "severity", "status", "entity_type", "entity_id", "description",
			"suggested_fix", "resolved_by", "detected_at", "resolved_at"},
	}
	for _, row := range summary {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
	}

	for _, issue := range issues {
		row := []string{
			issue.ID, issue.Severity, issue.Status, issue.EntityType, issue.EntityID,
			issue.Description, issue.SuggestedFix, issue.ResolvedBy,
			issue.DetectedAt.Format(time.RFC3339), formatTime(issue.ResolvedAt),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
