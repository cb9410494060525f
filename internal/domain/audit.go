package domain

import "time"

// AuditRun represents one execution of the full detection and remediation sweep.
// Counters are aggregated once from the finalized issue set; the row is immutable
// after CompletedAt is stamped.
type AuditRun struct {
	ID               string     `json:"id"                 db:"id"`
	StartedAt        time.Time  `json:"started_at"         db:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"       db:"completed_at"`
	TotalIssues      int        `json:"total_issues"       db:"total_issues"`
	Errors           int        `json:"errors"             db:"errors"`
	Warnings         int        `json:"warnings"           db:"warnings"`
	Info             int        `json:"info"               db:"info"`
	AutoFixed        int        `json:"auto_fixed"         db:"auto_fixed"`
	FlaggedForReview int        `json:"flagged_for_review" db:"flagged_for_review"`
	ManualQueue      int        `json:"manual_queue"       db:"manual_queue"`
	DataQualityScore float64    `json:"data_quality_score" db:"data_quality_score"`
}

// Completed reports whether the run has been finalized.
func (r *AuditRun) Completed() bool {
	return r.CompletedAt != nil
}

// Trend labels for dashboard score comparison.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// TrendOf compares two quality scores and returns the trend label.
func TrendOf(improvement float64) string {
	switch {
	case improvement > 0:
		return TrendImproving
	case improvement < 0:
		return TrendDeclining
	default:
		return TrendStable
	}
}
