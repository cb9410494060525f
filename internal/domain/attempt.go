package domain

import (
	"encoding/json"
	"time"
)

// RemediationAttempt records one reasoning-collaborator invocation for an issue.
// It is the audit trail of the AI's decision and the training signal for the
// feedback loop. At most one open attempt exists per issue at a time.
type RemediationAttempt struct {
	ID              string          `json:"id"                db:"id"`
	IssueID         string          `json:"issue_id"          db:"issue_id"`
	Reasoning       string          `json:"reasoning"         db:"reasoning"`
	ConfidenceScore int             `json:"confidence_score"  db:"confidence_score"` // 0-100
	DataSources     json.RawMessage `json:"data_sources"      db:"data_sources"`
	FixesApplied    json.RawMessage `json:"fixes_applied"     db:"fixes_applied"`
	CompletedAt     time.Time       `json:"completed_at"      db:"completed_at"`
	ExecutionTimeMs int64           `json:"execution_time_ms" db:"execution_time_ms"`
	Outcome         string          `json:"outcome"           db:"outcome"`        // success, failure
	HumanFeedback   string          `json:"human_feedback"    db:"human_feedback"` // approved, rejected, modified, or empty
	FeedbackNotes   string          `json:"feedback_notes"    db:"feedback_notes"`
	Learned         bool            `json:"learned"           db:"learned"`
}

// Attempt outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Human feedback constants.
const (
	FeedbackApproved = "approved"
	FeedbackRejected = "rejected"
	FeedbackModified = "modified"
)
