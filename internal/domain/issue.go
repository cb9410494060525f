package domain

import "time"

// AuditIssue is a single detected data-integrity anomaly tied to one entity.
type AuditIssue struct {
	ID              string     `json:"id"               db:"id"`
	AuditRunID      string     `json:"audit_run_id"     db:"audit_run_id"`
	Description     string     `json:"description"      db:"description"`
	Severity        string     `json:"severity"         db:"severity"` // error, warning, info
	Status          string     `json:"status"           db:"status"`   // detected, auto_fixed, escalated, resolved
	EntityType      string     `json:"entity_type"      db:"entity_type"`
	EntityID        string     `json:"entity_id"        db:"entity_id"`
	SuggestedFix    string     `json:"suggested_fix"    db:"suggested_fix"`
	DetectedAt      time.Time  `json:"detected_at"      db:"detected_at"`
	ResolvedBy      string     `json:"resolved_by"      db:"resolved_by"` // ai, human, or empty
	ResolvedAt      *time.Time `json:"resolved_at"      db:"resolved_at"`
	ResolutionNotes string     `json:"resolution_notes" db:"resolution_notes"`
}

// Severity constants.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Issue status constants.
const (
	IssueStatusDetected  = "detected"
	IssueStatusAutoFixed = "auto_fixed"
	IssueStatusEscalated = "escalated"
	IssueStatusResolved  = "resolved"
)

// Resolver constants.
const (
	ResolvedByAI    = "ai"
	ResolvedByHuman = "human"
)
