package domain

import (
	"encoding/json"
	"time"
)

// ManualQueueItem is a pending human task for an issue the AI could not (or was
// not allowed to) fix. Exactly one active item may exist per issue.
type ManualQueueItem struct {
	ID                   string          `json:"id"                      db:"id"`
	IssueID              string          `json:"issue_id"                db:"issue_id"`
	Priority             string          `json:"priority"                db:"priority"` // P0, P1, P2
	Status               string          `json:"status"                  db:"status"`   // pending, in_progress, resolved
	QueuedAt             time.Time       `json:"queued_at"               db:"queued_at"`
	SLADeadline          time.Time       `json:"sla_deadline"            db:"sla_deadline"`
	ResolvedAt           *time.Time      `json:"resolved_at"             db:"resolved_at"`
	TimeToResolveMinutes int             `json:"time_to_resolve_minutes" db:"time_to_resolve_minutes"`
	SLAMissed            bool            `json:"sla_missed"              db:"sla_missed"`
	Notes                string          `json:"notes"                   db:"notes"`
	ResolutionAction     string          `json:"resolution_action"       db:"resolution_action"` // approve, reject, custom
	AISuggestions        json.RawMessage `json:"ai_suggestions"          db:"ai_suggestions"`
	AIReasoning          string          `json:"ai_reasoning"            db:"ai_reasoning"`
}

// Priority tiers, highest urgency first.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
)

// PriorityRank maps a tier to its sort rank (P0 sorts before P1 before P2).
func PriorityRank(priority string) int {
	switch priority {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	default:
		return 3
	}
}

// Queue item status constants.
const (
	QueueStatusPending    = "pending"
	QueueStatusInProgress = "in_progress"
	QueueStatusResolved   = "resolved"
)

// Resolution actions accepted by the queue manager.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCustom  = "custom"
)

// Active reports whether the item still awaits human judgment.
func (q *ManualQueueItem) Active() bool {
	return q.Status == QueueStatusPending || q.Status == QueueStatusInProgress
}
