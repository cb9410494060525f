package port

import (
	"context"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// IssueAggregate is a one-pass rollup of a run's issues, computed from the
// finalized issue set when the run closes. Counters are never incremented
// piecemeal during the run.
type IssueAggregate struct {
	Total     int `json:"total"`
	Errors    int `json:"errors"`
	Warnings  int `json:"warnings"`
	Info      int `json:"info"`
	AutoFixed int `json:"auto_fixed"`
	Escalated int `json:"escalated"`
	Resolved  int `json:"resolved"`
}

// QueueStats summarizes the manual queue for the dashboard.
type QueueStats struct {
	Pending    int            `json:"pending"`
	InProgress int            `json:"in_progress"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// AIPerformance summarizes remediation attempts and human verdicts for the
// dashboard and for external learning consumers.
type AIPerformance struct {
	TotalAttempts int     `json:"total_attempts"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	AvgConfidence float64 `json:"avg_confidence"`
	Approved      int     `json:"approved"`
	Rejected      int     `json:"rejected"`
	Modified      int     `json:"modified"`
}

// QueueEntry pairs a queue item with its owning issue for listings.
type QueueEntry struct {
	QueueItem domain.ManualQueueItem `json:"queue_item"`
	Issue     domain.AuditIssue      `json:"issue"`
}

// Store persists the audit pipeline entities. The multi-entity mutations
// (ApplyAutoFix, EscalateIssue, ResolveQueueItem) are transactional: a crash
// cannot leave an issue marked fixed while the record mutation was lost, or
// vice versa.
type Store interface {
	// Runs.
	CreateRun(ctx context.Context, run *domain.AuditRun) (*domain.AuditRun, error)
	GetRun(ctx context.Context, id string) (*domain.AuditRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error)
	LatestCompletedRuns(ctx context.Context, limit int) ([]domain.AuditRun, error)
	// FinalizeRun stamps counters, score and completedAt. It fails with
	// ErrRunCompleted if the run was already finalized.
	FinalizeRun(ctx context.Context, id string, agg IssueAggregate, score float64, completedAt time.Time) error

	// Issues.
	CreateIssue(ctx context.Context, issue *domain.AuditIssue) (*domain.AuditIssue, error)
	GetIssue(ctx context.Context, id string) (*domain.AuditIssue, error)
	ListIssuesByRun(ctx context.Context, runID string) ([]domain.AuditIssue, error)
	AggregateIssues(ctx context.Context, runID string) (IssueAggregate, error)

	// Attempts. Attempt rows are inserted terminal (outcome already decided)
	// by ApplyAutoFix or EscalateIssue; only feedback fields mutate afterwards.
	LatestAttemptByIssue(ctx context.Context, issueID string) (*domain.RemediationAttempt, error)
	SetAttemptFeedback(ctx context.Context, attemptID, feedback, notes string) error
	AIPerformanceStats(ctx context.Context) (AIPerformance, error)

	// ApplyAutoFix applies the proposed field mutations to the issue's record,
	// marks the issue auto_fixed, and records the attempt, atomically.
	ApplyAutoFix(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, fixes map[string]any) error

	// EscalateIssue marks the issue escalated, records the attempt, and
	// enqueues the manual item, atomically.
	EscalateIssue(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, item *domain.ManualQueueItem) error

	// Queue.
	GetQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error)
	ListQueue(ctx context.Context, priority, status string) ([]QueueEntry, error)
	// ClaimQueueItem moves a pending item to in_progress.
	ClaimQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error)
	// ResolveQueueItem performs the atomic conditional transition to resolved.
	// It fails with ErrQueueItemNotFound for an unknown id and with
	// ErrAlreadyResolved when the item is no longer active; neither failure
	// mutates any state. When applyAISuggestion is set, the item's stored AI
	// suggestions are applied to the underlying record in the same transaction.
	ResolveQueueItem(ctx context.Context, id, action, notes string, applyAISuggestion bool, resolvedAt time.Time) (*domain.ManualQueueItem, error)
	QueueStatsSnapshot(ctx context.Context, now time.Time) (QueueStats, error)

	// Records.
	ListRecords(ctx context.Context) ([]domain.Record, error)
	GetRecord(ctx context.Context, id string) (*domain.Record, error)
}
