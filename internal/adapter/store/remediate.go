package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// ApplyAutoFix mutates the record, marks the issue auto_fixed and records the
// attempt in one transaction. A crash can never leave the issue marked fixed
// without the record mutation, or the reverse.
func (s *PostgresStore) ApplyAutoFix(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, fixes map[string]any) error {
	fixesJSON, err := json.Marshal(fixes)
	if err != nil {
		return fmt.Errorf("apply auto fix: marshal fixes: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply auto fix: begin: %w", err)
	}
	defer tx.Rollback()

	recordQuery := `UPDATE records SET fields = fields || $2::jsonb, updated_at = $3 WHERE id = $1`
	res, err := tx.ExecContext(ctx, recordQuery, issue.EntityID, string(fixesJSON), attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("apply auto fix: update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply auto fix: %w", err)
	}
	if affected == 0 {
		return port.ErrRecordNotFound
	}

	issueQuery := `UPDATE audit_issues SET
			status = 'auto_fixed', resolved_by = 'ai', resolved_at = $2
		WHERE id = $1 AND status = 'detected'`
	if _, err := tx.ExecContext(ctx, issueQuery, issue.ID, attempt.CompletedAt); err != nil {
		return fmt.Errorf("apply auto fix: update issue: %w", err)
	}

	if err := insertAttempt(ctx, tx, attempt); err != nil {
		return fmt.Errorf("apply auto fix: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply auto fix: commit: %w", err)
	}
	return nil
}

// EscalateIssue marks the issue escalated, records the attempt and enqueues
// the manual item in one transaction. The created queue item ID is written
// back into item.
func (s *PostgresStore) EscalateIssue(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, item *domain.ManualQueueItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("escalate issue: begin: %w", err)
	}
	defer tx.Rollback()

	issueQuery := `UPDATE audit_issues SET status = 'escalated' WHERE id = $1 AND status = 'detected'`
	if _, err := tx.ExecContext(ctx, issueQuery, issue.ID); err != nil {
		return fmt.Errorf("escalate issue: update issue: %w", err)
	}

	if err := insertAttempt(ctx, tx, attempt); err != nil {
		return fmt.Errorf("escalate issue: %w", err)
	}

	queueQuery := `INSERT INTO manual_queue
			(issue_id, priority, status, queued_at, sla_deadline, ai_suggestions, ai_reasoning)
		VALUES ($1, $2, 'pending', $3, $4, $5::jsonb, $6)
		RETURNING id`

	suggestions := emptyJSON(item.AISuggestions, "{}")
	err = tx.QueryRowContext(ctx, queueQuery,
		item.IssueID, item.Priority, item.QueuedAt, item.SLADeadline,
		suggestions, item.AIReasoning,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("escalate issue: enqueue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("escalate issue: commit: %w", err)
	}
	item.Status = domain.QueueStatusPending
	return nil
}

var _ port.Store = (*PostgresStore)(nil)
