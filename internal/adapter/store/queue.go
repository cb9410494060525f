package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

const queueColumns = `id, issue_id, priority, status, queued_at, sla_deadline, resolved_at,
	time_to_resolve_minutes, sla_missed, notes, resolution_action, ai_suggestions, ai_reasoning`

func scanQueueItem(row interface{ Scan(...any) error }) (*domain.ManualQueueItem, error) {
	var q domain.ManualQueueItem
	err := row.Scan(
		&q.ID, &q.IssueID, &q.Priority, &q.Status, &q.QueuedAt, &q.SLADeadline, &q.ResolvedAt,
		&q.TimeToResolveMinutes, &q.SLAMissed, &q.Notes, &q.ResolutionAction,
		&q.AISuggestions, &q.AIReasoning,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQueueItem returns a queue item by its ID.
func (s *PostgresStore) GetQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error) {
	if !validUUID(id) {
		return nil, port.ErrQueueItemNotFound
	}
	query := `SELECT ` + queueColumns + ` FROM manual_queue WHERE id = $1`

	item, err := scanQueueItem(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrQueueItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}

// ListQueue returns queue items joined with their issues, ordered by priority
// tier (P0 first) and queued_at ascending within a tier.
func (s *PostgresStore) ListQueue(ctx context.Context, priority, status string) ([]port.QueueEntry, error) {
	query := `SELECT q.id, q.issue_id, q.priority, q.status, q.queued_at, q.sla_deadline, q.resolved_at,
			q.time_to_resolve_minutes, q.sla_missed, q.notes, q.resolution_action,
			q.ai_suggestions, q.ai_reasoning,
			i.id, i.audit_run_id, i.description, i.severity, i.status, i.entity_type, i.entity_id,
			i.suggested_fix, i.detected_at, i.resolved_by, i.resolved_at, i.resolution_notes
		FROM manual_queue q
		JOIN audit_issues i ON i.id = q.issue_id`

	args := []interface{}{}
	argIdx := 1
	where := ""

	if priority != "" {
		where += fmt.Sprintf(" q.priority = $%d", argIdx)
		args = append(args, priority)
		argIdx++
	}
	if status != "" {
		if where != "" {
			where += " AND"
		}
		where += fmt.Sprintf(" q.status = $%d", argIdx)
		args = append(args, status)
	}
	if where != "" {
		query += " WHERE" + where
	}

	query += ` ORDER BY CASE q.priority WHEN 'P0' THEN 0 WHEN 'P1' THEN 1 WHEN 'P2' THEN 2 ELSE 3 END,
		q.queued_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var entries []port.QueueEntry
	for rows.Next() {
		var e port.QueueEntry
		if err := rows.Scan(
			&e.QueueItem.ID, &e.QueueItem.IssueID, &e.QueueItem.Priority, &e.QueueItem.Status,
			&e.QueueItem.QueuedAt, &e.QueueItem.SLADeadline, &e.QueueItem.ResolvedAt,
			&e.QueueItem.TimeToResolveMinutes, &e.QueueItem.SLAMissed, &e.QueueItem.Notes,
			&e.QueueItem.ResolutionAction, &e.QueueItem.AISuggestions, &e.QueueItem.AIReasoning,
			&e.Issue.ID, &e.Issue.AuditRunID, &e.Issue.Description, &e.Issue.Severity, &e.Issue.Status,
			&e.Issue.EntityType, &e.Issue.EntityID, &e.Issue.SuggestedFix, &e.Issue.DetectedAt,
			&e.Issue.ResolvedBy, &e.Issue.ResolvedAt, &e.Issue.ResolutionNotes,
		); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ClaimQueueItem moves a pending item to in_progress. Claiming an item that is
// already in progress is a no-op; claiming a resolved item fails.
func (s *PostgresStore) ClaimQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error) {
	if !validUUID(id) {
		return nil, port.ErrQueueItemNotFound
	}
	query := `UPDATE manual_queue SET status = 'in_progress'
	          WHERE id = $1 AND status = 'pending'
	          RETURNING ` + queueColumns

	item, err := scanQueueItem(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := s.GetQueueItem(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == domain.QueueStatusInProgress {
			return current, nil
		}
		return nil, port.ErrAlreadyResolved
	}
	if err != nil {
		return nil, fmt.Errorf("claim queue item: %w", err)
	}
	return item, nil
}

// ResolveQueueItem transitions an active item to resolved and closes its issue
// in a single transaction. The status condition on the UPDATE makes concurrent
// double-resolution impossible: the second caller matches zero rows.
func (s *PostgresStore) ResolveQueueItem(ctx context.Context, id, action, notes string, applyAISuggestion bool, resolvedAt time.Time) (*domain.ManualQueueItem, error) {
	if !validUUID(id) {
		return nil, port.ErrQueueItemNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve queue item: begin: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE manual_queue SET
			status = 'resolved',
			resolved_at = $2,
			time_to_resolve_minutes = CAST(ROUND(EXTRACT(EPOCH FROM ($2::timestamptz - queued_at)) / 60) AS INT),
			sla_missed = $2::timestamptz > sla_deadline,
			notes = $3,
			resolution_action = $4
		WHERE id = $1 AND status IN ('pending', 'in_progress')
		RETURNING ` + queueColumns

	item, err := scanQueueItem(tx.QueryRowContext(ctx, query, id, resolvedAt, notes, action))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.GetQueueItem(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, port.ErrAlreadyResolved
	}
	if err != nil {
		return nil, fmt.Errorf("resolve queue item: %w", err)
	}

	if applyAISuggestion && len(item.AISuggestions) > 0 && string(item.AISuggestions) != "{}" {
		applyQuery := `UPDATE records SET fields = fields || $2::jsonb, updated_at = $3
		               WHERE id = (SELECT entity_id FROM audit_issues WHERE id = $1)`
		res, applyErr := tx.ExecContext(ctx, applyQuery, item.IssueID, string(item.AISuggestions), resolvedAt)
		if applyErr != nil {
			return nil, fmt.Errorf("apply ai suggestion: %w", applyErr)
		}
		affected, applyErr := res.RowsAffected()
		if applyErr != nil {
			return nil, fmt.Errorf("apply ai suggestion: %w", applyErr)
		}
		if affected == 0 {
			return nil, port.ErrRecordNotFound
		}
	}

	issueQuery := `UPDATE audit_issues SET
			status = 'resolved', resolved_by = 'human', resolved_at = $2, resolution_notes = $3
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, issueQuery, item.IssueID, resolvedAt, notes); err != nil {
		return nil, fmt.Errorf("resolve issue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolve queue item: commit: %w", err)
	}
	return item, nil
}

// QueueStatsSnapshot summarizes the active queue for the dashboard.
func (s *PostgresStore) QueueStatsSnapshot(ctx context.Context, now time.Time) (port.QueueStats, error) {
	query := `SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'in_progress') AND priority = 'P0'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'in_progress') AND priority = 'P1'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'in_progress') AND priority = 'P2'),
			COUNT(*) FILTER (WHERE status IN ('pending', 'in_progress') AND sla_deadline < $1)
		FROM manual_queue`

	var stats port.QueueStats
	var p0, p1, p2 int
	err := s.db.QueryRowContext(ctx, query, now).Scan(
		&stats.Pending, &stats.InProgress, &p0, &p1, &p2, &stats.Overdue,
	)
	if err != nil {
		return port.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	stats.ByPriority = map[string]int{
		domain.PriorityP0: p0,
		domain.PriorityP1: p1,
		domain.PriorityP2: p2,
	}
	return stats, nil
}
