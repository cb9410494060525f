package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

const attemptColumns = `id, issue_id, reasoning, confidence_score, data_sources, fixes_applied,
	completed_at, execution_time_ms, outcome, human_feedback, feedback_notes, learned`

func scanAttempt(row interface{ Scan(...any) error }) (*domain.RemediationAttempt, error) {
	var a domain.RemediationAttempt
	err := row.Scan(
		&a.ID, &a.IssueID, &a.Reasoning, &a.ConfidenceScore, &a.DataSources, &a.FixesApplied,
		&a.CompletedAt, &a.ExecutionTimeMs, &a.Outcome, &a.HumanFeedback, &a.FeedbackNotes, &a.Learned,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// insertAttempt writes an attempt row within an existing transaction and fills
// in the generated ID.
func insertAttempt(ctx context.Context, tx *sql.Tx, a *domain.RemediationAttempt) error {
	query := `INSERT INTO remediation_attempts
			(issue_id, reasoning, confidence_score, data_sources, fixes_applied,
			 completed_at, execution_time_ms, outcome)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6, $7, $8)
		RETURNING id`

	dataSources := emptyJSON(a.DataSources, "[]")
	fixesApplied := emptyJSON(a.FixesApplied, "{}")

	err := tx.QueryRowContext(ctx, query,
		a.IssueID, a.Reasoning, a.ConfidenceScore, dataSources, fixesApplied,
		a.CompletedAt, a.ExecutionTimeMs, a.Outcome,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// LatestAttemptByIssue returns the most recent attempt for an issue.
func (s *PostgresStore) LatestAttemptByIssue(ctx context.Context, issueID string) (*domain.RemediationAttempt, error) {
	if !validUUID(issueID) {
		return nil, port.ErrAttemptNotFound
	}
	query := `SELECT ` + attemptColumns + ` FROM remediation_attempts
	          WHERE issue_id = $1 ORDER BY completed_at DESC LIMIT 1`

	attempt, err := scanAttempt(s.db.QueryRowContext(ctx, query, issueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}
	return attempt, nil
}

// SetAttemptFeedback annotates an attempt with the human verdict and marks it
// as a learning signal for external consumers.
func (s *PostgresStore) SetAttemptFeedback(ctx context.Context, attemptID, feedback, notes string) error {
	query := `UPDATE remediation_attempts
	          SET human_feedback = $2, feedback_notes = $3, learned = TRUE
	          WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, attemptID, feedback, notes)
	if err != nil {
		return fmt.Errorf("set attempt feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set attempt feedback: %w", err)
	}
	if affected == 0 {
		return port.ErrAttemptNotFound
	}
	return nil
}

// AIPerformanceStats summarizes all attempts and human verdicts.
func (s *PostgresStore) AIPerformanceStats(ctx context.Context) (port.AIPerformance, error) {
	query := `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'success'),
			COUNT(*) FILTER (WHERE outcome = 'failure'),
			COALESCE(AVG(confidence_score), 0),
			COUNT(*) FILTER (WHERE human_feedback = 'approved'),
			COUNT(*) FILTER (WHERE human_feedback = 'rejected'),
			COUNT(*) FILTER (WHERE human_feedback = 'modified')
		FROM remediation_attempts`

	var perf port.AIPerformance
	err := s.db.QueryRowContext(ctx, query).Scan(
		&perf.TotalAttempts, &perf.Successes, &perf.Failures, &perf.AvgConfidence,
		&perf.Approved, &perf.Rejected, &perf.Modified,
	)
	if err != nil {
		return port.AIPerformance{}, fmt.Errorf("ai performance stats: %w", err)
	}
	return perf, nil
}

// emptyJSON substitutes a fallback document for a nil/empty JSON value.
func emptyJSON(raw []byte, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	return string(raw)
}
