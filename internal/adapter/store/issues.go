package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

const issueColumns = `id, audit_run_id, description, severity, status, entity_type, entity_id,
	suggested_fix, detected_at, resolved_by, resolved_at, resolution_notes`

func scanIssue(row interface{ Scan(...any) error }) (*domain.AuditIssue, error) {
	var issue domain.AuditIssue
	err := row.Scan(
		&issue.ID, &issue.AuditRunID, &issue.Description, &issue.Severity, &issue.Status,
		&issue.EntityType, &issue.EntityID, &issue.SuggestedFix, &issue.DetectedAt,
		&issue.ResolvedBy, &issue.ResolvedAt, &issue.ResolutionNotes,
	)
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// CreateIssue inserts a detected issue and returns it with its generated ID.
func (s *PostgresStore) CreateIssue(ctx context.Context, issue *domain.AuditIssue) (*domain.AuditIssue, error) {
	query := `INSERT INTO audit_issues
			(audit_run_id, description, severity, status, entity_type, entity_id, suggested_fix, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + issueColumns

	created, err := scanIssue(s.db.QueryRowContext(ctx, query,
		issue.AuditRunID, issue.Description, issue.Severity, issue.Status,
		issue.EntityType, issue.EntityID, issue.SuggestedFix, issue.DetectedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return created, nil
}

// GetIssue returns an issue by its ID.
func (s *PostgresStore) GetIssue(ctx context.Context, id string) (*domain.AuditIssue, error) {
	if !validUUID(id) {
		return nil, port.ErrIssueNotFound
	}
	query := `SELECT ` + issueColumns + ` FROM audit_issues WHERE id = $1`

	issue, err := scanIssue(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrIssueNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// ListIssuesByRun returns a run's issues in detection order.
func (s *PostgresStore) ListIssuesByRun(ctx context.Context, runID string) ([]domain.AuditIssue, error) {
	query := `SELECT ` + issueColumns + ` FROM audit_issues
	          WHERE audit_run_id = $1 ORDER BY detected_at ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.AuditIssue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}
	return issues, nil
}

// AggregateIssues rolls up a run's issues by severity and status in one pass.
func (s *PostgresStore) AggregateIssues(ctx context.Context, runID string) (port.IssueAggregate, error) {
	query := `SELECT COUNT(*),
			COUNT(*) FILTER (WHERE severity = 'error'),
			COUNT(*) FILTER (WHERE severity = 'warning'),
			COUNT(*) FILTER (WHERE severity = 'info'),
			COUNT(*) FILTER (WHERE status = 'auto_fixed'),
			COUNT(*) FILTER (WHERE status = 'escalated'),
			COUNT(*) FILTER (WHERE status = 'resolved')
		FROM audit_issues WHERE audit_run_id = $1`

	var agg port.IssueAggregate
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&agg.Total, &agg.Errors, &agg.Warnings, &agg.Info,
		&agg.AutoFixed, &agg.Escalated, &agg.Resolved,
	)
	if err != nil {
		return port.IssueAggregate{}, fmt.Errorf("aggregate issues: %w", err)
	}
	return agg, nil
}
