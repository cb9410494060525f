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

const runColumns = `id, started_at, completed_at, total_issues, errors, warnings, info,
	auto_fixed, flagged_for_review, manual_queue, data_quality_score`

func scanRun(row interface{ Scan(...any) error }) (*domain.AuditRun, error) {
	var run domain.AuditRun
	err := row.Scan(
		&run.ID, &run.StartedAt, &run.CompletedAt, &run.TotalIssues,
		&run.Errors, &run.Warnings, &run.Info,
		&run.AutoFixed, &run.FlaggedForReview, &run.ManualQueue, &run.DataQualityScore,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CreateRun inserts a new audit run row.
func (s *PostgresStore) CreateRun(ctx context.Context, run *domain.AuditRun) (*domain.AuditRun, error) {
	query := `INSERT INTO audit_runs (id, started_at) VALUES ($1, $2)
	          RETURNING ` + runColumns

	created, err := scanRun(s.db.QueryRowContext(ctx, query, run.ID, run.StartedAt))
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return created, nil
}

// GetRun returns a run by its ID.
func (s *PostgresStore) GetRun(ctx context.Context, id string) (*domain.AuditRun, error) {
	if !validUUID(id) {
		return nil, port.ErrRunNotFound
	}
	query := `SELECT ` + runColumns + ` FROM audit_runs WHERE id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	query := `SELECT ` + runColumns + ` FROM audit_runs ORDER BY started_at DESC LIMIT $1`
	return s.queryRuns(ctx, query, limit)
}

// LatestCompletedRuns returns the most recently finished runs, newest first.
func (s *PostgresStore) LatestCompletedRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	query := `SELECT ` + runColumns + ` FROM audit_runs
	          WHERE completed_at IS NOT NULL ORDER BY completed_at DESC LIMIT $1`
	return s.queryRuns(ctx, query, limit)
}

func (s *PostgresStore) queryRuns(ctx context.Context, query string, args ...any) ([]domain.AuditRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.AuditRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// FinalizeRun writes the aggregated counters, quality score and completion
// stamp. A run that already completed is immutable.
func (s *PostgresStore) FinalizeRun(ctx context.Context, id string, agg port.IssueAggregate, score float64, completedAt time.Time) error {
	if !validUUID(id) {
		return port.ErrRunNotFound
	}
	query := `UPDATE audit_runs SET
			completed_at = $2,
			total_issues = $3, errors = $4, warnings = $5, info = $6,
			auto_fixed = $7, flagged_for_review = $8, manual_queue = $9,
			data_quality_score = $10
		WHERE id = $1 AND completed_at IS NULL`

	res, err := s.db.ExecContext(ctx, query, id, completedAt,
		agg.Total, agg.Errors, agg.Warnings, agg.Info,
		agg.AutoFixed, agg.Resolved, agg.Escalated, score,
	)
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize run: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetRun(ctx, id); getErr != nil {
			return getErr
		}
		return port.ErrRunCompleted
	}
	return nil
}
