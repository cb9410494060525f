package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Migrate creates the pipeline tables when they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_runs (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ,
			total_issues INT NOT NULL DEFAULT 0,
			errors INT NOT NULL DEFAULT 0,
			warnings INT NOT NULL DEFAULT 0,
			info INT NOT NULL DEFAULT 0,
			auto_fixed INT NOT NULL DEFAULT 0,
			flagged_for_review INT NOT NULL DEFAULT 0,
			manual_queue INT NOT NULL DEFAULT 0,
			data_quality_score DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS audit_issues (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			audit_run_id UUID NOT NULL REFERENCES audit_runs(id),
			description TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'detected',
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			suggested_fix TEXT NOT NULL DEFAULT '',
			detected_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_by TEXT NOT NULL DEFAULT '',
			resolved_at TIMESTAMPTZ,
			resolution_notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS remediation_attempts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			issue_id UUID NOT NULL REFERENCES audit_issues(id),
			reasoning TEXT NOT NULL DEFAULT '',
			confidence_score INT NOT NULL DEFAULT 0,
			data_sources JSONB NOT NULL DEFAULT '[]',
			fixes_applied JSONB NOT NULL DEFAULT '{}',
			completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			execution_time_ms BIGINT NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			human_feedback TEXT NOT NULL DEFAULT '',
			feedback_notes TEXT NOT NULL DEFAULT '',
			learned BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS manual_queue (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			issue_id UUID NOT NULL REFERENCES audit_issues(id),
			priority TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			queued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			sla_deadline TIMESTAMPTZ NOT NULL,
			resolved_at TIMESTAMPTZ,
			time_to_resolve_minutes INT NOT NULL DEFAULT 0,
			sla_missed BOOLEAN NOT NULL DEFAULT FALSE,
			notes TEXT NOT NULL DEFAULT '',
			resolution_action TEXT NOT NULL DEFAULT '',
			ai_suggestions JSONB NOT NULL DEFAULT '{}',
			ai_reasoning TEXT NOT NULL DEFAULT ''
		)`,
		// One active item per issue, enforced at the storage layer.
		`CREATE UNIQUE INDEX IF NOT EXISTS manual_queue_active_issue
			ON manual_queue (issue_id) WHERE status IN ('pending', 'in_progress')`,
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			fields JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS activity_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			action TEXT NOT NULL,
			resource TEXT NOT NULL,
			resource_id TEXT NOT NULL DEFAULT '',
			details JSONB NOT NULL DEFAULT '{}',
			ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// --- Activity Logs ---

// WriteActivity implements middleware.ActivityWriter.
func (s *PostgresStore) WriteActivity(action, resource, resourceID, details, ip, userAgent string) error {
	query := `INSERT INTO activity_logs (action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4::jsonb, $5, $6)`
	_, err := s.db.ExecContext(context.Background(), query,
		action, resource, resourceID, details, ip, userAgent,
	)
	return err
}

// ListActivityLogs returns recent activity logs with an optional action filter.
func (s *PostgresStore) ListActivityLogs(ctx context.Context, limit int, action string) ([]domain.ActivityLog, error) {
	query := `SELECT id, action, resource, resource_id, details::text, ip, user_agent, created_at
	          FROM activity_logs`
	args := []interface{}{}
	argIdx := 1

	if action != "" {
		query += fmt.Sprintf(" WHERE action = $%d", argIdx)
		args = append(args, action)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		if err := rows.Scan(
			&l.ID, &l.Action, &l.Resource, &l.ResourceID,
			&l.Details, &l.IP, &l.UserAgent, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, nil
}
