package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/google/uuid"
)

// ListRecords returns every audited record.
func (s *PostgresStore) ListRecords(ctx context.Context) ([]domain.Record, error) {
	query := `SELECT id, entity_type, fields, updated_at FROM records ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.ID, &r.EntityType, &r.Fields, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}

// GetRecord returns a record by its ID.
func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	query := `SELECT id, entity_type, fields, updated_at FROM records WHERE id = $1`

	var r domain.Record
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.EntityType, &r.Fields, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &r, nil
}

// UpsertRecord inserts or replaces an audited record. Used by ingestion and by
// integration fixtures.
func (s *PostgresStore) UpsertRecord(ctx context.Context, r *domain.Record) (*domain.Record, error) {
	query := `INSERT INTO records (id, entity_type, fields, updated_at)
		VALUES ($1, $2, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
		RETURNING id, entity_type, fields, updated_at`

	fields := emptyJSON(r.Fields, "{}")
	updatedAt := r.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	var out domain.Record
	err := s.db.QueryRowContext(ctx, query, r.ID, r.EntityType, fields, updatedAt).
		Scan(&out.ID, &out.EntityType, &out.Fields, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert record: %w", err)
	}
	return &out, nil
}

// validUUID reports whether the given ID parses as a UUID. Lookups with
// malformed IDs short-circuit to not-found instead of surfacing a cast error.
func validUUID(id string) bool {
	return uuid.Validate(id) == nil
}
