package domain

import (
	"encoding/json"
	"time"
)

// Record is an audited business record. Fields is a free-form document scanned
// by detectors; it is mutated only through store transactions by the remediation
// engine (auto-fix) or the queue manager (apply-AI-suggestion).
type Record struct {
	ID         string          `json:"id"          db:"id"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	Fields     json.RawMessage `json:"fields"      db:"fields"`
	UpdatedAt  time.Time       `json:"updated_at"  db:"updated_at"`
}

// FieldMap decodes the record's fields document into a map.
func (r *Record) FieldMap() (map[string]any, error) {
	fields := map[string]any{}
	if len(r.Fields) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(r.Fields, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
