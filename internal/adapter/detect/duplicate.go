package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// DuplicateDetector flags records of the same entity type sharing an email.
// The first record seen is treated as canonical; later ones are flagged.
type DuplicateDetector struct{}

// NewDuplicateDetector creates the detector.
func NewDuplicateDetector() *DuplicateDetector {
	return &DuplicateDetector{}
}

func (d *DuplicateDetector) Name() string        { return "duplicate" }
func (d *DuplicateDetector) Description() string { return "Records duplicating another's email" }

func (d *DuplicateDetector) Detect(ctx context.Context, records []domain.Record) ([]port.Anomaly, error) {
	seen := make(map[string]string) // entityType + email → first record ID
	var anomalies []port.Anomaly

	for _, record := range records {
		fields, err := record.FieldMap()
		if err != nil {
			return nil, fmt.Errorf("duplicate: record %s: %w", record.ID, err)
		}
		email, ok := fields["email"].(string)
		if !ok || email == "" {
			continue
		}
		key := record.EntityType + "|" + strings.ToLower(strings.TrimSpace(email))
		if first, dup := seen[key]; dup {
			anomalies = append(anomalies, port.Anomaly{
				Description:  fmt.Sprintf("duplicates email of record %s", first),
				Severity:     domain.SeverityError,
				EntityType:   record.EntityType,
				EntityID:     record.ID,
				SuggestedFix: fmt.Sprintf("merge with record %s or correct the email", first),
			})
			continue
		}
		seen[key] = record.ID
	}
	return anomalies, nil
}
