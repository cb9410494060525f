package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// StaleRecordDetector flags records not updated within the freshness window.
type StaleRecordDetector struct {
	maxAge time.Duration
	now    func() time.Time
}

// NewStaleRecordDetector creates the detector. A zero maxAge defaults to one year.
func NewStaleRecordDetector(maxAge time.Duration) *StaleRecordDetector {
	if maxAge <= 0 {
		maxAge = 365 * 24 * time.Hour
	}
	return &StaleRecordDetector{maxAge: maxAge, now: time.Now}
}

func (d *StaleRecordDetector) Name() string        { return "stale" }
func (d *StaleRecordDetector) Description() string { return "Records past the freshness window" }

func (d *StaleRecordDetector) Detect(ctx context.Context, records []domain.Record) ([]port.Anomaly, error) {
	cutoff := d.now().Add(-d.maxAge)
	var anomalies []port.Anomaly
	for _, record := range records {
		if record.UpdatedAt.After(cutoff) {
			continue
		}
		anomalies = append(anomalies, port.Anomaly{
			Description:  fmt.Sprintf("record last updated %s, past the freshness window", record.UpdatedAt.Format(time.DateOnly)),
			Severity:     domain.SeverityInfo,
			EntityType:   record.EntityType,
			EntityID:     record.ID,
			SuggestedFix: "re-verify the record against its source",
		})
	}
	return anomalies, nil
}
