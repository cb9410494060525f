package detect

import (
	"context"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// MissingFieldsDetector flags records missing required fields for their entity type.
type MissingFieldsDetector struct {
	required map[string][]string // entity type → required field names
}

// DefaultRequiredFields is the out-of-the-box required-field map.
var DefaultRequiredFields = map[string][]string{
	"candidate": {"name", "email"},
	"company":   {"name", "industry"},
}

// NewMissingFieldsDetector creates the detector. A nil map uses the defaults.
func NewMissingFieldsDetector(required map[string][]string) *MissingFieldsDetector {
	if required == nil {
		required = DefaultRequiredFields
	}
	return &MissingFieldsDetector{required: required}
}

func (d *MissingFieldsDetector) Name() string { return "missing_fields" }
func (d *MissingFieldsDetector) Description() string {
	return "Required fields that are absent or empty"
}

func (d *MissingFieldsDetector) Detect(ctx context.Context, records []domain.Record) ([]port.Anomaly, error) {
	var anomalies []port.Anomaly
	for _, record := range records {
		required, ok := d.required[record.EntityType]
		if !ok {
			continue
		}
		fields, err := record.FieldMap()
		if err != nil {
			return nil, fmt.Errorf("missing fields: record %s: %w", record.ID, err)
		}
		for _, name := range required {
			value, present := fields[name]
			if present {
				if s, isString := value.(string); !isString || s != "" {
					continue
				}
			}
			anomalies = append(anomalies, port.Anomaly{
				Description:  fmt.Sprintf("required field %q is missing or empty", name),
				Severity:     domain.SeverityError,
				EntityType:   record.EntityType,
				EntityID:     record.ID,
				SuggestedFix: fmt.Sprintf("populate %q from a known source", name),
			})
		}
	}
	return anomalies, nil
}
