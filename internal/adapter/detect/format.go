package detect

import (
	"context"
	"fmt"
	"regexp"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{6,}$`)
)

// FormatDetector flags malformed email and phone values.
type FormatDetector struct{}

// NewFormatDetector creates the detector.
func NewFormatDetector() *FormatDetector {
	return &FormatDetector{}
}

func (d *FormatDetector) Name() string        { return "format" }
func (d *FormatDetector) Description() string { return "Malformed email and phone values" }

func (d *FormatDetector) Detect(ctx context.Context, records []domain.Record) ([]port.Anomaly, error) {
	var anomalies []port.Anomaly
	for _, record := range records {
		fields, err := record.FieldMap()
		if err != nil {
			return nil, fmt.Errorf("format: record %s: %w", record.ID, err)
		}

		if email, ok := fields["email"].(string); ok && email != "" && !emailPattern.MatchString(email) {
			anomalies = append(anomalies, port.Anomaly{
				Description:  fmt.Sprintf("email %q is not a valid address", email),
				Severity:     domain.SeverityWarning,
				EntityType:   record.EntityType,
				EntityID:     record.ID,
				SuggestedFix: "correct the email to a valid address format",
			})
		}
		if phone, ok := fields["phone"].(string); ok && phone != "" && !phonePattern.MatchString(phone) {
			anomalies = append(anomalies, port.Anomaly{
				Description:  fmt.Sprintf("phone %q is not a valid number", phone),
				Severity:     domain.SeverityWarning,
				EntityType:   record.EntityType,
				EntityID:     record.ID,
				SuggestedFix: "normalize the phone number to digits with optional leading +",
			})
		}
	}
	return anomalies, nil
}
