package port

import (
	"context"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// Anomaly is one raw integrity problem reported by a detector, before it is
// classified and persisted as an AuditIssue.
type Anomaly struct {
	Description  string `json:"description"`
	Severity     string `json:"severity"` // error, warning, info
	EntityType   string `json:"entity_type"`
	EntityID     string `json:"entity_id"`
	SuggestedFix string `json:"suggested_fix"`
}

// Detector defines a pluggable anomaly detector (Strategy Pattern). Each
// detector scans the record set for one kind of integrity problem.
type Detector interface {
	// Name returns the unique name of this detector (e.g. "missing_fields").
	Name() string

	// Description returns a human-readable description of what this detector checks.
	Description() string

	// Detect scans the given records and returns every anomaly found.
	Detect(ctx context.Context, records []domain.Record) ([]Anomaly, error)
}

// DetectorRegistry holds the set of detectors an audit run iterates over.
type DetectorRegistry struct {
	detectors []Detector
}

// NewDetectorRegistry creates a registry with the given detectors, in order.
func NewDetectorRegistry(detectors ...Detector) *DetectorRegistry {
	return &DetectorRegistry{detectors: detectors}
}

// All returns the registered detectors in registration order.
func (r *DetectorRegistry) All() []Detector {
	return r.detectors
}

// Get returns the named detector.
func (r *DetectorRegistry) Get(name string) (Detector, error) {
	for _, d := range r.detectors {
		if d.Name() == name {
			return d, nil
		}
	}
	return nil, ErrDetectorNotFound
}

// Names returns the names of all registered detectors.
func (r *DetectorRegistry) Names() []string {
	names := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		names = append(names, d.Name())
	}
	return names
}
