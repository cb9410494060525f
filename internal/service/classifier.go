package service

import (
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/arturoeanton/go-data-auditor-ollama/pkg/config"
)

// Classification is the triage result for one anomaly: how bad it is, how
// urgent its manual review would be, and how long a reviewer gets.
type Classification struct {
	Severity     string
	Priority     string
	SLAWindow    time.Duration
	SuggestedFix string
}

// Classifier maps anomaly severity to a priority tier and SLA window. It is a
// pure mapping with no side effects, called once per anomaly.
type Classifier struct {
	priorityFor map[string]string
	windowFor   map[string]time.Duration
}

// NewClassifier builds a classifier from the configured severity→priority
// mapping and per-tier SLA windows.
func NewClassifier(cfg *config.Config) *Classifier {
	return &Classifier{
		priorityFor: map[string]string{
			domain.SeverityError:   cfg.PriorityForError,
			domain.SeverityWarning: cfg.PriorityForWarning,
			domain.SeverityInfo:    cfg.PriorityForInfo,
		},
		windowFor: map[string]time.Duration{
			domain.PriorityP0: time.Duration(cfg.SLAP0Minutes) * time.Minute,
			domain.PriorityP1: time.Duration(cfg.SLAP1Minutes) * time.Minute,
			domain.PriorityP2: time.Duration(cfg.SLAP2Minutes) * time.Minute,
		},
	}
}

// Classify assigns severity, priority and SLA window to a raw anomaly.
// An unrecognized severity is treated as a warning.
func (c *Classifier) Classify(anomaly port.Anomaly) Classification {
	severity := anomaly.Severity
	if _, known := c.priorityFor[severity]; !known {
		severity = domain.SeverityWarning
	}
	priority := c.priorityFor[severity]
	return Classification{
		Severity:     severity,
		Priority:     priority,
		SLAWindow:    c.windowFor[priority],
		SuggestedFix: anomaly.SuggestedFix,
	}
}

// PriorityFor returns the priority tier for a severity.
func (c *Classifier) PriorityFor(severity string) string {
	if p, ok := c.priorityFor[severity]; ok {
		return p
	}
	return c.priorityFor[domain.SeverityWarning]
}

// WindowFor returns the SLA window for a priority tier.
func (c *Classifier) WindowFor(priority string) time.Duration {
	return c.windowFor[priority]
}
