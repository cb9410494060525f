package port

import (
	"context"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
)

// FixProposal is the structured output of the reasoning collaborator for one
// issue. FixesApplied maps record field names to their proposed new values.
type FixProposal struct {
	Reasoning       string         `json:"reasoning"        validate:"required"`
	ConfidenceScore int            `json:"confidence_score" validate:"gte=0,lte=100"`
	DataSources     []string       `json:"data_sources"`
	FixesApplied    map[string]any `json:"fixes_applied"    validate:"required,dive,keys,required,endkeys"`
}

// Reasoner abstracts the AI/LLM backend that proposes fixes for detected
// issues. Implementations can target Ollama, OpenAI, or any compatible API.
type Reasoner interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// ProposeFix asks the collaborator for a fix proposal given the issue and
	// the current state of the affected record. The call must honor ctx
	// deadlines; a timeout is reported as an error.
	ProposeFix(ctx context.Context, issue *domain.AuditIssue, record *domain.Record) (*FixProposal, error)
}
