package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// OllamaConfig holds the configuration for the Ollama reasoning endpoint.
type OllamaConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaReasoner implements port.Reasoner using the Ollama REST API. The chat
// call is forced into JSON mode so the proposal parses into a FixProposal.
type OllamaReasoner struct {
	cfg        OllamaConfig
	httpClient *http.Client
}

// NewOllamaReasoner creates a new Ollama-backed reasoner.
func NewOllamaReasoner(cfg OllamaConfig) *OllamaReasoner {
	return &OllamaReasoner{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// ModelName returns the chat model identifier.
func (o *OllamaReasoner) ModelName() string {
	return o.cfg.Model
}

const proposalSystemPrompt = `You are a meticulous data steward. You are given one data-integrity issue
and the current state of the affected record as JSON. Propose a correction.

Respond with a single JSON object and nothing else, using exactly these keys:
{
  "reasoning": "why this fix is correct, referencing the record's fields",
  "confidence_score": 0-100 integer, how certain you are the fix is safe to apply,
  "data_sources": ["record fields or external knowledge you relied on"],
  "fixes_applied": {"field_name": "new value", ...}
}

fixes_applied must contain only fields that exist on the record or are clearly
missing and required. If you cannot propose a safe fix, use an empty
fixes_applied object and a low confidence_score.`

// ProposeFix asks the model for a structured fix proposal for the issue.
func (o *OllamaReasoner) ProposeFix(ctx context.Context, issue *domain.AuditIssue, record *domain.Record) (*port.FixProposal, error) {
	fields := "{}"
	if record != nil && len(record.Fields) > 0 {
		fields = string(record.Fields)
	}

	userPrompt := fmt.Sprintf(
		"Issue: %s\nSeverity: %s\nEntity: %s %s\nDetector hint: %s\n\nRecord fields:\n%s",
		issue.Description, issue.Severity, issue.EntityType, issue.EntityID,
		issue.SuggestedFix, fields,
	)

	payload := map[string]interface{}{
		"model": o.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": proposalSystemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
		"format": "json",
	}

	body, err := o.post(ctx, "/api/chat", payload)
	if err != nil {
		return nil, fmt.Errorf("ollama propose fix: %w", err)
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ollama propose fix decode: %w", err)
	}

	var proposal port.FixProposal
	if err := json.Unmarshal([]byte(resp.Message.Content), &proposal); err != nil {
		return nil, fmt.Errorf("ollama proposal not valid JSON: %w", err)
	}

	return &proposal, nil
}

// post is a helper for POST requests to the Ollama endpoint (with optional bearer token).
func (o *OllamaReasoner) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
