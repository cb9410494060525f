package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/go-playground/validator/v10"
)

// RemediationService drives the confidence-gated fix flow for one issue at a
// time: ask the reasoner, auto-apply above the threshold, escalate everything
// else. Every invocation produces exactly one attempt row.
type RemediationService struct {
	store      port.Store
	reasoner   port.Reasoner
	classifier *Classifier
	validate   *validator.Validate

	threshold int
	timeout   time.Duration
	now       func() time.Time

	mu         sync.Mutex
	issueLocks map[string]*sync.Mutex
}

// NewRemediationService creates the remediation engine.
func NewRemediationService(store port.Store, reasoner port.Reasoner, classifier *Classifier, autoFixThreshold int, timeout time.Duration) *RemediationService {
	return &RemediationService{
		store:      store,
		reasoner:   reasoner,
		classifier: classifier,
		validate:   validator.New(),
		threshold:  autoFixThreshold,
		timeout:    timeout,
		now:        time.Now,
		issueLocks: make(map[string]*sync.Mutex),
	}
}

// lockIssue serializes attempts per issue so the reasoner is never invoked
// twice concurrently for the same issue.
func (s *RemediationService) lockIssue(issueID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.issueLocks[issueID]
	if !ok {
		lock = &sync.Mutex{}
		s.issueLocks[issueID] = lock
	}
	return lock
}

// AttemptFix invokes the reasoning collaborator for the issue and either
// auto-applies the proposed fix or escalates to the manual queue. A reasoner
// error or timeout is recovered as a failure attempt that unconditionally
// escalates; the returned error covers persistence problems only.
func (s *RemediationService) AttemptFix(ctx context.Context, issue *domain.AuditIssue) (*domain.RemediationAttempt, error) {
	lock := s.lockIssue(issue.ID)
	lock.Lock()
	defer lock.Unlock()

	start := s.now()
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record, err := s.store.GetRecord(callCtx, issue.EntityID)
	if err != nil {
		slog.Warn("record lookup failed, reasoning without record context",
			"issue_id", issue.ID, "entity_id", issue.EntityID, "error", err)
		record = nil
	}

	proposal, reasonErr := s.reasoner.ProposeFix(callCtx, issue, record)

	completed := s.now()
	attempt := &domain.RemediationAttempt{
		IssueID:         issue.ID,
		CompletedAt:     completed,
		ExecutionTimeMs: completed.Sub(start).Milliseconds(),
		Outcome:         domain.OutcomeFailure,
	}

	if reasonErr != nil {
		// Collaborator error or timeout: failure outcome, zero confidence,
		// unconditional escalation.
		slog.Error("reasoner call failed", "issue_id", issue.ID, "error", reasonErr)
		attempt.Reasoning = "reasoner error: " + reasonErr.Error()
		attempt.ConfidenceScore = 0
		return attempt, s.escalate(ctx, issue, attempt)
	}

	attempt.Reasoning = proposal.Reasoning
	attempt.ConfidenceScore = proposal.ConfidenceScore
	if sources, err := json.Marshal(proposal.DataSources); err == nil {
		attempt.DataSources = sources
	}
	if fixes, err := json.Marshal(proposal.FixesApplied); err == nil {
		attempt.FixesApplied = fixes
	}

	if proposal.ConfidenceScore >= s.threshold && s.validate.Struct(proposal) == nil {
		attempt.Outcome = domain.OutcomeSuccess
		if err := s.store.ApplyAutoFix(ctx, issue, attempt, proposal.FixesApplied); err != nil {
			// The transaction rolled back: nothing was applied. Fall back to
			// escalation so a human still sees the issue.
			slog.Error("auto-fix transaction failed, escalating",
				"issue_id", issue.ID, "error", err)
			attempt.Outcome = domain.OutcomeFailure
			return attempt, s.escalate(ctx, issue, attempt)
		}
		slog.Info("issue auto-fixed",
			"issue_id", issue.ID, "confidence", proposal.ConfidenceScore, "model", s.reasoner.ModelName())
		return attempt, nil
	}

	slog.Info("confidence below threshold, escalating",
		"issue_id", issue.ID, "confidence", proposal.ConfidenceScore, "threshold", s.threshold)
	return attempt, s.escalate(ctx, issue, attempt)
}

// escalate creates the manual queue item carrying the AI's reasoning so the
// reviewer sees it even though it was not auto-applied.
func (s *RemediationService) escalate(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt) error {
	priority := s.classifier.PriorityFor(issue.Severity)
	queuedAt := s.now()

	item := &domain.ManualQueueItem{
		IssueID:       issue.ID,
		Priority:      priority,
		Status:        domain.QueueStatusPending,
		QueuedAt:      queuedAt,
		SLADeadline:   queuedAt.Add(s.classifier.WindowFor(priority)),
		AISuggestions: attempt.FixesApplied,
		AIReasoning:   attempt.Reasoning,
	}

	if err := s.store.EscalateIssue(ctx, issue, attempt, item); err != nil {
		return err
	}
	slog.Info("issue escalated to manual queue",
		"issue_id", issue.ID, "queue_id", item.ID, "priority", priority, "sla_deadline", item.SLADeadline)
	return nil
}
