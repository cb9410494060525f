package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// ResolutionResult reports the outcome of resolving a queue item.
type ResolutionResult struct {
	Item      *domain.ManualQueueItem
	SLAMissed bool
	Message   string
}

// QueueService owns the manual intervention queue: listing, claiming, and the
// terminal resolve transition with its SLA bookkeeping.
type QueueService struct {
	store    port.Store
	feedback *FeedbackService
	now      func() time.Time
}

// NewQueueService creates the queue manager.
func NewQueueService(store port.Store, feedback *FeedbackService) *QueueService {
	return &QueueService{store: store, feedback: feedback, now: time.Now}
}

// List returns queue items with their issues, highest priority and oldest
// first. Empty filters match everything.
func (s *QueueService) List(ctx context.Context, priority, status string) ([]port.QueueEntry, error) {
	return s.store.ListQueue(ctx, priority, status)
}

// Claim marks a pending item as being worked on.
func (s *QueueService) Claim(ctx context.Context, queueID string) (*domain.ManualQueueItem, error) {
	return s.store.ClaimQueueItem(ctx, queueID)
}

// Stats summarizes the active queue.
func (s *QueueService) Stats(ctx context.Context) (port.QueueStats, error) {
	return s.store.QueueStatsSnapshot(ctx, s.now())
}

// Resolve performs the terminal transition for a queue item: record the human
// verdict, close the owning issue, optionally apply the AI's suggestion to the
// record, and annotate the attempt for the learning loop.
func (s *QueueService) Resolve(ctx context.Context, queueID, action, notes string, applyAISuggestion bool) (*ResolutionResult, error) {
	switch action {
	case domain.ActionApprove, domain.ActionReject, domain.ActionCustom:
	default:
		return nil, port.ErrInvalidAction
	}

	item, err := s.store.ResolveQueueItem(ctx, queueID, action, notes, applyAISuggestion, s.now())
	if err != nil {
		return nil, err
	}

	// Last step of a successful resolve: annotate the attempt so external
	// learning consumers can recalibrate. The resolution itself is already
	// committed, so a feedback failure is logged, not surfaced.
	if err := s.feedback.Record(ctx, item.IssueID, action, notes); err != nil {
		slog.Error("feedback annotation failed", "issue_id", item.IssueID, "error", err)
	}

	message := fmt.Sprintf("issue resolved (%s) in %d minutes", action, item.TimeToResolveMinutes)
	if item.SLAMissed {
		message += ", SLA missed"
	}
	slog.Info("queue item resolved",
		"queue_id", item.ID, "issue_id", item.IssueID, "action", action,
		"minutes", item.TimeToResolveMinutes, "sla_missed", item.SLAMissed)

	return &ResolutionResult{Item: item, SLAMissed: item.SLAMissed, Message: message}, nil
}
