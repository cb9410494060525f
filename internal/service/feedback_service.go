package service

import (
	"context"
	"fmt"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
)

// FeedbackService annotates remediation attempts with human verdicts so
// external learning consumers can calibrate future confidence. It performs no
// new remediation.
type FeedbackService struct {
	store port.Store
}

// NewFeedbackService creates the feedback recorder.
func NewFeedbackService(store port.Store) *FeedbackService {
	return &FeedbackService{store: store}
}

// Record locates the most recent attempt for the issue and stamps the human
// verdict derived from the resolution action.
func (s *FeedbackService) Record(ctx context.Context, issueID, action, notes string) error {
	feedback, err := feedbackFor(action)
	if err != nil {
		return err
	}

	attempt, err := s.store.LatestAttemptByIssue(ctx, issueID)
	if err != nil {
		return fmt.Errorf("record feedback: %w", err)
	}

	return s.store.SetAttemptFeedback(ctx, attempt.ID, feedback, notes)
}

func feedbackFor(action string) (string, error) {
	switch action {
	case domain.ActionApprove:
		return domain.FeedbackApproved, nil
	case domain.ActionReject:
		return domain.FeedbackRejected, nil
	case domain.ActionCustom:
		return domain.FeedbackModified, nil
	default:
		return "", port.ErrInvalidAction
	}
}
