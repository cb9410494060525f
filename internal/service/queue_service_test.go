package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedQueueItem plants an escalated issue with an active queue item and
// returns both IDs.
func seedQueueItem(t *testing.T, store *memStore, priority string, queuedAt time.Time, sla time.Duration, suggestions map[string]any) (queueID, issueID string) {
	t.Helper()

	issue, err := store.CreateIssue(context.Background(), &domain.AuditIssue{
		AuditRunID: "run-1",
		Severity:   domain.SeverityError,
		Status:     domain.IssueStatusEscalated,
		EntityType: "candidate",
		EntityID:   "rec-" + uuid.New().String()[:8],
		DetectedAt: queuedAt,
	})
	require.NoError(t, err)

	raw, err := json.Marshal(suggestions)
	require.NoError(t, err)

	item := &domain.ManualQueueItem{
		ID:            uuid.New().String(),
		IssueID:       issue.ID,
		Priority:      priority,
		Status:        domain.QueueStatusPending,
		QueuedAt:      queuedAt,
		SLADeadline:   queuedAt.Add(sla),
		AISuggestions: raw,
	}
	store.mu.Lock()
	store.queue[item.ID] = item
	store.mu.Unlock()

	return item.ID, issue.ID
}

func seedAttempt(t *testing.T, store *memStore, issueID string) string {
	t.Helper()
	attempt := &domain.RemediationAttempt{
		IssueID:         issueID,
		Outcome:         domain.OutcomeFailure,
		ConfidenceScore: 60,
		CompletedAt:     time.Now(),
	}
	store.mu.Lock()
	store.insertAttemptLocked(attempt)
	store.mu.Unlock()
	return attempt.ID
}

func newQueueFixture(store *memStore) *QueueService {
	return NewQueueService(store, NewFeedbackService(store))
}

func TestQueueListOrdering(t *testing.T) {
	store := newMemStore()
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// Deliberately seeded out of order.
	p1ID, _ := seedQueueItem(t, store, domain.PriorityP1, base.Add(2*time.Hour), 24*time.Hour, nil)
	p0NewID, _ := seedQueueItem(t, store, domain.PriorityP0, base.Add(time.Hour), 4*time.Hour, nil)
	p2ID, _ := seedQueueItem(t, store, domain.PriorityP2, base, 72*time.Hour, nil)
	p0OldID, _ := seedQueueItem(t, store, domain.PriorityP0, base, 4*time.Hour, nil)

	svc := newQueueFixture(store)
	entries, err := svc.List(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	got := make([]string, 0, len(entries))
	for _, e := range entries {
		got = append(got, e.QueueItem.ID)
	}
	assert.Equal(t, []string{p0OldID, p0NewID, p1ID, p2ID}, got,
		"highest priority first, oldest first within a tier")
}

func TestQueueListFilters(t *testing.T) {
	store := newMemStore()
	base := time.Now()
	seedQueueItem(t, store, domain.PriorityP0, base, 4*time.Hour, nil)
	seedQueueItem(t, store, domain.PriorityP1, base, 24*time.Hour, nil)

	svc := newQueueFixture(store)

	entries, err := svc.List(context.Background(), domain.PriorityP0, "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.PriorityP0, entries[0].QueueItem.Priority)

	entries, err = svc.List(context.Background(), "", domain.QueueStatusResolved)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestQueueClaim(t *testing.T) {
	store := newMemStore()
	queueID, _ := seedQueueItem(t, store, domain.PriorityP0, time.Now(), 4*time.Hour, nil)

	svc := newQueueFixture(store)

	item, err := svc.Claim(context.Background(), queueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusInProgress, item.Status)

	// Claiming again is idempotent while in progress.
	item, err = svc.Claim(context.Background(), queueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusInProgress, item.Status)

	_, err = svc.Claim(context.Background(), "9999")
	assert.ErrorIs(t, err, port.ErrQueueItemNotFound)
}

func TestResolveUnknownQueueItem(t *testing.T) {
	store := newMemStore()
	svc := newQueueFixture(store)

	_, err := svc.Resolve(context.Background(), "9999", domain.ActionApprove, "", false)
	assert.ErrorIs(t, err, port.ErrQueueItemNotFound)
}

func TestResolveInvalidAction(t *testing.T) {
	store := newMemStore()
	queueID, _ := seedQueueItem(t, store, domain.PriorityP0, time.Now(), 4*time.Hour, nil)
	svc := newQueueFixture(store)

	_, err := svc.Resolve(context.Background(), queueID, "escalate-harder", "", false)
	assert.ErrorIs(t, err, port.ErrInvalidAction)

	// The invalid action left the item untouched.
	item, err := store.GetQueueItem(context.Background(), queueID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusPending, item.Status)
}

func TestResolveStampsSLAFields(t *testing.T) {
	store := newMemStore()
	queuedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	queueID, issueID := seedQueueItem(t, store, domain.PriorityP0, queuedAt, 4*time.Hour, nil)
	seedAttempt(t, store, issueID)

	svc := newQueueFixture(store)
	svc.now = func() time.Time { return queuedAt.Add(125 * time.Minute) }

	result, err := svc.Resolve(context.Background(), queueID, domain.ActionApprove, "looks right", false)
	require.NoError(t, err)

	item := result.Item
	assert.Equal(t, domain.QueueStatusResolved, item.Status)
	require.NotNil(t, item.ResolvedAt)
	assert.False(t, item.ResolvedAt.Before(item.QueuedAt))
	assert.Equal(t, 125, item.TimeToResolveMinutes)
	assert.False(t, item.SLAMissed, "resolved inside the 4h window")
	assert.False(t, result.SLAMissed)
	assert.Contains(t, result.Message, "125 minutes")
	assert.NotContains(t, result.Message, "SLA missed")

	issue, err := store.GetIssue(context.Background(), issueID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusResolved, issue.Status)
	assert.Equal(t, domain.ResolvedByHuman, issue.ResolvedBy)
	assert.Equal(t, "looks right", issue.ResolutionNotes)
}

func TestResolveAfterDeadlineMarksSLAMissed(t *testing.T) {
	store := newMemStore()
	queuedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	queueID, issueID := seedQueueItem(t, store, domain.PriorityP0, queuedAt, 4*time.Hour, nil)
	seedAttempt(t, store, issueID)

	svc := newQueueFixture(store)
	svc.now = func() time.Time { return queuedAt.Add(5 * time.Hour) }

	result, err := svc.Resolve(context.Background(), queueID, domain.ActionReject, "", false)
	require.NoError(t, err)

	assert.True(t, result.SLAMissed)
	assert.Equal(t, 300, result.Item.TimeToResolveMinutes)
	assert.Contains(t, result.Message, "SLA missed")
}

func TestResolveTwiceKeepsFirstResolution(t *testing.T) {
	store := newMemStore()
	queuedAt := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	queueID, issueID := seedQueueItem(t, store, domain.PriorityP0, queuedAt, 4*time.Hour, nil)
	seedAttempt(t, store, issueID)

	svc := newQueueFixture(store)
	svc.now = func() time.Time { return queuedAt.Add(time.Hour) }

	first, err := svc.Resolve(context.Background(), queueID, domain.ActionApprove, "first verdict", false)
	require.NoError(t, err)

	svc.now = func() time.Time { return queuedAt.Add(9 * time.Hour) }
	_, err = svc.Resolve(context.Background(), queueID, domain.ActionReject, "second verdict", false)
	assert.ErrorIs(t, err, port.ErrAlreadyResolved)

	// First resolution survives unchanged.
	item, err := store.GetQueueItem(context.Background(), queueID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionApprove, item.ResolutionAction)
	assert.Equal(t, "first verdict", item.Notes)
	assert.Equal(t, first.Item.TimeToResolveMinutes, item.TimeToResolveMinutes)
	assert.False(t, item.SLAMissed)
}

func TestResolveAppliesAISuggestionToRecord(t *testing.T) {
	store := newMemStore()
	queuedAt := time.Now().Add(-time.Hour)
	queueID, issueID := seedQueueItem(t, store, domain.PriorityP0, queuedAt, 4*time.Hour,
		map[string]any{"industry": "logistics"})
	seedAttempt(t, store, issueID)

	issue, err := store.GetIssue(context.Background(), issueID)
	require.NoError(t, err)
	store.addRecord(issue.EntityID, "company", map[string]any{"name": "Acme", "industry": ""}, queuedAt)

	svc := newQueueFixture(store)
	_, err = svc.Resolve(context.Background(), queueID, domain.ActionApprove, "", true)
	require.NoError(t, err)

	record, err := store.GetRecord(context.Background(), issue.EntityID)
	require.NoError(t, err)
	fields, err := record.FieldMap()
	require.NoError(t, err)
	assert.Equal(t, "logistics", fields["industry"])
	assert.Equal(t, "Acme", fields["name"])
}

func TestResolveAnnotatesAttemptFeedback(t *testing.T) {
	store := newMemStore()
	queuedAt := time.Now().Add(-time.Hour)

	tests := []struct {
		action   string
		feedback string
	}{
		{domain.ActionApprove, domain.FeedbackApproved},
		{domain.ActionReject, domain.FeedbackRejected},
		{domain.ActionCustom, domain.FeedbackModified},
	}

	svc := newQueueFixture(store)
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			queueID, issueID := seedQueueItem(t, store, domain.PriorityP1, queuedAt, 24*time.Hour, nil)
			seedAttempt(t, store, issueID)

			_, err := svc.Resolve(context.Background(), queueID, tt.action, "note", false)
			require.NoError(t, err)

			attempt, err := store.LatestAttemptByIssue(context.Background(), issueID)
			require.NoError(t, err)
			assert.Equal(t, tt.feedback, attempt.HumanFeedback)
			assert.Equal(t, "note", attempt.FeedbackNotes)
			assert.True(t, attempt.Learned)
		})
	}
}

func TestResolveSucceedsWhenNoAttemptExists(t *testing.T) {
	// Feedback is best-effort: a missing attempt must not fail the resolve.
	store := newMemStore()
	queueID, issueID := seedQueueItem(t, store, domain.PriorityP2, time.Now().Add(-time.Minute), 72*time.Hour, nil)

	svc := newQueueFixture(store)
	result, err := svc.Resolve(context.Background(), queueID, domain.ActionCustom, "manual edit", false)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatusResolved, result.Item.Status)

	issue, err := store.GetIssue(context.Background(), issueID)
	require.NoError(t, err)
	assert.Equal(t, domain.IssueStatusResolved, issue.Status)
}

func TestQueueStats(t *testing.T) {
	store := newMemStore()
	now := time.Now()

	overdueID, _ := seedQueueItem(t, store, domain.PriorityP0, now.Add(-5*time.Hour), 4*time.Hour, nil)
	seedQueueItem(t, store, domain.PriorityP1, now, 24*time.Hour, nil)
	claimedID, _ := seedQueueItem(t, store, domain.PriorityP1, now, 24*time.Hour, nil)

	svc := newQueueFixture(store)
	_, err := svc.Claim(context.Background(), claimedID)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Overdue, "only %s is past its deadline", overdueID)
	assert.Equal(t, 1, stats.ByPriority[domain.PriorityP0])
	assert.Equal(t, 2, stats.ByPriority[domain.PriorityP1])
	assert.Equal(t, 0, stats.ByPriority[domain.PriorityP2])
}
