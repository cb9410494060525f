package service

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/google/uuid"
)

// memStore is an in-memory port.Store used by the service tests. It mirrors
// the transactional semantics of the Postgres adapter: multi-entity mutations
// happen under one lock, and failed transitions leave no partial state.
type memStore struct {
	mu       sync.Mutex
	runs     map[string]*domain.AuditRun
	issues   map[string]*domain.AuditIssue
	attempts []*domain.RemediationAttempt
	queue    map[string]*domain.ManualQueueItem
	records  map[string]*domain.Record
}

func newMemStore() *memStore {
	return &memStore{
		runs:    make(map[string]*domain.AuditRun),
		issues:  make(map[string]*domain.AuditIssue),
		queue:   make(map[string]*domain.ManualQueueItem),
		records: make(map[string]*domain.Record),
	}
}

func (m *memStore) addRecord(id, entityType string, fields map[string]any, updatedAt time.Time) {
	raw, _ := json.Marshal(fields)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = &domain.Record{ID: id, EntityType: entityType, Fields: raw, UpdatedAt: updatedAt}
}

// --- Runs ---

func (m *memStore) CreateRun(ctx context.Context, run *domain.AuditRun) (*domain.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *run
	m.runs[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memStore) GetRun(ctx context.Context, id string) (*domain.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, port.ErrRunNotFound
	}
	out := *run
	return &out, nil
}

func (m *memStore) ListRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]domain.AuditRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *memStore) LatestCompletedRuns(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var runs []domain.AuditRun
	for _, run := range m.runs {
		if run.CompletedAt != nil {
			runs = append(runs, *run)
		}
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CompletedAt.After(*runs[j].CompletedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *memStore) FinalizeRun(ctx context.Context, id string, agg port.IssueAggregate, score float64, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return port.ErrRunNotFound
	}
	if run.CompletedAt != nil {
		return port.ErrRunCompleted
	}
	run.CompletedAt = &completedAt
	run.TotalIssues = agg.Total
	run.Errors = agg.Errors
	run.Warnings = agg.Warnings
	run.Info = agg.Info
	run.AutoFixed = agg.AutoFixed
	run.FlaggedForReview = agg.Resolved
	run.ManualQueue = agg.Escalated
	run.DataQualityScore = score
	return nil
}

// --- Issues ---

func (m *memStore) CreateIssue(ctx context.Context, issue *domain.AuditIssue) (*domain.AuditIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *issue
	clone.ID = uuid.New().String()
	m.issues[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (m *memStore) GetIssue(ctx context.Context, id string) (*domain.AuditIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	issue, ok := m.issues[id]
	if !ok {
		return nil, port.ErrIssueNotFound
	}
	out := *issue
	return &out, nil
}

func (m *memStore) ListIssuesByRun(ctx context.Context, runID string) ([]domain.AuditIssue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var issues []domain.AuditIssue
	for _, issue := range m.issues {
		if issue.AuditRunID == runID {
			issues = append(issues, *issue)
		}
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].DetectedAt.Before(issues[j].DetectedAt) })
	return issues, nil
}

func (m *memStore) AggregateIssues(ctx context.Context, runID string) (port.IssueAggregate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var agg port.IssueAggregate
	for _, issue := range m.issues {
		if issue.AuditRunID != runID {
			continue
		}
		agg.Total++
		switch issue.Severity {
		case domain.SeverityError:
			agg.Errors++
		case domain.SeverityWarning:
			agg.Warnings++
		case domain.SeverityInfo:
			agg.Info++
		}
		switch issue.Status {
		case domain.IssueStatusAutoFixed:
			agg.AutoFixed++
		case domain.IssueStatusEscalated:
			agg.Escalated++
		case domain.IssueStatusResolved:
			agg.Resolved++
		}
	}
	return agg, nil
}

// --- Attempts ---

func (m *memStore) LatestAttemptByIssue(ctx context.Context, issueID string) (*domain.RemediationAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.attempts) - 1; i >= 0; i-- {
		if m.attempts[i].IssueID == issueID {
			out := *m.attempts[i]
			return &out, nil
		}
	}
	return nil, port.ErrAttemptNotFound
}

func (m *memStore) SetAttemptFeedback(ctx context.Context, attemptID, feedback, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, attempt := range m.attempts {
		if attempt.ID == attemptID {
			attempt.HumanFeedback = feedback
			attempt.FeedbackNotes = notes
			attempt.Learned = true
			return nil
		}
	}
	return port.ErrAttemptNotFound
}

func (m *memStore) AIPerformanceStats(ctx context.Context) (port.AIPerformance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var perf port.AIPerformance
	var confidence float64
	for _, attempt := range m.attempts {
		perf.TotalAttempts++
		confidence += float64(attempt.ConfidenceScore)
		if attempt.Outcome == domain.OutcomeSuccess {
			perf.Successes++
		} else {
			perf.Failures++
		}
		switch attempt.HumanFeedback {
		case domain.FeedbackApproved:
			perf.Approved++
		case domain.FeedbackRejected:
			perf.Rejected++
		case domain.FeedbackModified:
			perf.Modified++
		}
	}
	if perf.TotalAttempts > 0 {
		perf.AvgConfidence = confidence / float64(perf.TotalAttempts)
	}
	return perf, nil
}

// --- Remediation transactions ---

func (m *memStore) ApplyAutoFix(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, fixes map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[issue.EntityID]
	if !ok {
		return port.ErrRecordNotFound
	}

	fields := map[string]any{}
	_ = json.Unmarshal(record.Fields, &fields)
	for k, v := range fixes {
		fields[k] = v
	}
	record.Fields, _ = json.Marshal(fields)
	record.UpdatedAt = attempt.CompletedAt

	stored := m.issues[issue.ID]
	if stored != nil && stored.Status == domain.IssueStatusDetected {
		stored.Status = domain.IssueStatusAutoFixed
		stored.ResolvedBy = domain.ResolvedByAI
		resolvedAt := attempt.CompletedAt
		stored.ResolvedAt = &resolvedAt
	}

	m.insertAttemptLocked(attempt)
	return nil
}

func (m *memStore) EscalateIssue(ctx context.Context, issue *domain.AuditIssue, attempt *domain.RemediationAttempt, item *domain.ManualQueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.issues[issue.ID]
	if stored != nil && stored.Status == domain.IssueStatusDetected {
		stored.Status = domain.IssueStatusEscalated
	}

	m.insertAttemptLocked(attempt)

	item.ID = uuid.New().String()
	item.Status = domain.QueueStatusPending
	clone := *item
	m.queue[item.ID] = &clone
	return nil
}

func (m *memStore) insertAttemptLocked(attempt *domain.RemediationAttempt) {
	attempt.ID = uuid.New().String()
	clone := *attempt
	m.attempts = append(m.attempts, &clone)
}

// --- Queue ---

func (m *memStore) GetQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[id]
	if !ok {
		return nil, port.ErrQueueItemNotFound
	}
	out := *item
	return &out, nil
}

func (m *memStore) ListQueue(ctx context.Context, priority, status string) ([]port.QueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []port.QueueEntry
	for _, item := range m.queue {
		if priority != "" && item.Priority != priority {
			continue
		}
		if status != "" && item.Status != status {
			continue
		}
		entry := port.QueueEntry{QueueItem: *item}
		if issue, ok := m.issues[item.IssueID]; ok {
			entry.Issue = *issue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].QueueItem, entries[j].QueueItem
		if a.Priority != b.Priority {
			return domain.PriorityRank(a.Priority) < domain.PriorityRank(b.Priority)
		}
		return a.QueuedAt.Before(b.QueuedAt)
	})
	return entries, nil
}

func (m *memStore) ClaimQueueItem(ctx context.Context, id string) (*domain.ManualQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[id]
	if !ok {
		return nil, port.ErrQueueItemNotFound
	}
	switch item.Status {
	case domain.QueueStatusPending:
		item.Status = domain.QueueStatusInProgress
	case domain.QueueStatusInProgress:
	default:
		return nil, port.ErrAlreadyResolved
	}
	out := *item
	return &out, nil
}

func (m *memStore) ResolveQueueItem(ctx context.Context, id, action, notes string, applyAISuggestion bool, resolvedAt time.Time) (*domain.ManualQueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.queue[id]
	if !ok {
		return nil, port.ErrQueueItemNotFound
	}
	if !item.Active() {
		return nil, port.ErrAlreadyResolved
	}

	issue := m.issues[item.IssueID]
	if applyAISuggestion && len(item.AISuggestions) > 0 && string(item.AISuggestions) != "{}" {
		if issue == nil {
			return nil, port.ErrIssueNotFound
		}
		record, ok := m.records[issue.EntityID]
		if !ok {
			return nil, port.ErrRecordNotFound
		}
		fields := map[string]any{}
		_ = json.Unmarshal(record.Fields, &fields)
		fixes := map[string]any{}
		_ = json.Unmarshal(item.AISuggestions, &fixes)
		for k, v := range fixes {
			fields[k] = v
		}
		record.Fields, _ = json.Marshal(fields)
		record.UpdatedAt = resolvedAt
	}

	item.Status = domain.QueueStatusResolved
	item.ResolvedAt = &resolvedAt
	item.TimeToResolveMinutes = int(math.Round(resolvedAt.Sub(item.QueuedAt).Minutes()))
	item.SLAMissed = resolvedAt.After(item.SLADeadline)
	item.Notes = notes
	item.ResolutionAction = action

	if issue != nil {
		issue.Status = domain.IssueStatusResolved
		issue.ResolvedBy = domain.ResolvedByHuman
		issue.ResolvedAt = &resolvedAt
		issue.ResolutionNotes = notes
	}

	out := *item
	return &out, nil
}

func (m *memStore) QueueStatsSnapshot(ctx context.Context, now time.Time) (port.QueueStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := port.QueueStats{ByPriority: map[string]int{
		domain.PriorityP0: 0, domain.PriorityP1: 0, domain.PriorityP2: 0,
	}}
	for _, item := range m.queue {
		switch item.Status {
		case domain.QueueStatusPending:
			stats.Pending++
		case domain.QueueStatusInProgress:
			stats.InProgress++
		}
		if item.Active() {
			stats.ByPriority[item.Priority]++
			if item.SLADeadline.Before(now) {
				stats.Overdue++
			}
		}
	}
	return stats, nil
}

// --- Records ---

func (m *memStore) ListRecords(ctx context.Context) ([]domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := make([]domain.Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, *record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (m *memStore) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[id]
	if !ok {
		return nil, port.ErrRecordNotFound
	}
	out := *record
	return &out, nil
}

var _ port.Store = (*memStore)(nil)

// stubReasoner returns canned proposals, keyed by entity ID when confidences
// is set. A non-nil err (or a delay past the context deadline) simulates a
// collaborator failure.
type stubReasoner struct {
	confidence  int
	confidences map[string]int // entity ID → confidence override
	fixes       map[string]any
	err         error
	delay       time.Duration
}

func (r *stubReasoner) ModelName() string { return "stub-model" }

func (r *stubReasoner) ProposeFix(ctx context.Context, issue *domain.AuditIssue, record *domain.Record) (*port.FixProposal, error) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	confidence := r.confidence
	if c, ok := r.confidences[issue.EntityID]; ok {
		confidence = c
	}
	fixes := r.fixes
	if fixes == nil {
		fixes = map[string]any{"email": "fixed@example.com"}
	}
	return &port.FixProposal{
		Reasoning:       "matched against canonical source",
		ConfidenceScore: confidence,
		DataSources:     []string{"record"},
		FixesApplied:    fixes,
	}, nil
}
