package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/arturoeanton/go-data-auditor-ollama/internal/domain"
	"github.com/arturoeanton/go-data-auditor-ollama/internal/port"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ScoreWeights are the severity weights of the quality score formula:
// score = clamp(100 - errors*Error - warnings*Warning - info*Info, 0, 100).
type ScoreWeights struct {
	Error   float64
	Warning float64
	Info    float64
}

// AuditService is the top-level orchestrator: it opens a run, drives detection
// over the record set, pushes every anomaly through classification and
// remediation, and closes the run with aggregated counters and a quality score.
type AuditService struct {
	store       port.Store
	detectors   *port.DetectorRegistry
	classifier  *Classifier
	remediation *RemediationService
	tracker     *RunTracker
	workers     int
	weights     ScoreWeights
	now         func() time.Time

	running atomic.Bool // single-flight guard for the audit scope
}

// NewAuditService creates the orchestrator.
func NewAuditService(store port.Store, detectors *port.DetectorRegistry, classifier *Classifier, remediation *RemediationService, tracker *RunTracker, workers int, weights ScoreWeights) *AuditService {
	if workers < 1 {
		workers = 1
	}
	return &AuditService{
		store:       store,
		detectors:   detectors,
		classifier:  classifier,
		remediation: remediation,
		tracker:     tracker,
		workers:     workers,
		weights:     weights,
		now:         time.Now,
	}
}

// Start opens a new audit run and executes it as a detached background task.
// It returns immediately; a second trigger while a run is in flight fails with
// ErrAuditInFlight instead of interleaving duplicate issues.
func (s *AuditService) Start(ctx context.Context) (*domain.AuditRun, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, port.ErrAuditInFlight
	}

	run := &domain.AuditRun{ID: uuid.New().String(), StartedAt: s.now()}
	created, err := s.store.CreateRun(ctx, run)
	if err != nil {
		s.running.Store(false)
		return nil, fmt.Errorf("start audit: %w", err)
	}

	s.tracker.StartRun(created.ID)
	slog.Info("audit run started", "run_id", created.ID, "detectors", s.detectors.Names())

	go s.execute(created.ID)

	return created, nil
}

// execute runs detection and remediation to completion. Per-issue failures
// never abort the run; they are logged against the issue and recovered through
// escalation, so one bad record cannot prevent the audit from completing.
func (s *AuditService) execute(runID string) {
	defer s.running.Store(false)
	ctx := context.Background()

	records, err := s.store.ListRecords(ctx)
	if err != nil {
		slog.Error("audit aborted: cannot list records", "run_id", runID, "error", err)
		s.tracker.Fail(runID, err.Error())
		return
	}

	issues := s.detect(ctx, runID, records)
	s.tracker.SetDetected(runID, len(issues))

	// Bounded fan-out; completion order need not match detection order.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range issues {
		issue := issues[i]
		g.Go(func() error {
			if _, err := s.remediation.AttemptFix(gctx, &issue); err != nil {
				// Persistence failure: the issue keeps its last-recorded state.
				slog.Error("remediation could not be persisted",
					"run_id", runID, "issue_id", issue.ID, "error", err)
			}
			s.tracker.IssueDone(runID)
			return nil
		})
	}
	_ = g.Wait()

	s.finalize(ctx, runID)
}

// detect iterates the registered detectors and persists one issue per anomaly,
// in detection order. A failing detector is logged and skipped.
func (s *AuditService) detect(ctx context.Context, runID string, records []domain.Record) []domain.AuditIssue {
	var issues []domain.AuditIssue
	for _, detector := range s.detectors.All() {
		anomalies, err := detector.Detect(ctx, records)
		if err != nil {
			slog.Error("detector failed, skipping", "run_id", runID, "detector", detector.Name(), "error", err)
			continue
		}

		for _, anomaly := range anomalies {
			cls := s.classifier.Classify(anomaly)
			issue := &domain.AuditIssue{
				AuditRunID:   runID,
				Description:  fmt.Sprintf("%s: %s", detector.Name(), anomaly.Description),
				Severity:     cls.Severity,
				Status:       domain.IssueStatusDetected,
				EntityType:   anomaly.EntityType,
				EntityID:     anomaly.EntityID,
				SuggestedFix: cls.SuggestedFix,
				DetectedAt:   s.now(),
			}
			created, err := s.store.CreateIssue(ctx, issue)
			if err != nil {
				slog.Error("issue could not be persisted, skipping",
					"run_id", runID, "detector", detector.Name(), "entity_id", anomaly.EntityID, "error", err)
				continue
			}
			issues = append(issues, *created)
		}
		s.tracker.DetectorDone(runID, detector.Name())
	}
	return issues
}

// finalize aggregates the run's counters in a single pass over the finished
// issue set and stamps the completion time.
func (s *AuditService) finalize(ctx context.Context, runID string) {
	agg, err := s.store.AggregateIssues(ctx, runID)
	if err != nil {
		slog.Error("aggregate failed, run left open", "run_id", runID, "error", err)
		s.tracker.Fail(runID, err.Error())
		return
	}

	score := s.Score(agg)
	if err := s.store.FinalizeRun(ctx, runID, agg, score, s.now()); err != nil {
		slog.Error("finalize failed", "run_id", runID, "error", err)
		s.tracker.Fail(runID, err.Error())
		return
	}

	s.tracker.Complete(runID)
	slog.Info("audit run complete",
		"run_id", runID, "total_issues", agg.Total, "auto_fixed", agg.AutoFixed,
		"manual_queue", agg.Escalated, "score", score)
}

// Score computes the quality score from severity counts. It is deterministic
// and monotonic: more issues never raise the score.
func (s *AuditService) Score(agg port.IssueAggregate) float64 {
	penalty := float64(agg.Errors)*s.weights.Error +
		float64(agg.Warnings)*s.weights.Warning +
		float64(agg.Info)*s.weights.Info
	score := 100 - penalty
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// History returns the most recent runs, newest first.
func (s *AuditService) History(ctx context.Context, limit int) ([]domain.AuditRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListRuns(ctx, limit)
}

// Running reports whether an audit is currently in flight for this scope.
func (s *AuditService) Running() bool {
	return s.running.Load()
}
