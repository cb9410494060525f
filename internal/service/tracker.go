package service

import (
	"sync"
	"time"
)

// RunStatus represents the observable state of an audit run in flight.
type RunStatus struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"` // running, complete, error
	Detected    int       `json:"detected"`
	Processed   int       `json:"processed"`
	Detectors   []string  `json:"completed_detectors"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// Run tracker status values.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusError    = "error"
)

// RunTracker tracks in-flight audit runs in memory so clients can poll or
// stream progress for the detached background task.
type RunTracker struct {
	mu   sync.RWMutex
	runs map[string]*RunStatus
	subs map[string][]chan RunStatus // subscribers per run
}

// NewRunTracker creates a new run tracker.
func NewRunTracker() *RunTracker {
	return &RunTracker{
		runs: make(map[string]*RunStatus),
		subs: make(map[string][]chan RunStatus),
	}
}

// StartRun registers a new running audit.
func (t *RunTracker) StartRun(runID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.runs[runID] = &RunStatus{
		RunID:     runID,
		Status:    RunStatusRunning,
		Detectors: []string{},
		StartedAt: time.Now(),
	}
}

// DetectorDone records that a detector finished its sweep.
func (t *RunTracker) DetectorDone(runID, detector string) {
	t.update(runID, func(run *RunStatus) {
		run.Detectors = append(run.Detectors, detector)
	})
}

// SetDetected records how many issues the detection phase produced.
func (t *RunTracker) SetDetected(runID string, detected int) {
	t.update(runID, func(run *RunStatus) {
		run.Detected = detected
	})
}

// IssueDone records one issue reaching a terminal classification outcome.
func (t *RunTracker) IssueDone(runID string) {
	t.update(runID, func(run *RunStatus) {
		run.Processed++
	})
}

// Complete marks the run finished.
func (t *RunTracker) Complete(runID string) {
	t.update(runID, func(run *RunStatus) {
		run.Status = RunStatusComplete
		run.CompletedAt = time.Now()
	})
}

// Fail marks the run errored.
func (t *RunTracker) Fail(runID string, message string) {
	t.update(runID, func(run *RunStatus) {
		run.Status = RunStatusError
		run.Error = message
		run.CompletedAt = time.Now()
	})
}

func (t *RunTracker) update(runID string, mutate func(*RunStatus)) {
	t.mu.Lock()
	run, ok := t.runs[runID]
	if !ok {
		t.mu.Unlock()
		return
	}
	mutate(run)
	snapshot := *run
	subs := t.subs[runID]
	t.mu.Unlock()

	// Notify subscribers
	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Get returns a run status snapshot.
func (t *RunTracker) Get(runID string) (*RunStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	run, ok := t.runs[runID]
	if !ok {
		return nil, false
	}
	snapshot := *run
	return &snapshot, true
}

// Subscribe returns a channel that receives run updates.
func (t *RunTracker) Subscribe(runID string) chan RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan RunStatus, 10)
	t.subs[runID] = append(t.subs[runID], ch)
	return ch
}

// Unsubscribe removes a channel from subscribers.
func (t *RunTracker) Unsubscribe(runID string, ch chan RunStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[runID]
	for i, s := range subs {
		if s == ch {
			t.subs[runID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	close(ch)
}
