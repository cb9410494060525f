package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTrackerLifecycle(t *testing.T) {
	tracker := NewRunTracker()
	tracker.StartRun("run-1")

	status, ok := tracker.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, RunStatusRunning, status.Status)

	tracker.DetectorDone("run-1", "missing_fields")
	tracker.SetDetected("run-1", 3)
	tracker.IssueDone("run-1")
	tracker.IssueDone("run-1")
	tracker.Complete("run-1")

	status, ok = tracker.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, RunStatusComplete, status.Status)
	assert.Equal(t, 3, status.Detected)
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, []string{"missing_fields"}, status.Detectors)
	assert.False(t, status.CompletedAt.IsZero())

	_, ok = tracker.Get("run-2")
	assert.False(t, ok)
}

func TestRunTrackerFail(t *testing.T) {
	tracker := NewRunTracker()
	tracker.StartRun("run-1")
	tracker.Fail("run-1", "cannot list records")

	status, ok := tracker.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, RunStatusError, status.Status)
	assert.Equal(t, "cannot list records", status.Error)
}

func TestRunTrackerSubscribe(t *testing.T) {
	tracker := NewRunTracker()
	tracker.StartRun("run-1")

	ch := tracker.Subscribe("run-1")
	tracker.SetDetected("run-1", 5)

	update := <-ch
	assert.Equal(t, 5, update.Detected)

	tracker.Unsubscribe("run-1", ch)
	_, open := <-ch
	assert.False(t, open, "unsubscribe closes the channel")
}
