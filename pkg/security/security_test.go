package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestTracker(threshold int, window time.Duration, maxClients int) *Tracker {
	return New(threshold, window, maxClients)
}

func TestRecordFailure_BlocksAtThreshold(t *testing.T) {
	tr := newTestTracker(3, 10*time.Minute, 128)

	assert.False(t, tr.RecordFailure("10.0.0.1"))
	assert.False(t, tr.RecordFailure("10.0.0.1"))
	assert.True(t, tr.RecordFailure("10.0.0.1"))

	assert.True(t, tr.IsBlocked("10.0.0.1"))
}

func TestIsBlocked_FalseBeforeThreshold(t *testing.T) {
	tr := newTestTracker(3, 10*time.Minute, 128)

	tr.RecordFailure("10.0.0.1")
	assert.False(t, tr.IsBlocked("10.0.0.1"))
}

func TestIsBlocked_UntrackedIPIsNeverBlocked(t *testing.T) {
	tr := newTestTracker(3, 10*time.Minute, 128)
	assert.False(t, tr.IsBlocked("10.0.0.9"))
}

func TestRecordSuccess_ClearsFailuresAndBlock(t *testing.T) {
	tr := newTestTracker(3, 10*time.Minute, 128)

	tr.RecordFailure("10.0.0.1")
	tr.RecordFailure("10.0.0.1")
	tr.RecordSuccess("10.0.0.1")

	assert.False(t, tr.RecordFailure("10.0.0.1"))
	assert.False(t, tr.IsBlocked("10.0.0.1"))
}

func TestBlockExpires_AfterWindowElapses(t *testing.T) {
	tr := newTestTracker(1, time.Millisecond, 128)
	fakeNow := time.Now()
	tr.now = func() time.Time { return fakeNow }

	assert.True(t, tr.RecordFailure("10.0.0.1"))
	assert.True(t, tr.IsBlocked("10.0.0.1"))

	fakeNow = fakeNow.Add(2 * time.Millisecond)
	assert.False(t, tr.IsBlocked("10.0.0.1"))
}

func TestMakeRoom_EvictsLeastRecentlySeenUnblockedClient(t *testing.T) {
	tr := newTestTracker(3, 10*time.Minute, 2)

	tr.RecordFailure("a")
	tr.RecordFailure("b")
	// Tracker is at capacity (2); "a" is the least recently touched.
	tr.RecordFailure("c")

	assert.Len(t, tr.clients, 2)
	_, stillTracked := tr.clients["a"]
	assert.False(t, stillTracked)
}

func TestMakeRoom_RefusesNewIPWhenAllBlocked(t *testing.T) {
	tr := newTestTracker(1, 10*time.Minute, 1)

	assert.True(t, tr.RecordFailure("a"))
	assert.True(t, tr.IsBlocked("a"))

	assert.False(t, tr.RecordFailure("b"))
	assert.False(t, tr.IsBlocked("b"))
}
