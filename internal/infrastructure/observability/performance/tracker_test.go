package performance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsCompletedMarkers(t *testing.T) {
	tr := NewTracker(&TrackerConfig{MaxMarkers: 10, SlowThreshold: time.Hour}, nil)

	m := tr.StartOperation("session:save", "s1")
	m.AddMetadata("revision", 3)
	assert.Equal(t, 1, tr.GetOverallStats()["activeOperations"])
	m.Complete()
	m.Complete()

	failed := tr.StartOperation("session:publish", "s1")
	failed.SetError(errors.New("db down"))
	failed.Complete()

	recent := tr.Recent("", 0)
	require.Len(t, recent, 2)
	assert.Equal(t, "session:publish", recent[0].Operation)
	assert.False(t, recent[0].Success)
	assert.Equal(t, "db down", recent[0].Error)
	assert.True(t, recent[1].Success)
	assert.Equal(t, 3, recent[1].Metadata["revision"])
	assert.Equal(t, 0, tr.GetOverallStats()["activeOperations"])

	only := tr.Recent("session:save", 0)
	require.Len(t, only, 1)
	assert.Equal(t, "s1", only[0].SessionID)
}

func TestTrackerRingEvictsOldest(t *testing.T) {
	tr := NewTracker(&TrackerConfig{MaxMarkers: 3}, nil)
	for _, op := range []string{"a", "b", "c", "d"} {
		tr.StartOperation(op, "").Complete()
	}
	recent := tr.Recent("", 0)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Operation)
	assert.Equal(t, "b", recent[2].Operation)
	assert.Len(t, tr.Recent("", 2), 2)
}

func TestTrackerStatsAggregatePerOperation(t *testing.T) {
	tr := NewTracker(&TrackerConfig{MaxMarkers: 10, SlowThreshold: time.Nanosecond}, nil)
	for i := 0; i < 3; i++ {
		m := tr.StartOperation("preview:render", "")
		time.Sleep(time.Millisecond)
		if i == 0 {
			m.SetSuccess(false)
		}
		m.Complete()
	}
	tr.StartOperation("asset:attach_image", "").Complete()

	stats := tr.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "asset:attach_image", stats[0].Operation)
	preview := stats[1]
	assert.Equal(t, 3, preview.Count)
	assert.Equal(t, 1, preview.Failures)
	assert.Equal(t, 3, preview.Slow)
	assert.GreaterOrEqual(t, preview.Max, preview.Average)
}
