package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/stats"
)

func TestZeroValueIsReadyToUse(t *testing.T) {
	var s stats.Statistics
	snap := s.Snapshot()
	require.Equal(t, int64(0), snap.Hits)
	require.Equal(t, float64(0), snap.HitRatio)
}

func TestRecordHitAndMissUpdateRatio(t *testing.T) {
	var s stats.Statistics
	s.RecordHit(0)
	s.RecordHit(0)
	s.RecordMiss(0)

	snap := s.Snapshot()
	require.Equal(t, int64(2), snap.Hits)
	require.Equal(t, int64(1), snap.Misses)
	require.Equal(t, int64(3), snap.Requests)
	require.InDelta(t, 2.0/3.0, snap.HitRatio, 1e-9)
}

func TestRecordHitTracksAverageAccessTime(t *testing.T) {
	var s stats.Statistics
	s.RecordHit(10 * time.Millisecond)
	s.RecordHit(30 * time.Millisecond)

	snap := s.Snapshot()
	require.Equal(t, 20*time.Millisecond, snap.AverageAccess)
}

func TestEntryAddedAndRemovedTrackCurrentSizeAndCount(t *testing.T) {
	var s stats.Statistics
	s.RecordEntryAdded(100)
	s.RecordEntryAdded(50)
	require.Equal(t, int64(150), s.CurrentSizeBytes())
	require.Equal(t, int64(2), s.CurrentCount())

	s.RecordEntryRemoved(50)
	require.Equal(t, int64(100), s.CurrentSizeBytes())
	require.Equal(t, int64(1), s.CurrentCount())
}

func TestAdjustSizeLeavesCountUnchanged(t *testing.T) {
	var s stats.Statistics
	s.RecordEntryAdded(100)
	s.AdjustSize(25)
	require.Equal(t, int64(125), s.CurrentSizeBytes())
	require.Equal(t, int64(1), s.CurrentCount())
}

func TestUpdateCurrentOverwritesBoth(t *testing.T) {
	var s stats.Statistics
	s.RecordEntryAdded(100)
	s.UpdateCurrent(0, 0)
	require.Equal(t, int64(0), s.CurrentSizeBytes())
	require.Equal(t, int64(0), s.CurrentCount())
}

func TestResetClearsCountersButNotCurrentSize(t *testing.T) {
	var s stats.Statistics
	s.RecordHit(0)
	s.RecordMiss(0)
	s.RecordEviction(3)
	s.RecordExpired(1)
	s.RecordEntryAdded(200)

	s.Reset()

	snap := s.Snapshot()
	require.Equal(t, int64(0), snap.Hits)
	require.Equal(t, int64(0), snap.Misses)
	require.Equal(t, int64(0), snap.Evictions)
	require.Equal(t, int64(0), snap.Expired)
	require.Equal(t, int64(200), snap.CurrentSizeBytes)
}

func TestRecordEvictionAndExpired(t *testing.T) {
	var s stats.Statistics
	s.RecordEviction(4)
	s.RecordExpired(2)
	snap := s.Snapshot()
	require.Equal(t, int64(4), snap.Evictions)
	require.Equal(t, int64(2), snap.Expired)
}
