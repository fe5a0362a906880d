package entry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voltcache/corecache/entry"
)

type fakeClock struct{ nanos int64 }

func (c *fakeClock) NowUnixNano() int64 { return c.nanos }

func TestNewEntryInitializesMetadata(t *testing.T) {
	e := entry.New("k", "v", 0, entry.Normal, nil, nil)
	md := e.Metadata()

	require.Equal(t, int64(0), md.AccessCount)
	require.Equal(t, entry.Normal, md.Priority)
	require.Equal(t, time.Duration(0), md.TTL)
	require.False(t, md.Expired)
	require.False(t, md.Dirty)
	require.Greater(t, md.SizeBytes, 0)
}

func TestReadIncrementsAccessCountAndTouchesTime(t *testing.T) {
	clock := &fakeClock{nanos: 1000}
	e := entry.New("k", "v", 0, entry.Normal, nil, clock)

	clock.nanos = 2000
	v := e.Read()
	require.Equal(t, "v", v)
	require.Equal(t, int64(1), e.AccessCount())
	require.Equal(t, clock.nanos, e.LastAccessedAt().UnixNano())
}

func TestPeekDoesNotTouch(t *testing.T) {
	e := entry.New("k", "v", 0, entry.Normal, nil, nil)
	_ = e.Peek()
	require.Equal(t, int64(0), e.AccessCount())
}

func TestWriteUpdatesValueAndReturnsSizeDelta(t *testing.T) {
	e := entry.New("k", "a", 0, entry.Normal, nil, nil)
	before := e.SizeBytes()

	delta := e.Write("aaaaaaaaaa", 0)
	require.Equal(t, e.SizeBytes()-before, delta)
	require.Equal(t, "aaaaaaaaaa", e.Peek())

	md := e.Metadata()
	require.True(t, md.Dirty)
}

func TestWriteWithTTLSetsExpiration(t *testing.T) {
	e := entry.New("k", "v", 0, entry.Normal, nil, nil)
	require.Equal(t, time.Duration(0), e.TTL())

	e.Write("v2", time.Minute)
	require.Equal(t, time.Minute, e.TTL())

	e.Write("v3", 0)
	require.Equal(t, time.Duration(0), e.TTL())
}

func TestIsExpiredRespectsClock(t *testing.T) {
	clock := &fakeClock{nanos: 0}
	e := entry.New("k", "v", 10*time.Millisecond, entry.Normal, nil, clock)
	require.False(t, e.IsExpired())

	clock.nanos = int64(20 * time.Millisecond)
	require.True(t, e.IsExpired())
}

func TestIsExpiredNeverWhenNoTTL(t *testing.T) {
	clock := &fakeClock{nanos: 0}
	e := entry.New("k", "v", 0, entry.Normal, nil, clock)
	clock.nanos = int64(time.Hour)
	require.False(t, e.IsExpired())
}

func TestSetPriority(t *testing.T) {
	e := entry.New("k", "v", 0, entry.Low, nil, nil)
	require.Equal(t, entry.Low, e.Priority())
	e.SetPriority(entry.High)
	require.Equal(t, entry.High, e.Priority())
}

func TestDefaultSizerEstimatesStringsAndBytes(t *testing.T) {
	sizer := entry.DefaultSizer{}

	// key="ab" (2 chars, 2B/char) + value="hello" (5 chars, 2B/char) + 128B overhead.
	require.Equal(t, 2*2+5*2+128, sizer.EstimateSize("ab", "hello"))

	// key="ab" (4B) + value=[]byte of length 3 (raw length) + 128B overhead.
	require.Equal(t, 2*2+3+128, sizer.EstimateSize("ab", []byte("xyz")))
}

func TestPriorityString(t *testing.T) {
	require.Equal(t, "low", entry.Low.String())
	require.Equal(t, "normal", entry.Normal.String())
	require.Equal(t, "high", entry.High.String())
	require.Equal(t, "never_evict", entry.NeverEvict.String())
}
