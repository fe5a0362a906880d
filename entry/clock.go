package entry

import "time"

// Clock provides wall-clock time as UnixNano; overridable for deterministic
// tests. A nil Clock means time.Now() is used.
type Clock interface {
	NowUnixNano() int64
}

// SystemClock is the default Clock backed by time.Now().
type SystemClock struct{}

// NowUnixNano implements Clock.
func (SystemClock) NowUnixNano() int64 { return time.Now().UnixNano() }

func now(c Clock) int64 {
	if c == nil {
		return time.Now().UnixNano()
	}
	return c.NowUnixNano()
}
