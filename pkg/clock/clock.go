package clock

import "time"

// Clock abstracts wall time for deterministic testing.
type Clock interface {
	Now() time.Time
}

type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// NowMillis returns c.Now() as epoch milliseconds.
func NowMillis(c Clock) int64 { return c.Now().UnixMilli() }
