package platform

import "time"

// Clock supplies timestamps.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns UTC wall-clock time.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })
