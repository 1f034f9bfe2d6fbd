package clock

import "time"

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// TickID identifies a scheduled frame callback. The zero value is never issued.
type TickID uint64

// Scheduler hands out one-shot frame callbacks, in the manner of a display
// refresh loop. A callback receives the timestamp of the frame it runs in.
type Scheduler interface {
	ScheduleTick(fn func(frame time.Time)) TickID
	CancelTick(id TickID)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the Clock backed by time.Now.
var System Clock = systemClock{}
