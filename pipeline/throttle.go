package pipeline

import (
	"time"
)

// Throttle enforces a minimum interval between two frame emissions.  It is
// only used by the pipeline worker.
type Throttle struct {
	interval time.Duration
	last     time.Time
	marked   bool
}

// NewThrottle returns a throttle allowing one emission per interval
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
	}
}

// Ready reports whether an emission at now is allowed
func (t *Throttle) Ready(now time.Time) bool {
	return !t.marked || now.Sub(t.last) >= t.interval
}

// Mark records an emission at now
func (t *Throttle) Mark(now time.Time) {
	t.last = now
	t.marked = true
}

// Last returns the time of the last emission
func (t *Throttle) Last() (time.Time, bool) {
	return t.last, t.marked
}

// Reset forgets the last emission
func (t *Throttle) Reset() {
	t.last = time.Time{}
	t.marked = false
}
