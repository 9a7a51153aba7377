package game

import (
	"time"
)

// Debouncer accepts at most one smile per identity within each debounce
// interval
type Debouncer struct {
	interval time.Duration
	// last holds the time of the last accepted smile per identity
	last map[string]time.Time
}

// NewDebouncer returns a debouncer with the given minimum interval
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		last:     make(map[string]time.Time),
	}
}

// Accept reports whether a smile observed at now should score.  A smile is
// accepted when strictly more than the interval has passed since the last
// accepted smile of the identity, an identity that never smiled is always
// accepted.  Accepted smiles record now as the new last time.
func (d *Debouncer) Accept(id string, now time.Time) bool {

	if last, ok := d.last[id]; ok && now.Sub(last) <= d.interval {
		return false
	}

	d.last[id] = now

	return true
}

// Last returns the time of the last accepted smile of an identity
func (d *Debouncer) Last(id string) (time.Time, bool) {
	t, ok := d.last[id]
	return t, ok
}

// Reset forgets all smile times
func (d *Debouncer) Reset() {
	d.last = make(map[string]time.Time)
}
