package tracker

import (
	"math"
)

// Tolerance defines how far a detection box may be from an identity's last
// known box and still be considered the same person.  On each axis the
// allowed center offset is max(Min, Ratio * previous box size).
type Tolerance struct {
	// Min is the minimum allowed offset in pixels
	Min int
	// Ratio is the fraction of the previous box width/height allowed
	Ratio float64
}

// DefaultTolerance returns the tolerance of 50 pixels or half the box size,
// whichever is larger
func DefaultTolerance() Tolerance {
	return Tolerance{
		Min:   50,
		Ratio: 0.5,
	}
}

// Matches reports whether next lies within tolerance of prev
func (t Tolerance) Matches(prev, next Rect) bool {

	pc := prev.Center()
	nc := next.Center()

	limitX := math.Max(float64(t.Min), t.Ratio*float64(prev.Width))
	limitY := math.Max(float64(t.Min), t.Ratio*float64(prev.Height))

	dx := math.Abs(float64(nc.X - pc.X))
	dy := math.Abs(float64(nc.Y - pc.Y))

	return dx < limitX && dy < limitY
}

// Identities assigns stable labels to detection boxes across frames using
// only spatial proximity.  It is the sole owner of the tracked positions and
// is meant to be driven by a single goroutine, only the label counter is safe
// for concurrent use.
//
// Identities are never evicted.  A person who leaves the frame keeps their
// stale position and may come back under a new label if they reappear
// somewhere else.
type Identities struct {
	tolerance Tolerance
	idGen     *IDGenerator
	// order holds labels in creation order which is the enumeration order
	// used when matching
	order []string
	// positions holds the last known box for each label
	positions map[string]Rect
}

// NewIdentities returns an identity tracker.  If idGen is nil a new
// generator with the default label prefix is used.
func NewIdentities(tolerance Tolerance, idGen *IDGenerator) *Identities {

	if idGen == nil {
		idGen = NewIDGenerator()
	}

	return &Identities{
		tolerance: tolerance,
		idGen:     idGen,
		positions: make(map[string]Rect),
	}
}

// MatchOrCreate returns the label of the first identity, in creation order,
// whose last position is within tolerance of box.  When nothing matches a new
// label is allocated.  Either way the identity's position is overwritten
// with box.
func (t *Identities) MatchOrCreate(box Rect) (id string, created bool) {

	for _, label := range t.order {
		if t.tolerance.Matches(t.positions[label], box) {
			id = label
			break
		}
	}

	if id == "" {
		id = t.idGen.GetNext()
		t.order = append(t.order, id)
		created = true
	}

	t.positions[id] = box

	return id, created
}

// Position returns the last known box of an identity
func (t *Identities) Position(id string) (Rect, bool) {
	r, ok := t.positions[id]
	return r, ok
}

// Labels returns all identity labels in creation order
func (t *Identities) Labels() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Len returns the number of identities tracked
func (t *Identities) Len() int {
	return len(t.order)
}

// Reset forgets all tracked positions.  The label counter is not rewound so
// labels handed out after a reset are still unique.
func (t *Identities) Reset() {
	t.order = nil
	t.positions = make(map[string]Rect)
}
