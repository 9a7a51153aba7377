package tracker

import (
	"image"
	"sync"
)

// Track represents a track history
type Track struct {
	points []image.Point
}

// Trail is the struct to keep a history of identity positions used for
// drawing a trail
type Trail struct {
	// size is the maximum number of most recent points to keep in history
	size int
	// history of tracked points per identity label
	history map[string]*Track
	sync.Mutex
}

// NewTrail returns a new trail history track instance.  Size is the number
// of most recent trails to keep and specifies the maximum length of the trail
// to maintain
func NewTrail(size int) *Trail {
	return &Trail{
		size:    size,
		history: make(map[string]*Track),
	}
}

// Reset clears all history
func (t *Trail) Reset() {
	t.Lock()
	defer t.Unlock()

	t.history = make(map[string]*Track)
}

// Add the center point of box to the history of identity id
func (t *Trail) Add(id string, box Rect) {
	t.Lock()
	defer t.Unlock()

	track, exists := t.history[id]

	if !exists {
		track = &Track{}
		t.history[id] = track
	}

	track.points = append(track.points, box.Center())

	// check if history is exceeded and drop oldest point
	if len(track.points) > t.size {
		track.points = track.points[1:]
	}
}

// GetPoints gets a copy of the point history for an identity
func (t *Trail) GetPoints(id string) []image.Point {
	t.Lock()
	defer t.Unlock()

	track, exists := t.history[id]

	if !exists {
		// no history yet
		return nil
	}

	out := make([]image.Point, len(track.points))
	copy(out, track.points)

	return out
}
