package smilecam

import (
	"encoding/json"
	"time"
)

// EventType names the kind of event pushed to observers
type EventType string

const (
	// EventFrame carries an annotated JPEG frame
	EventFrame EventType = "frame"
	// EventPointsUpdate carries the new points balance of an identity
	EventPointsUpdate EventType = "points_update"
	// EventReward is emitted once per reward threshold crossing
	EventReward EventType = "reward"
	// EventReset is emitted when an operator reset has cleared all game state
	EventReset EventType = "reset"
)

// Event is a single item on the outbound queue from the frame pipeline to the
// transport layer
type Event struct {
	// Type of the event
	Type EventType
	// FaceID is the identity label the event refers to
	FaceID string
	// Points is the balance after an update, or the pre-reset balance for a
	// reward
	Points int
	// Message is the human readable reward message
	Message string
	// Image is the encoded frame as base64 text
	Image string
	// JPEG holds the raw encoded frame bytes
	JPEG []byte
	// Time the event was produced
	Time time.Time
}

// FramePayload is the observer facing shape of a frame event
type FramePayload struct {
	Image string `json:"image"`
}

// PointsPayload is the observer facing shape of a points_update event
type PointsPayload struct {
	FaceID string `json:"face_id"`
	Points int    `json:"points"`
}

// RewardPayload is the observer facing shape of a reward event
type RewardPayload struct {
	FaceID  string `json:"face_id"`
	Points  int    `json:"points"`
	Message string `json:"message"`
}

// NewFrameEvent returns a frame event for the given encoded image
func NewFrameEvent(jpg []byte, encoded string, now time.Time) Event {
	return Event{
		Type:  EventFrame,
		Image: encoded,
		JPEG:  jpg,
		Time:  now,
	}
}

// NewPointsEvent returns a points_update event
func NewPointsEvent(faceID string, points int, now time.Time) Event {
	return Event{
		Type:   EventPointsUpdate,
		FaceID: faceID,
		Points: points,
		Time:   now,
	}
}

// NewRewardEvent returns a reward event carrying the balance that crossed the
// threshold
func NewRewardEvent(faceID string, points int, message string, now time.Time) Event {
	return Event{
		Type:    EventReward,
		FaceID:  faceID,
		Points:  points,
		Message: message,
		Time:    now,
	}
}

// NewResetEvent returns a reset event
func NewResetEvent(now time.Time) Event {
	return Event{
		Type: EventReset,
		Time: now,
	}
}

// Payload returns the data carried by the event in the shape observers expect
func (e Event) Payload() any {
	switch e.Type {
	case EventFrame:
		return FramePayload{Image: e.Image}
	case EventPointsUpdate:
		return PointsPayload{FaceID: e.FaceID, Points: e.Points}
	case EventReward:
		return RewardPayload{FaceID: e.FaceID, Points: e.Points, Message: e.Message}
	default:
		return struct{}{}
	}
}

// MarshalJSON writes the event as an {"event": ..., "data": ...} envelope
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Event EventType `json:"event"`
		Data  any       `json:"data"`
	}{
		Event: e.Type,
		Data:  e.Payload(),
	})
}
