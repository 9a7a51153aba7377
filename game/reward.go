package game

import (
	"fmt"
	"time"

	"github.com/swdee/go-smilecam"
)

// Rewards is the reward state machine.  Each identity accumulates points
// until the threshold is reached, at which point a reward is emitted and the
// balance is reset within the same call.  No balance is ever left at or
// above the threshold once Award returns.
type Rewards struct {
	pointsPerSmile int
	threshold      int
	message        string
	balances       map[string]int
}

// NewRewards returns a reward state machine using the given rules
func NewRewards(p Params) *Rewards {
	return &Rewards{
		pointsPerSmile: p.PointsPerSmile,
		threshold:      p.RewardThreshold,
		message:        p.RewardMessage,
		balances:       make(map[string]int),
	}
}

// Award credits one accepted smile to the identity and returns the events
// produced, which is a points_update carrying the new balance, followed by a
// reward and a points_update of zero when the threshold was crossed
func (r *Rewards) Award(id string, now time.Time) []smilecam.Event {

	balance := r.balances[id] + r.pointsPerSmile
	r.balances[id] = balance

	events := []smilecam.Event{
		smilecam.NewPointsEvent(id, balance, now),
	}

	if balance < r.threshold {
		return events
	}

	r.balances[id] = 0

	return append(events,
		smilecam.NewRewardEvent(id, balance, r.rewardMessage(id), now),
		smilecam.NewPointsEvent(id, 0, now),
	)
}

// rewardMessage formats the reward message for an identity
func (r *Rewards) rewardMessage(id string) string {
	if r.message == "" {
		return fmt.Sprintf("%s earned a reward!", id)
	}
	return fmt.Sprintf(r.message, id)
}

// Balance returns the current points of an identity
func (r *Rewards) Balance(id string) int {
	return r.balances[id]
}

// Balances returns a copy of all balances
func (r *Rewards) Balances() map[string]int {

	out := make(map[string]int, len(r.balances))

	for id, pts := range r.balances {
		out[id] = pts
	}

	return out
}

// Reset clears all balances
func (r *Rewards) Reset() {
	r.balances = make(map[string]int)
}
