package game

import (
	"time"

	"github.com/swdee/go-smilecam"
)

// Scorer converts smile observations into scoring events.  It owns the last
// smile time and points balance of every identity and must be driven from a
// single goroutine.
type Scorer struct {
	debouncer *Debouncer
	rewards   *Rewards
}

// NewScorer returns a scorer for the given rules
func NewScorer(p Params) (*Scorer, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Scorer{
		debouncer: NewDebouncer(p.SmileDebounce),
		rewards:   NewRewards(p),
	}, nil
}

// OnDetection handles the smile check of one identity for one frame.  It
// returns no events when the identity is not smiling or the smile falls
// inside the debounce window.
func (s *Scorer) OnDetection(id string, smiling bool, now time.Time) []smilecam.Event {

	if !smiling {
		return nil
	}

	if !s.debouncer.Accept(id, now) {
		return nil
	}

	return s.rewards.Award(id, now)
}

// Balance returns the current points of an identity
func (s *Scorer) Balance(id string) int {
	return s.rewards.Balance(id)
}

// Balances returns a copy of all balances
func (s *Scorer) Balances() map[string]int {
	return s.rewards.Balances()
}

// LastSmile returns the time of the last accepted smile of an identity
func (s *Scorer) LastSmile(id string) (time.Time, bool) {
	return s.debouncer.Last(id)
}

// Reset clears all balances and smile times
func (s *Scorer) Reset() {
	s.debouncer.Reset()
	s.rewards.Reset()
}
