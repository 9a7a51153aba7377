package game

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Params defines the scoring rules of the game
type Params struct {
	// PointsPerSmile is the number of points added for each accepted smile
	PointsPerSmile int
	// RewardThreshold is the balance at which a reward fires and the balance
	// is reset to zero
	RewardThreshold int
	// SmileDebounce is the minimum time between two accepted smiles of the
	// same identity
	SmileDebounce time.Duration
	// RewardMessage is a format string taking the identity label
	RewardMessage string
}

// DefaultParams returns the default game rules
// - Points per smile: 10
// - Reward threshold: 100
// - Smile debounce: 2s
func DefaultParams() Params {
	return Params{
		PointsPerSmile:  10,
		RewardThreshold: 100,
		SmileDebounce:   2 * time.Second,
		RewardMessage:   "%s earned a reward!",
	}
}

// Validate checks the parameters can drive the reward state machine
func (p Params) Validate() error {

	if p.PointsPerSmile <= 0 {
		return errors.Errorf("points per smile must be positive, got %d", p.PointsPerSmile)
	}

	if p.RewardThreshold <= 0 {
		return errors.Errorf("reward threshold must be positive, got %d", p.RewardThreshold)
	}

	if p.SmileDebounce < 0 {
		return errors.Errorf("smile debounce must not be negative, got %s", p.SmileDebounce)
	}

	// the message is formatted with the label as its only argument
	if p.RewardMessage != "" {
		verbs := strings.Count(strings.ReplaceAll(p.RewardMessage, "%%", ""), "%")

		if verbs != 1 || !strings.Contains(p.RewardMessage, "%s") {
			return errors.Errorf("reward message must contain exactly one %%s, got %q", p.RewardMessage)
		}
	}

	return nil
}
