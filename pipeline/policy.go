package pipeline

import (
	"strings"

	"github.com/pkg/errors"
)

// Policy decides what the pipeline does when a frame cannot be acquired
type Policy int

const (
	// Continue skips the cycle and tries again on the next one
	Continue Policy = iota
	// Stop ends the pipeline and releases the camera
	Stop
)

// ParsePolicy converts the configuration value "continue" or "stop" to a
// Policy.  An empty value gives Continue.
func ParsePolicy(s string) (Policy, error) {

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "continue":
		return Continue, nil
	case "stop":
		return Stop, nil
	}

	return Continue, errors.Errorf("unknown acquisition failure policy %q, use continue or stop", s)
}

func (p Policy) String() string {
	switch p {
	case Stop:
		return "stop"
	default:
		return "continue"
	}
}
