//go:build linux

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Set pins the calling process to the given cores
func Set(cores []int) error {

	var set unix.CPUSet

	for _, c := range cores {
		set.Set(c)
	}

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrap(err, "failed to set CPU affinity")
	}

	return nil
}

// Get returns the cores the process is allowed to run on
func Get() ([]int, error) {

	var set unix.CPUSet

	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "failed to get CPU affinity")
	}

	n := set.Count()
	cores := make([]int, 0, n)

	for c := 0; len(cores) < n; c++ {
		if set.IsSet(c) {
			cores = append(cores, c)
		}
	}

	return cores, nil
}
