//go:build !linux

package affinity

// Set pins the calling process to the given cores
func Set(cores []int) error {
	return ErrUnsupported
}

// Get returns the cores the process is allowed to run on
func Get() ([]int, error) {
	return nil, ErrUnsupported
}
