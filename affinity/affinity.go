// Package affinity pins the process to a set of CPU cores.  On big.LITTLE
// boards the detection loop runs noticeably faster when kept on the fast
// cores.
package affinity

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupported is returned on platforms without CPU affinity support
var ErrUnsupported = errors.New("cpu affinity is not supported on this platform")

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

// ParseCoreType converts "fast", "slow" or "all" to a CoreType
func ParseCoreType(s string) (CoreType, error) {

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fast":
		return FastCores, nil
	case "slow":
		return SlowCores, nil
	case "all":
		return AllCores, nil
	}

	return FastCores, errors.Errorf("unknown core type %q, use fast, slow or all", s)
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// platformCores lists the core numbers of each core type for known Rockchip
// SoCs
var platformCores = map[string]map[CoreType][]int{
	"rk3562": {FastCores: seq(0, 3), SlowCores: seq(0, 3), AllCores: seq(0, 3)},
	"rk3566": {FastCores: seq(0, 3), SlowCores: seq(0, 3), AllCores: seq(0, 3)},
	"rk3568": {FastCores: seq(0, 3), SlowCores: seq(0, 3), AllCores: seq(0, 3)},
	"rk3576": {FastCores: seq(4, 7), SlowCores: seq(0, 3), AllCores: seq(0, 7)},
	"rk3582": {FastCores: seq(4, 5), SlowCores: seq(0, 3), AllCores: seq(0, 5)},
	"rk3588": {FastCores: seq(4, 7), SlowCores: seq(0, 3), AllCores: seq(0, 7)},
}

// PlatformCores returns the cores of the given type on a platform such as
// "rk3588"
func PlatformCores(platform string, ct CoreType) ([]int, error) {

	cores, ok := platformCores[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return nil, errors.Errorf("unknown platform: %s, expected one of %s",
			platform, strings.Join(Platforms(), ", "))
	}

	out := make([]int, len(cores[ct]))
	copy(out, cores[ct])

	return out, nil
}

// Platforms returns the names of the known platforms
func Platforms() []string {

	names := make([]string, 0, len(platformCores))

	for name := range platformCores {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Mask calculates the affinity bit mask of the given core numbers,
// eg: []int{4,5,6,7} gives 0b11110000
func Mask(cores []int) uint64 {

	var mask uint64

	for _, core := range cores {
		if core >= 0 && core < 64 {
			mask |= 1 << core
		}
	}

	return mask
}

// Resolve picks the cores to run on.  An explicit core list wins over a
// platform lookup, nothing configured gives no cores.
func Resolve(cores []int, platform, coreType string) ([]int, error) {

	if len(cores) > 0 {
		for _, c := range cores {
			if c < 0 {
				return nil, errors.Errorf("invalid cpu core %d", c)
			}
		}
		return cores, nil
	}

	if platform == "" {
		return nil, nil
	}

	ct, err := ParseCoreType(coreType)

	if err != nil {
		return nil, err
	}

	return PlatformCores(platform, ct)
}
