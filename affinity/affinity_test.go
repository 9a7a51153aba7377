package affinity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	assert.Equal(t, uint64(0b11110000), Mask([]int{4, 5, 6, 7}))
	assert.Equal(t, uint64(0b00110000), Mask([]int{4, 5}))
	assert.Equal(t, uint64(0), Mask(nil))
}

func TestPlatformCores(t *testing.T) {

	cores, err := PlatformCores("RK3588", FastCores)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6, 7}, cores)

	cores, err = PlatformCores("rk3582", AllCores)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b00111111), Mask(cores))

	_, err = PlatformCores("rk9999", FastCores)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rk3588")

	assert.Contains(t, Platforms(), "rk3566")
}

func TestResolve(t *testing.T) {

	tests := []struct {
		name     string
		cores    []int
		platform string
		coreType string
		want     []int
		wantErr  bool
	}{
		{name: "nothing configured"},
		{name: "explicit cores win", cores: []int{2, 3}, platform: "rk3588", want: []int{2, 3}},
		{name: "platform default fast", platform: "rk3576", want: []int{4, 5, 6, 7}},
		{name: "platform slow", platform: "rk3588", coreType: "slow", want: []int{0, 1, 2, 3}},
		{name: "bad core type", platform: "rk3588", coreType: "turbo", wantErr: true},
		{name: "negative core", cores: []int{-1}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Resolve(tc.cores, tc.platform, tc.coreType)

			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
