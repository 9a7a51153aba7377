package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-smilecam/pipeline"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadYAML(t *testing.T) {

	path := filepath.Join(t.TempDir(), "smilecam.yaml")

	data := `
camera:
  device: /videos/party.mp4
  on_read_failure: stop
game:
  points_per_smile: 25
  smile_debounce: 1500ms
stream:
  frame_emit_interval: 80ms
ledger:
  path: /tmp/smiles.db
cpu:
  platform: rk3588
  core_type: fast
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/videos/party.mp4", cfg.Camera.Device)
	assert.Equal(t, 25, cfg.Game.PointsPerSmile)
	assert.Equal(t, 1500*time.Millisecond, cfg.Game.SmileDebounce)
	assert.Equal(t, 80*time.Millisecond, cfg.Stream.FrameEmitInterval)
	assert.Equal(t, "/tmp/smiles.db", cfg.Ledger.Path)
	assert.Equal(t, "rk3588", cfg.CPU.Platform)

	// untouched settings keep their defaults
	assert.Equal(t, 100, cfg.Game.RewardThreshold)
	assert.Equal(t, 640, cfg.Camera.Width)

	dc, err := cfg.DriverConfig()
	require.NoError(t, err)
	assert.Equal(t, pipeline.Stop, dc.Policy)
	assert.Equal(t, 80*time.Millisecond, dc.FrameEmitInterval)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SMILECAM_ADDR", "127.0.0.1:9000")
	t.Setenv("SMILECAM_CAMERA", "2")
	t.Setenv("SMILECAM_JPEG_QUALITY", "notanumber")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "2", cfg.Camera.Device)
	assert.Equal(t, 80, cfg.Stream.JPEGQuality)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateCollectsErrors(t *testing.T) {

	cfg := Default()
	cfg.Camera.OnReadFailure = "retry"
	cfg.Game.RewardThreshold = 0
	cfg.Stream.JPEGQuality = 0
	cfg.CPU.Platform = "rk9999"

	err := cfg.Validate()
	require.Error(t, err)

	assert.Contains(t, err.Error(), "retry")
	assert.Contains(t, err.Error(), "reward threshold")
	assert.Contains(t, err.Error(), "jpeg_quality")
	assert.Contains(t, err.Error(), "rk9999")
}
