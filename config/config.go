package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/swdee/go-smilecam/affinity"
	"github.com/swdee/go-smilecam/detect"
	"github.com/swdee/go-smilecam/game"
	"github.com/swdee/go-smilecam/pipeline"
	"github.com/swdee/go-smilecam/tracker"
)

// Config is the process wide configuration.  It is read once at startup and
// never changed afterwards.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Detector DetectorConfig `yaml:"detector"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Game     GameConfig     `yaml:"game"`
	Stream   StreamConfig   `yaml:"stream"`
	Server   ServerConfig   `yaml:"server"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log"`
	CPU      CPUConfig      `yaml:"cpu"`
}

type CameraConfig struct {
	Device        string `yaml:"device"` // device index such as "0", or a video file/URL
	Width         int    `yaml:"width"`  // target frame width, 0 keeps the source size
	Height        int    `yaml:"height"`
	Mirror        bool   `yaml:"mirror"`
	OnReadFailure string `yaml:"on_read_failure"` // "continue" or "stop"
}

type DetectorConfig struct {
	FaceCascade       string  `yaml:"face_cascade"`
	SmileCascade      string  `yaml:"smile_cascade"`
	FaceScaleFactor   float64 `yaml:"face_scale_factor"`
	FaceMinNeighbors  int     `yaml:"face_min_neighbors"`
	FaceMinSize       int     `yaml:"face_min_size"`
	SmileScaleFactor  float64 `yaml:"smile_scale_factor"`
	SmileMinNeighbors int     `yaml:"smile_min_neighbors"`
}

type TrackerConfig struct {
	MinTolerance   int     `yaml:"min_tolerance"`
	ToleranceRatio float64 `yaml:"tolerance_ratio"`
	LabelPrefix    string  `yaml:"label_prefix"`
}

type GameConfig struct {
	PointsPerSmile  int           `yaml:"points_per_smile"`
	RewardThreshold int           `yaml:"reward_threshold"`
	SmileDebounce   time.Duration `yaml:"smile_debounce"`
	RewardMessage   string        `yaml:"reward_message"`
}

type StreamConfig struct {
	FrameEmitInterval time.Duration `yaml:"frame_emit_interval"`
	IdleSleep         time.Duration `yaml:"idle_sleep"`
	JPEGQuality       int           `yaml:"jpeg_quality"`
	EventBuffer       int           `yaml:"event_buffer"`      // outbound queue size between pipeline and hub
	SubscriberBuffer  int           `yaml:"subscriber_buffer"` // per observer queue size
	DrawTrails        bool          `yaml:"draw_trails"`
	TrailSize         int           `yaml:"trail_size"`
	DrawScoreboard    bool          `yaml:"draw_scoreboard"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LedgerConfig struct {
	Path string `yaml:"path"` // SQLite file, empty disables the reward ledger
}

// CPUConfig pins the process to CPU cores, either an explicit list or the
// core type of a known platform such as rk3588
type CPUConfig struct {
	Cores    []int  `yaml:"cores"`
	Platform string `yaml:"platform"`
	CoreType string `yaml:"core_type"` // "fast", "slow" or "all"
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	gp := game.DefaultParams()
	tol := tracker.DefaultTolerance()
	face := detect.FaceParams()
	smile := detect.SmileParams()

	return &Config{
		Camera: CameraConfig{
			Device:        "0",
			Width:         640,
			Height:        480,
			Mirror:        true,
			OnReadFailure: "continue",
		},
		Detector: DetectorConfig{
			FaceCascade:       "/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml",
			SmileCascade:      "/usr/share/opencv4/haarcascades/haarcascade_smile.xml",
			FaceScaleFactor:   face.ScaleFactor,
			FaceMinNeighbors:  face.MinNeighbors,
			SmileScaleFactor:  smile.ScaleFactor,
			SmileMinNeighbors: smile.MinNeighbors,
		},
		Tracker: TrackerConfig{
			MinTolerance:   tol.Min,
			ToleranceRatio: tol.Ratio,
			LabelPrefix:    tracker.DefaultLabelPrefix,
		},
		Game: GameConfig{
			PointsPerSmile:  gp.PointsPerSmile,
			RewardThreshold: gp.RewardThreshold,
			SmileDebounce:   gp.SmileDebounce,
			RewardMessage:   gp.RewardMessage,
		},
		Stream: StreamConfig{
			FrameEmitInterval: 30 * time.Millisecond,
			IdleSleep:         10 * time.Millisecond,
			JPEGQuality:       80,
			EventBuffer:       64,
			SubscriberBuffer:  32,
			DrawTrails:        false,
			TrailSize:         30,
			DrawScoreboard:    true,
		},
		Server: ServerConfig{
			Addr: "0.0.0.0:5000",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load returns the default configuration overlaid with the YAML file at
// path, if given, and then with SMILECAM_* environment variables
func Load(path string) (*Config, error) {

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envString overwrites dst with the environment variable if it is set
func envString(key string, dst *string) {
	if s := os.Getenv(key); s != "" {
		*dst = s
	}
}

// envInt overwrites dst with the environment variable if it parses as a
// positive integer
func envInt(key string, dst *int) {
	s := os.Getenv(key)
	if s == "" {
		return
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		*dst = n
	}
}

func (c *Config) applyEnv() {
	envString("SMILECAM_CAMERA", &c.Camera.Device)
	envString("SMILECAM_FACE_CASCADE", &c.Detector.FaceCascade)
	envString("SMILECAM_SMILE_CASCADE", &c.Detector.SmileCascade)
	envString("SMILECAM_ADDR", &c.Server.Addr)
	envString("SMILECAM_LEDGER", &c.Ledger.Path)
	envString("SMILECAM_LOG_LEVEL", &c.Log.Level)
	envString("SMILECAM_PLATFORM", &c.CPU.Platform)
	envInt("SMILECAM_JPEG_QUALITY", &c.Stream.JPEGQuality)
}

// Validate reports every invalid setting
func (c *Config) Validate() error {

	var err error

	if c.Camera.Device == "" {
		err = multierr.Append(err, errors.New("camera.device is required"))
	}

	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		err = multierr.Append(err, errors.Errorf("camera size %dx%d must not be negative",
			c.Camera.Width, c.Camera.Height))
	}

	if _, perr := pipeline.ParsePolicy(c.Camera.OnReadFailure); perr != nil {
		err = multierr.Append(err, perr)
	}

	if c.Detector.FaceScaleFactor <= 1 || c.Detector.SmileScaleFactor <= 1 {
		err = multierr.Append(err, errors.New("detector scale factors must be greater than 1"))
	}

	if c.Tracker.MinTolerance < 0 || c.Tracker.ToleranceRatio < 0 {
		err = multierr.Append(err, errors.New("tracker tolerance must not be negative"))
	}

	if gerr := c.GameParams().Validate(); gerr != nil {
		err = multierr.Append(err, gerr)
	}

	if c.Stream.FrameEmitInterval < 0 || c.Stream.IdleSleep < 0 {
		err = multierr.Append(err, errors.New("stream intervals must not be negative"))
	}

	if c.Stream.JPEGQuality < 1 || c.Stream.JPEGQuality > 100 {
		err = multierr.Append(err, errors.Errorf("stream.jpeg_quality %d must be within 1-100",
			c.Stream.JPEGQuality))
	}

	if c.Stream.EventBuffer < 1 || c.Stream.SubscriberBuffer < 1 {
		err = multierr.Append(err, errors.New("stream buffers must be at least 1"))
	}

	if _, cerr := affinity.Resolve(c.CPU.Cores, c.CPU.Platform, c.CPU.CoreType); cerr != nil {
		err = multierr.Append(err, cerr)
	}

	if c.Server.Addr == "" {
		err = multierr.Append(err, errors.New("server.addr is required"))
	}

	return err
}

// GameParams returns the scoring rules
func (c *Config) GameParams() game.Params {
	return game.Params{
		PointsPerSmile:  c.Game.PointsPerSmile,
		RewardThreshold: c.Game.RewardThreshold,
		SmileDebounce:   c.Game.SmileDebounce,
		RewardMessage:   c.Game.RewardMessage,
	}
}

// Tolerance returns the identity match tolerance
func (c *Config) Tolerance() tracker.Tolerance {
	return tracker.Tolerance{
		Min:   c.Tracker.MinTolerance,
		Ratio: c.Tracker.ToleranceRatio,
	}
}

// FaceParams returns the face cascade search parameters
func (c *Config) FaceParams() detect.CascadeParams {
	p := detect.FaceParams()
	p.ScaleFactor = c.Detector.FaceScaleFactor
	p.MinNeighbors = c.Detector.FaceMinNeighbors
	if c.Detector.FaceMinSize > 0 {
		p.MinSize.X = c.Detector.FaceMinSize
		p.MinSize.Y = c.Detector.FaceMinSize
	}
	return p
}

// SmileParams returns the smile cascade search parameters
func (c *Config) SmileParams() detect.CascadeParams {
	p := detect.SmileParams()
	p.ScaleFactor = c.Detector.SmileScaleFactor
	p.MinNeighbors = c.Detector.SmileMinNeighbors
	return p
}

// DriverConfig returns the frame pipeline settings
func (c *Config) DriverConfig() (pipeline.Config, error) {

	policy, err := pipeline.ParsePolicy(c.Camera.OnReadFailure)
	if err != nil {
		return pipeline.Config{}, err
	}

	return pipeline.Config{
		Width:             c.Camera.Width,
		Height:            c.Camera.Height,
		Mirror:            c.Camera.Mirror,
		Policy:            policy,
		FrameEmitInterval: c.Stream.FrameEmitInterval,
		IdleSleep:         c.Stream.IdleSleep,
		DrawTrails:        c.Stream.DrawTrails,
		TrailSize:         c.Stream.TrailSize,
		DrawScoreboard:    c.Stream.DrawScoreboard,
	}, nil
}
