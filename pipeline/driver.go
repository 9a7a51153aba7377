package pipeline

import (
	"context"
	"encoding/base64"
	"image"
	"io"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/swdee/go-smilecam"
	"github.com/swdee/go-smilecam/detect"
	"github.com/swdee/go-smilecam/game"
	"github.com/swdee/go-smilecam/preprocess"
	"github.com/swdee/go-smilecam/render"
	"github.com/swdee/go-smilecam/tracker"
)

// Config holds the static settings of the frame pipeline
type Config struct {
	// Width and Height are the canonical frame size, zero keeps the source
	// size
	Width  int
	Height int
	// Mirror flips frames horizontally
	Mirror bool
	// Policy applied when frame acquisition fails
	Policy Policy
	// FrameEmitInterval is the minimum time between two frame events
	FrameEmitInterval time.Duration
	// IdleSleep is how long the worker yields between cycles
	IdleSleep time.Duration
	// Game scoring rules
	Game game.Params
	// Tolerance used to match face boxes to identities
	Tolerance tracker.Tolerance
	// LabelPrefix of new identity labels
	LabelPrefix string
	// DrawTrails renders the movement history of each identity
	DrawTrails bool
	// TrailSize is the number of positions kept per identity trail
	TrailSize int
	// DrawScoreboard renders the points of every identity on the frame
	DrawScoreboard bool
}

// DefaultConfig returns the pipeline defaults, a 640x480 mirrored frame
// emitted at most every 30ms
func DefaultConfig() Config {
	return Config{
		Width:             640,
		Height:            480,
		Mirror:            true,
		Policy:            Continue,
		FrameEmitInterval: 30 * time.Millisecond,
		IdleSleep:         10 * time.Millisecond,
		Game:              game.DefaultParams(),
		Tolerance:         tracker.DefaultTolerance(),
		LabelPrefix:       tracker.DefaultLabelPrefix,
		TrailSize:         30,
		DrawScoreboard:    true,
	}
}

// Snapshot is a read only copy of the game state published by the pipeline
// worker after every cycle
type Snapshot struct {
	// Points balance of every known identity
	Points map[string]int `json:"points"`
	// Identities is the number of identities seen since the last reset
	Identities int `json:"identities"`
	// Faces found in the last processed frame, in detector order
	Faces []FaceState `json:"faces"`
	// Updated is when the snapshot was taken
	Updated time.Time `json:"updated"`
}

// FaceState is a face found in a frame and the identity it was assigned
type FaceState struct {
	ID      string          `json:"id"`
	Box     image.Rectangle `json:"box"`
	Smiling bool            `json:"smiling"`
}

// Option configures optional Driver collaborators
type Option func(*Driver)

// WithClock sets the clock used for smile timestamps and frame throttling
func WithClock(c clock.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// WithEncoder sets the frame encoder, the default is JPEG at quality 80
func WithEncoder(e Encoder) Option {
	return func(d *Driver) {
		d.encoder = e
	}
}

// WithIDGenerator sets the identity label generator
func WithIDGenerator(g *tracker.IDGenerator) Option {
	return func(d *Driver) {
		d.idGen = g
	}
}

// Driver is the frame pipeline worker.  All game state is owned by the
// goroutine calling Run, other goroutines read it through Snapshot and
// Stats and request a reset with Reset.
type Driver struct {
	cfg    Config
	source Source
	faces  detect.Detector
	smiles detect.Detector
	out    chan<- smilecam.Event

	clock   clock.Clock
	log     *zap.Logger
	encoder Encoder
	idGen   *tracker.IDGenerator

	identities *tracker.Identities
	scorer     *game.Scorer
	trail      *tracker.Trail
	canonical  *preprocess.Canonical
	throttle   *Throttle

	font       render.Font
	boardFont  render.Font
	trailStyle render.TrailStyle

	// failLog limits how often repeated acquisition failures are logged
	failLog *rate.Limiter
	// resetCh queues operator resets for the worker
	resetCh  chan struct{}
	snapshot atomic.Pointer[Snapshot]
	stats    *recorder

	frame gocv.Mat
	canon gocv.Mat
	gray  gocv.Mat
}

// NewDriver returns a pipeline reading frames from source, detecting faces
// and smiles with the given detectors and pushing events onto out
func NewDriver(cfg Config, source Source, faces, smiles detect.Detector,
	out chan<- smilecam.Event, opts ...Option) (*Driver, error) {

	if source == nil {
		return nil, errors.New("frame source is required")
	}

	if faces == nil || smiles == nil {
		return nil, errors.New("face and smile detectors are required")
	}

	if out == nil {
		return nil, errors.New("outbound event channel is required")
	}

	scorer, err := game.NewScorer(cfg.Game)

	if err != nil {
		return nil, errors.Wrap(err, "invalid game parameters")
	}

	if cfg.TrailSize <= 0 {
		cfg.TrailSize = 30
	}

	d := &Driver{
		cfg:        cfg,
		source:     source,
		faces:      detect.Safe(faces),
		smiles:     detect.Safe(smiles),
		out:        out,
		clock:      clock.New(),
		log:        zap.NewNop(),
		encoder:    NewJPEGEncoder(80),
		scorer:     scorer,
		trail:      tracker.NewTrail(cfg.TrailSize),
		canonical:  preprocess.NewCanonical(cfg.Width, cfg.Height, cfg.Mirror),
		throttle:   NewThrottle(cfg.FrameEmitInterval),
		font:       render.DefaultFont(),
		boardFont:  render.SmallFont(),
		trailStyle: render.DefaultTrailStyle(),
		failLog:    rate.NewLimiter(rate.Every(5*time.Second), 1),
		resetCh:    make(chan struct{}, 1),
		stats:      newRecorder(),
		frame:      gocv.NewMat(),
		canon:      gocv.NewMat(),
		gray:       gocv.NewMat(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.idGen == nil {
		prefix := cfg.LabelPrefix
		if prefix == "" {
			prefix = tracker.DefaultLabelPrefix
		}
		d.idGen = tracker.NewIDGeneratorWithPrefix(prefix)
	}

	d.identities = tracker.NewIdentities(cfg.Tolerance, d.idGen)
	d.publish(nil)

	return d, nil
}

// Run drives the pipeline until ctx is cancelled, the source is exhausted,
// or acquisition fails under the Stop policy.  The source is closed before
// Run returns.
func (d *Driver) Run(ctx context.Context) (err error) {

	defer func() {
		err = multierr.Append(err, errors.Wrap(d.source.Close(), "error closing frame source"))
	}()

	d.log.Info("frame pipeline started",
		zap.Stringer("policy", d.cfg.Policy),
		zap.Duration("frame_emit_interval", d.cfg.FrameEmitInterval),
	)

	defer d.log.Info("frame pipeline stopped")

	for {
		// cooperative stop is only checked between cycles
		if ctx.Err() != nil {
			return nil
		}

		if err := d.applyReset(ctx); err != nil {
			return ignoreCancel(err)
		}

		if err := d.source.Read(&d.frame); err != nil {

			if errors.Is(err, io.EOF) {
				d.log.Info("frame source exhausted")
				return nil
			}

			d.stats.acquireFailure()

			if d.cfg.Policy == Stop {
				return errors.Wrap(err, "frame acquisition failed")
			}

			if d.failLog.AllowN(d.clock.Now(), 1) {
				d.log.Warn("frame acquisition failed, skipping cycle", zap.Error(err))
			}

			d.idle(ctx)
			continue
		}

		if err := d.ProcessFrame(ctx, d.frame); err != nil {
			return ignoreCancel(err)
		}

		d.idle(ctx)
	}
}

// ignoreCancel treats a cancelled context as a clean shutdown
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// idle yields to other goroutines between cycles
func (d *Driver) idle(ctx context.Context) {

	if d.cfg.IdleSleep <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-d.clock.After(d.cfg.IdleSleep):
	}
}

// ProcessFrame runs one cycle of detection, tracking, scoring and
// annotation on frame and emits the annotated frame if the throttle allows.
// Only an error sending a game event is returned, which happens when ctx is
// done.
func (d *Driver) ProcessFrame(ctx context.Context, frame gocv.Mat) error {

	start := d.clock.Now()
	now := start

	d.canonical.Apply(frame, &d.canon)

	if d.canon.Channels() == 3 {
		gocv.CvtColor(d.canon, &d.gray, gocv.ColorBGRToGray)
	} else {
		d.canon.CopyTo(&d.gray)
	}

	boxes, err := d.faces.Detect(d.gray)

	if err != nil {
		// a failed detection counts as no faces this cycle
		d.stats.detectFailure()
		d.log.Debug("face detection failed", zap.Error(err))
		boxes = nil
	}

	bounds := image.Rect(0, 0, d.gray.Cols(), d.gray.Rows())
	faces := make([]render.Face, 0, len(boxes))

	// boxes are handled in the order the detector returned them
	for _, b := range boxes {

		box := tracker.RectFromImage(b).Clamp(bounds)

		if box.Empty() {
			continue
		}

		id, created := d.identities.MatchOrCreate(box)

		if created {
			d.log.Info("new identity", zap.String("face_id", id),
				zap.Int("x", box.X), zap.Int("y", box.Y))
		}

		smiling := d.smiling(box)

		for _, ev := range d.scorer.OnDetection(id, smiling, now) {
			if err := d.send(ctx, ev); err != nil {
				return err
			}
		}

		d.trail.Add(id, box)

		faces = append(faces, render.Face{
			ID:      id,
			Box:     box,
			Smiling: smiling,
		})
	}

	snap := d.publish(faces)

	d.annotate(faces, snap)
	d.emitFrame()

	d.stats.cycle(d.clock.Since(start), snap.Identities)

	return nil
}

// smiling runs the smile detector on the face region of the gray frame
func (d *Driver) smiling(box tracker.Rect) bool {

	roi := d.gray.Region(box.Rectangle())
	defer roi.Close()

	smiles, err := d.smiles.Detect(roi)

	if err != nil {
		d.stats.detectFailure()
		d.log.Debug("smile detection failed", zap.Error(err))
		return false
	}

	return len(smiles) > 0
}

// send pushes a game event, waiting for space on the outbound queue
func (d *Driver) send(ctx context.Context, ev smilecam.Event) error {

	select {
	case d.out <- ev:
	case <-ctx.Done():
		return ctx.Err()
	}

	switch ev.Type {
	case smilecam.EventReward:
		d.stats.reward()
		d.log.Info("reward", zap.String("face_id", ev.FaceID),
			zap.Int("points", ev.Points))

	case smilecam.EventPointsUpdate:
		d.log.Debug("points update", zap.String("face_id", ev.FaceID),
			zap.Int("points", ev.Points))
	}

	return nil
}

// annotate draws the overlay onto the canonical frame
func (d *Driver) annotate(faces []render.Face, snap *Snapshot) {

	if d.cfg.DrawTrails {
		render.Trail(&d.canon, faces, d.trail, d.trailStyle)
	}

	render.IdentityBoxes(&d.canon, faces, d.font, 2)

	if d.cfg.DrawScoreboard {
		render.Scoreboard(&d.canon, snap.Points, d.boardFont)
	}
}

// emitFrame encodes and pushes the annotated frame if the emit interval has
// passed since the last push.  Frames are dropped rather than waited on when
// the outbound queue is full.
func (d *Driver) emitFrame() {

	// timed at the push, not the start of the cycle
	if !d.throttle.Ready(d.clock.Now()) {
		return
	}

	jpg, err := d.encoder.Encode(d.canon)

	if err != nil {
		d.stats.encodeFailure()
		d.log.Warn("frame encoding failed, skipping push", zap.Error(err))
		return
	}

	now := d.clock.Now()
	ev := smilecam.NewFrameEvent(jpg, base64.StdEncoding.EncodeToString(jpg), now)

	select {
	case d.out <- ev:
		d.throttle.Mark(now)
		d.stats.frameEmitted()
	default:
		d.stats.frameDropped()
	}
}

// Reset requests that all identities, balances and smile times are cleared.
// The reset is applied by the worker at the start of its next cycle.
// Identity labels are never reused after a reset.
func (d *Driver) Reset() {
	select {
	case d.resetCh <- struct{}{}:
	default:
		// a reset is already pending
	}
}

// applyReset clears the game state if a reset is pending
func (d *Driver) applyReset(ctx context.Context) error {

	select {
	case <-d.resetCh:
	default:
		return nil
	}

	d.identities.Reset()
	d.scorer.Reset()
	d.trail.Reset()
	d.throttle.Reset()
	d.publish(nil)

	d.log.Info("game state reset", zap.Int64("labels_issued", d.idGen.Issued()))

	return d.send(ctx, smilecam.NewResetEvent(d.clock.Now()))
}

// publish stores a new snapshot of the game state for lock free readers
func (d *Driver) publish(faces []render.Face) *Snapshot {

	labels := d.identities.Labels()
	points := make(map[string]int, len(labels))

	for _, id := range labels {
		points[id] = d.scorer.Balance(id)
	}

	states := make([]FaceState, 0, len(faces))

	for _, f := range faces {
		states = append(states, FaceState{
			ID:      f.ID,
			Box:     f.Box.Rectangle(),
			Smiling: f.Smiling,
		})
	}

	snap := &Snapshot{
		Points:     points,
		Identities: len(labels),
		Faces:      states,
		Updated:    d.clock.Now(),
	}

	d.snapshot.Store(snap)

	return snap
}

// Snapshot returns the game state as of the end of the last cycle.  The
// returned value must not be modified.
func (d *Driver) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// Stats returns the pipeline counters and cycle timing
func (d *Driver) Stats() Stats {
	return d.stats.snapshot()
}

// Close frees the Mats held by the driver, it must not be called while Run
// is active
func (d *Driver) Close() error {
	return multierr.Combine(
		d.canonical.Close(),
		d.frame.Close(),
		d.canon.Close(),
		d.gray.Close(),
	)
}
