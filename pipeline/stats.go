package pipeline

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// timingWindow is the number of most recent cycle durations kept for the
// timing statistics
const timingWindow = 256

// Stats is a point in time copy of the pipeline counters
type Stats struct {
	Cycles          uint64        `json:"cycles"`
	AcquireFailures uint64        `json:"acquire_failures"`
	DetectFailures  uint64        `json:"detect_failures"`
	EncodeFailures  uint64        `json:"encode_failures"`
	FramesEmitted   uint64        `json:"frames_emitted"`
	FramesDropped   uint64        `json:"frames_dropped"`
	Rewards         uint64        `json:"rewards"`
	Identities      int           `json:"identities"`
	CycleMean       time.Duration `json:"cycle_mean_ns"`
	CycleStdDev     time.Duration `json:"cycle_stddev_ns"`
}

// recorder collects Stats from the pipeline worker for reading by other
// goroutines
type recorder struct {
	stats Stats
	// durations is a ring of recent cycle times in milliseconds
	durations []float64
	pos       int
	sync.Mutex
}

func newRecorder() *recorder {
	return &recorder{
		durations: make([]float64, 0, timingWindow),
	}
}

func (r *recorder) inc(field *uint64) {
	r.Lock()
	*field++
	r.Unlock()
}

func (r *recorder) acquireFailure() { r.inc(&r.stats.AcquireFailures) }
func (r *recorder) detectFailure()  { r.inc(&r.stats.DetectFailures) }
func (r *recorder) encodeFailure()  { r.inc(&r.stats.EncodeFailures) }
func (r *recorder) frameEmitted()   { r.inc(&r.stats.FramesEmitted) }
func (r *recorder) frameDropped()   { r.inc(&r.stats.FramesDropped) }
func (r *recorder) reward()         { r.inc(&r.stats.Rewards) }

// cycle records a completed processing cycle
func (r *recorder) cycle(d time.Duration, identities int) {
	r.Lock()
	defer r.Unlock()

	r.stats.Cycles++
	r.stats.Identities = identities

	ms := float64(d) / float64(time.Millisecond)

	if len(r.durations) < timingWindow {
		r.durations = append(r.durations, ms)
		return
	}

	r.durations[r.pos] = ms
	r.pos = (r.pos + 1) % timingWindow
}

// snapshot returns a copy of the counters with the timing statistics
// calculated over the recent window
func (r *recorder) snapshot() Stats {
	r.Lock()
	defer r.Unlock()

	out := r.stats

	switch len(r.durations) {
	case 0:
	case 1:
		out.CycleMean = msToDuration(r.durations[0])
	default:
		mean, std := stat.MeanStdDev(r.durations, nil)
		out.CycleMean = msToDuration(mean)
		out.CycleStdDev = msToDuration(std)
	}

	return out
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
