// Package agent fuses several landing-pad pose estimators into one
// smoothed pose stream.
//
// The Agent owns an ordered set of estimators (registration order is
// priority order), chooses which one to trust on every frame and runs the
// chosen translation through a per-axis moving average. It is driven by a
// single goroutine: GetPose, then SmaPose on success, once per frame.
package agent

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/golang/geo/r3"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/sma"
)

// NoTracker is the active index when no estimator currently sees the pad.
const NoTracker = -1

// Stats are cumulative selection counters.
type Stats struct {
	Frames     uint64   `json:"frames"`
	Detections uint64   `json:"detections"`
	Switches   uint64   `json:"switches"`
	Losses     uint64   `json:"losses"`
	Hits       []uint64 `json:"hits"` // Successful frames per estimator
}

// Agent selects between pose estimators and smooths the result.
type Agent struct {
	config   Config
	trackers []pose.Estimator
	active   int
	sealed   bool

	// x, y, z translation windows and the estimator that last fed them
	windows [3]*sma.Average
	fed     int

	stats  Stats
	logger *slog.Logger
}

// New creates an agent with no estimators.
func New(config Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &Agent{
		config: config,
		active: NoTracker,
		fed:    NoTracker,
		logger: slog.Default().With("component", "agent"),
	}
	if err := a.resetWindows(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithLogger creates an agent with a custom logger.
func NewWithLogger(logger *slog.Logger, config Config) (*Agent, error) {
	a, err := New(config)
	if err != nil {
		return nil, err
	}
	a.logger = logger.With("component", "agent")
	return a, nil
}

// AddTracker appends an estimator at the lowest priority. The agent takes
// ownership and closes it in Close. Registration is only allowed before
// the first GetPose.
func (a *Agent) AddTracker(e pose.Estimator) error {
	if isNil(e) {
		return ErrNilEstimator
	}
	if a.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, e.Name())
	}
	a.trackers = append(a.trackers, e)
	a.stats.Hits = append(a.stats.Hits, 0)
	a.logger.Debug("tracker added", "index", len(a.trackers)-1, "name", e.Name())
	return nil
}

// isNil also catches a typed nil pointer wrapped in the interface.
func isNil(e pose.Estimator) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// GetPose returns the raw pose of the pad in frame and whether any
// estimator found it. A false result is an ordinary outcome, not a fault.
func (a *Agent) GetPose(frame *pose.Frame) (pose.Pose, bool) {
	a.sealed = true
	a.stats.Frames++

	tried := NoTracker
	if a.config.Mode == ModeGreedy && a.active != NoTracker {
		if p, ok := a.query(a.active, frame); ok {
			a.hit(a.active)
			return p, true
		}
		tried = a.active
	}

	for i := range a.trackers {
		if i == tried {
			continue
		}
		if p, ok := a.query(i, frame); ok {
			a.setActive(i)
			a.hit(i)
			return p, true
		}
	}

	a.setActive(NoTracker)
	return pose.Pose{}, false
}

// SmaPose adds one raw translation sample to the per-axis windows and
// returns the smoothed translation. Call it exactly once per frame that
// produced a pose.
func (a *Agent) SmaPose(raw r3.Vector) r3.Vector {
	if a.config.ResetOnSwitch && a.fed != NoTracker && a.fed != a.active {
		// resetWindows cannot fail: the period was validated in New
		_ = a.resetWindows()
		a.logger.Debug("smoothing reset", "from", a.nameOf(a.fed), "to", a.nameOf(a.active))
	}
	a.fed = a.active

	a.windows[0].Add(raw.X)
	a.windows[1].Add(raw.Y)
	a.windows[2].Add(raw.Z)
	return r3.Vector{
		X: a.windows[0].Avg(),
		Y: a.windows[1].Avg(),
		Z: a.windows[2].Avg(),
	}
}

// SmoothPose smooths the translation of p and passes its rotation through.
func (a *Agent) SmoothPose(p pose.Pose) pose.Pose {
	return pose.Pose{
		Translation: a.SmaPose(p.Translation),
		Rotation:    p.Rotation,
	}
}

// ActiveIndex returns the index of the estimator that produced the last
// successful pose, or NoTracker.
func (a *Agent) ActiveIndex() int {
	return a.active
}

// ActiveName returns the name of the active estimator, or "" when idle.
func (a *Agent) ActiveName() string {
	return a.nameOf(a.active)
}

// Mode returns the selection mode.
func (a *Agent) Mode() Mode {
	return a.config.Mode
}

// Len returns the number of registered estimators.
func (a *Agent) Len() int {
	return len(a.trackers)
}

// Trackers returns estimator names in priority order.
func (a *Agent) Trackers() []string {
	names := make([]string, len(a.trackers))
	for i, t := range a.trackers {
		names[i] = t.Name()
	}
	return names
}

// Stats returns a copy of the selection counters.
func (a *Agent) Stats() Stats {
	s := a.stats
	s.Hits = append([]uint64(nil), a.stats.Hits...)
	return s
}

// Close releases every estimator that holds resources.
func (a *Agent) Close() error {
	var errs []error
	for _, t := range a.trackers {
		if c, ok := t.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", t.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// query asks estimator i for a pose. Errors, non-finite poses and panics
// inside the estimator all count as "not detected".
func (a *Agent) query(i int, frame *pose.Frame) (p pose.Pose, ok bool) {
	t := a.trackers[i]
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("tracker panicked, skipping for this frame",
				"index", i,
				"name", t.Name(),
				"panic", r,
			)
			p, ok = pose.Pose{}, false
		}
	}()

	if !t.Detect(frame) {
		return pose.Pose{}, false
	}
	p, err := t.EstimatePose(frame)
	if err != nil {
		a.logger.Debug("pose estimate failed", "index", i, "name", t.Name(), "error", err)
		return pose.Pose{}, false
	}
	if !p.IsFinite() {
		a.logger.Debug("discarding non-finite pose", "index", i, "name", t.Name())
		return pose.Pose{}, false
	}
	return p, true
}

func (a *Agent) setActive(i int) {
	if i == a.active {
		return
	}
	prev := a.active
	a.active = i

	switch {
	case i == NoTracker:
		a.stats.Losses++
		a.logger.Info("pad lost by all trackers", "last", a.nameOf(prev))
	case prev == NoTracker:
		a.logger.Info("pad acquired", "index", i, "name", a.nameOf(i))
	default:
		a.stats.Switches++
		a.logger.Info("tracker switched",
			"from", a.nameOf(prev),
			"to", a.nameOf(i),
		)
	}
}

func (a *Agent) hit(i int) {
	a.stats.Detections++
	a.stats.Hits[i]++
}

func (a *Agent) nameOf(i int) string {
	if i < 0 || i >= len(a.trackers) {
		return ""
	}
	return a.trackers[i].Name()
}

func (a *Agent) resetWindows() error {
	for i := range a.windows {
		w, err := sma.New(a.config.SmoothingPeriod)
		if err != nil {
			return err
		}
		a.windows[i] = w
	}
	return nil
}
