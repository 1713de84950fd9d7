// Package pipeline drives the per-frame tracking loop: pull a frame, ask
// the agent for a pose, smooth it and publish the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-padtrack/pkg/agent"
	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// Config holds pipeline tunables.
type Config struct {
	// LinearScale converts estimator units to published units.
	// Estimators report centimetres and the controller expects metres.
	LinearScale float64 `yaml:"linear_scale"`

	// LogEvery emits a summary log line every N frames (0 disables).
	LogEvery uint64 `yaml:"log_every"`
}

// DefaultConfig returns the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		LinearScale: 0.01,
		LogEvery:    300,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.LinearScale <= 0 {
		return fmt.Errorf("pipeline: linear scale must be positive, got %v", c.LinearScale)
	}
	return nil
}

// Pipeline feeds frames through an agent. HandleFrame and Run must be
// called from one goroutine; Status is safe from any goroutine.
type Pipeline struct {
	agent  *agent.Agent
	pub    Publisher
	config Config
	logger *slog.Logger

	// Snapshot of agent state, written by HandleFrame
	mu         sync.RWMutex
	lastPose   *protocol.PoseData
	lastFrame  time.Time
	stats      agent.Stats
	active     int
	activeName string
	trackers   []string
}

// New creates a pipeline. A nil publisher discards results.
func New(a *agent.Agent, pub Publisher, config Config) (*Pipeline, error) {
	if a == nil {
		return nil, errors.New("pipeline: agent is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if pub == nil {
		pub = Discard
	}
	return &Pipeline{
		agent:    a,
		pub:      pub,
		config:   config,
		logger:   slog.Default().With("component", "pipeline"),
		stats:    a.Stats(),
		active:   a.ActiveIndex(),
		trackers: a.Trackers(),
	}, nil
}

// HandleFrame runs one frame through the agent and publishes the pose
// (when found) followed by the detection flag.
func (p *Pipeline) HandleFrame(ctx context.Context, f *pose.Frame) error {
	raw, found := p.agent.GetPose(f)

	var out *protocol.PoseData
	if found {
		smoothed := p.agent.SmoothPose(raw)
		out = &protocol.PoseData{
			Seq:         f.Seq,
			Linear:      protocol.VectorFrom(smoothed.Translation.Mul(p.config.LinearScale)),
			Angular:     protocol.VectorFrom(smoothed.Rotation),
			Tracker:     p.agent.ActiveIndex(),
			TrackerName: p.agent.ActiveName(),
		}
	}

	stats := p.agent.Stats()
	p.mu.Lock()
	if out != nil {
		p.lastPose = out
	}
	p.lastFrame = time.Now()
	p.stats = stats
	p.active = p.agent.ActiveIndex()
	p.activeName = p.agent.ActiveName()
	if len(p.trackers) != p.agent.Len() {
		p.trackers = p.agent.Trackers()
	}
	p.mu.Unlock()

	var errs []error
	if out != nil {
		if err := p.pub.PublishPose(ctx, *out); err != nil {
			errs = append(errs, fmt.Errorf("publish pose: %w", err))
		}
	}
	if err := p.pub.PublishDetection(ctx, protocol.DetectionData{Seq: f.Seq, Detected: found}); err != nil {
		errs = append(errs, fmt.Errorf("publish detection: %w", err))
	}

	if p.config.LogEvery > 0 && stats.Frames%p.config.LogEvery == 0 {
		p.logger.Info("tracking summary",
			"frames", stats.Frames,
			"detections", stats.Detections,
			"switches", stats.Switches,
			"active", p.agent.ActiveName())
	}
	return errors.Join(errs...)
}

// Run pulls frames from src until ctx is cancelled or the source closes.
// Publish failures are logged and do not stop the loop.
func (p *Pipeline) Run(ctx context.Context, src camera.Source) error {
	p.logger.Info("pipeline started",
		"mode", p.agent.Mode().String(),
		"trackers", p.agent.Trackers())
	defer p.logger.Info("pipeline stopped")

	for {
		f, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, camera.ErrClosed):
				p.logger.Info("frame source closed", "error", err)
				return nil
			case ctx.Err() != nil:
				return nil
			default:
				return fmt.Errorf("pipeline: next frame: %w", err)
			}
		}
		if err := f.Validate(); err != nil {
			p.logger.Warn("skipping invalid frame", "seq", f.Seq, "error", err)
			continue
		}
		if err := p.HandleFrame(ctx, f); err != nil {
			p.logger.Warn("publish failed", "seq", f.Seq, "error", err)
		}
	}
}

// Status returns a snapshot of the loop for the status endpoint.
func (p *Pipeline) Status() protocol.StatusData {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := protocol.StatusData{
		Frames:     p.stats.Frames,
		Detections: p.stats.Detections,
		Switches:   p.stats.Switches,
		Mode:       p.agent.Mode().String(),
		Active:     p.active,
		ActiveName: p.activeName,
		Trackers:   append([]string(nil), p.trackers...),
		Hits:       append([]uint64(nil), p.stats.Hits...),
	}
	if p.lastPose != nil {
		lp := *p.lastPose
		s.LastPose = &lp
	}
	if !p.lastFrame.IsZero() {
		s.LastFrameAt = p.lastFrame.UnixMilli()
	}
	return s
}
