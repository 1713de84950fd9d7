package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// Publisher receives tracking results. The pose topic only sees frames
// where the pad was found; the detection topic sees every frame.
type Publisher interface {
	PublishPose(ctx context.Context, p protocol.PoseData) error
	PublishDetection(ctx context.Context, d protocol.DetectionData) error
}

// Discard drops every result.
var Discard Publisher = discard{}

type discard struct{}

func (discard) PublishPose(context.Context, protocol.PoseData) error           { return nil }
func (discard) PublishDetection(context.Context, protocol.DetectionData) error { return nil }

// MultiPublisher fans results out to several publishers. Every publisher
// is called even if an earlier one fails.
type MultiPublisher []Publisher

// PublishPose implements Publisher.
func (m MultiPublisher) PublishPose(ctx context.Context, p protocol.PoseData) error {
	var errs []error
	for _, pub := range m {
		if err := pub.PublishPose(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishDetection implements Publisher.
func (m MultiPublisher) PublishDetection(ctx context.Context, d protocol.DetectionData) error {
	var errs []error
	for _, pub := range m {
		if err := pub.PublishDetection(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes results to a structured logger at debug level.
type LogPublisher struct {
	Logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs through logger, or the
// default logger when nil.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{Logger: logger.With("component", "publisher.log")}
}

// PublishPose implements Publisher.
func (l *LogPublisher) PublishPose(ctx context.Context, p protocol.PoseData) error {
	l.Logger.DebugContext(ctx, "pose",
		"seq", p.Seq,
		"tracker", p.TrackerName,
		"x", p.Linear.X, "y", p.Linear.Y, "z", p.Linear.Z,
		"rz", p.Angular.Z)
	return nil
}

// PublishDetection implements Publisher.
func (l *LogPublisher) PublishDetection(ctx context.Context, d protocol.DetectionData) error {
	l.Logger.DebugContext(ctx, "detection", "seq", d.Seq, "detected", d.Detected)
	return nil
}
