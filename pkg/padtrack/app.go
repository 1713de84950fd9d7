// Package padtrack assembles the landing-pad tracker: frame source,
// estimators, selection agent, tracking loop and web front end.
package padtrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-padtrack/internal/config"
	"github.com/teslashibe/go-padtrack/pkg/agent"
	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/detection"
	"github.com/teslashibe/go-padtrack/pkg/ingest"
	"github.com/teslashibe/go-padtrack/pkg/pipeline"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/web"
)

// EstimatorFactory builds the estimator described by one tracker entry.
type EstimatorFactory func(t config.TrackerConfig, calib pose.Calibration) (pose.Estimator, error)

// NewEstimator builds ArUco board and colour estimators.
func NewEstimator(t config.TrackerConfig, calib pose.Calibration) (pose.Estimator, error) {
	switch t.Kind {
	case config.KindBoard:
		if t.Board == nil {
			return nil, fmt.Errorf("tracker %q: missing board parameters", t.Name)
		}
		return detection.NewBoard(t.Name, *t.Board, calib)
	case config.KindColor:
		if t.Color == nil {
			return nil, fmt.Errorf("tracker %q: missing colour parameters", t.Name)
		}
		return detection.NewColor(t.Name, *t.Color, calib)
	default:
		return nil, fmt.Errorf("tracker %q: unknown kind %q", t.Name, t.Kind)
	}
}

// App is the tracker process.
type App struct {
	config config.Config
	logger *slog.Logger

	newEstimator EstimatorFactory
	openSource   func(ctx context.Context, cfg camera.Config) (camera.Source, *camera.Queue, error)

	agent    *agent.Agent
	source   camera.Source
	web      *web.Server
	pipeline *pipeline.Pipeline
}

// New validates cfg and creates an app. Call Init before Run.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &App{
		config:       cfg,
		logger:       slog.Default().With("component", "padtrack"),
		newEstimator: NewEstimator,
		openSource:   OpenSource,
	}, nil
}

// OpenSource picks the frame source: a frame bridge stream when a URL is
// set, else a local capture device, else a queue fed by websocket
// ingestion. The queue is returned only in the last case.
func OpenSource(ctx context.Context, cfg camera.Config) (camera.Source, *camera.Queue, error) {
	switch {
	case cfg.StreamURL != "":
		s, err := camera.DialStream(ctx, cfg.StreamURL)
		return s, nil, err
	case cfg.Device != "":
		c, err := camera.OpenCapture(cfg)
		return c, nil, err
	default:
		q := camera.NewQueue()
		return q, q, nil
	}
}

// Init builds every component.
func (a *App) Init(ctx context.Context) error {
	ac, err := a.config.Agent.Agent()
	if err != nil {
		return err
	}
	if a.agent, err = agent.New(ac); err != nil {
		return err
	}

	for _, t := range a.config.Trackers {
		e, err := a.newEstimator(t, a.config.Calibration)
		if err != nil {
			return fmt.Errorf("build tracker: %w", err)
		}
		if err := a.agent.AddTracker(e); err != nil {
			return err
		}
		a.logger.Info("tracker registered", "priority", a.agent.Len()-1, "name", t.Name, "kind", t.Kind)
	}

	src, queue, err := a.openSource(ctx, a.config.Camera)
	if err != nil {
		return fmt.Errorf("open frame source: %w", err)
	}
	a.source = src

	// A nil sink disables frame ingestion
	var sink ingest.Sink
	if queue != nil {
		sink = queue
		a.logger.Info("waiting for frames on websocket ingestion")
	}
	a.web = web.NewServer(a.config.Web, sink, nil)

	pub := pipeline.MultiPublisher{a.web, pipeline.NewLogPublisher(a.logger)}
	if a.pipeline, err = pipeline.New(a.agent, pub, a.config.Pipeline); err != nil {
		return err
	}
	a.web.SetStatusProvider(a.pipeline)
	return nil
}

// Run serves the web front end and runs the tracking loop until ctx is
// cancelled or the frame source ends.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return errors.New("padtrack: Run called before Init")
	}
	a.web.StartAsync()
	return a.pipeline.Run(ctx, a.source)
}

// Pipeline returns the tracking loop, or nil before Init.
func (a *App) Pipeline() *pipeline.Pipeline {
	return a.pipeline
}

// Shutdown releases the source, the estimators and the web server.
func (a *App) Shutdown() error {
	var errs []error
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
	}
	if a.agent != nil {
		if err := a.agent.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.web != nil {
		if err := a.web.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("web shutdown: %w", err))
		}
	}
	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}
