// Package web serves the tracker's HTTP status API and its websocket
// topics: pose and detection out, camera frames in.
package web

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-padtrack/pkg/hub"
	"github.com/teslashibe/go-padtrack/pkg/ingest"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// Config holds server settings.
type Config struct {
	Port   string `yaml:"port"`
	Prefix string `yaml:"prefix"` // Topic namespace
}

// DefaultConfig returns the default server settings.
func DefaultConfig() Config {
	return Config{
		Port:   "8090",
		Prefix: protocol.DefaultPrefix,
	}
}

// StatusProvider reports the state of the tracking loop.
type StatusProvider interface {
	Status() protocol.StatusData
}

// Server is the tracker's web front end. It implements the pipeline's
// publisher interface by broadcasting on its topic hubs.
type Server struct {
	app    *fiber.App
	config Config
	topics *protocol.Topics
	logger *slog.Logger

	poseHub      *hub.Hub
	detectionHub *hub.Hub
	ingest       *ingest.Server
	status       StatusProvider
}

// NewServer builds the routes. frames may be nil to disable frame
// ingestion; status may be nil until SetStatusProvider is called.
func NewServer(config Config, frames ingest.Sink, status StatusProvider) *Server {
	topics := protocol.NewTopics(config.Prefix)
	s := &Server{
		config:       config,
		topics:       topics,
		logger:       slog.Default().With("component", "web"),
		poseHub:      hub.New(topics.Pose()),
		detectionHub: hub.New(topics.Detection()),
		status:       status,
	}

	app := fiber.New(fiber.Config{
		AppName:               "padtrack",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/trackers", s.handleTrackers)

	ws := app.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/"+topics.Pose(), websocket.New(s.subscriber(s.poseHub)))
	ws.Get("/"+topics.Detection(), websocket.New(s.subscriber(s.detectionHub)))

	if frames != nil {
		s.ingest = ingest.New(frames)
		s.ingest.Register(ws, "/"+topics.Frames())
		api.Get("/bridges", s.handleBridges)
	}

	s.app = app
	return s
}

// SetStatusProvider sets the source for /api/status.
func (s *Server) SetStatusProvider(p StatusProvider) {
	s.status = p
}

// Start starts the topic hubs and blocks serving HTTP.
func (s *Server) Start() error {
	go s.poseHub.Run()
	go s.detectionHub.Run()

	s.logger.Info("web server listening",
		"addr", ":"+s.config.Port,
		"pose", "/ws/"+s.topics.Pose(),
		"detection", "/ws/"+s.topics.Detection(),
		"frames", s.ingest != nil)
	return s.app.Listen(":" + s.config.Port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// Shutdown stops the hubs and the HTTP server.
func (s *Server) Shutdown() error {
	s.poseHub.Stop()
	s.detectionHub.Stop()
	return s.app.Shutdown()
}

// PublishPose broadcasts a pose on the pose topic.
func (s *Server) PublishPose(_ context.Context, p protocol.PoseData) error {
	msg, err := protocol.NewPoseMessage(p)
	if err != nil {
		return fmt.Errorf("web: encode pose: %w", err)
	}
	return s.poseHub.Publish(msg)
}

// PublishDetection broadcasts the detection flag on the detection topic.
func (s *Server) PublishDetection(_ context.Context, d protocol.DetectionData) error {
	msg, err := protocol.NewDetectionMessage(d.Seq, d.Detected)
	if err != nil {
		return fmt.Errorf("web: encode detection: %w", err)
	}
	return s.detectionHub.Publish(msg)
}

func (s *Server) subscriber(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client, err := hub.NewClient(h, c)
		if err != nil {
			c.Close()
			return
		}
		client.Run()
	}
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"subscribers": fiber.Map{
			"pose":      s.poseHub.ClientCount(),
			"detection": s.detectionHub.ClientCount(),
		},
	})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.status == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "tracking loop not running",
		})
	}
	return c.JSON(s.status.Status())
}

// TrackerInfo describes one registered estimator.
type TrackerInfo struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Hits   uint64 `json:"hits"`
	Active bool   `json:"active"`
}

func (s *Server) handleTrackers(c *fiber.Ctx) error {
	if s.status == nil {
		return c.JSON([]TrackerInfo{})
	}
	st := s.status.Status()
	out := make([]TrackerInfo, len(st.Trackers))
	for i, name := range st.Trackers {
		out[i] = TrackerInfo{Index: i, Name: name, Active: i == st.Active}
		if i < len(st.Hits) {
			out[i].Hits = st.Hits[i]
		}
	}
	return c.JSON(out)
}

func (s *Server) handleBridges(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats":   s.ingest.Stats(),
		"bridges": s.ingest.Bridges(),
	})
}
