// Package ingest accepts camera frames pushed over websocket by a camera
// bridge and hands them to the tracking loop.
package ingest

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// Sink receives decoded frames.
type Sink interface {
	Push(f *pose.Frame) error
}

// Bridge is one connected frame publisher.
type Bridge struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
}

// Stats are cumulative ingestion counters.
type Stats struct {
	Bridges  int    `json:"bridges"`
	Messages uint64 `json:"messages"`
	Frames   uint64 `json:"frames"`
	Rejected uint64 `json:"rejected"`
}

// Server reads frames from websocket bridges.
type Server struct {
	sink   Sink
	logger *slog.Logger

	mu      sync.RWMutex
	bridges map[string]*Bridge

	messages atomic.Uint64
	frames   atomic.Uint64
	rejected atomic.Uint64
	nextID   atomic.Uint64
}

// New creates an ingestion server that pushes frames into sink.
func New(sink Sink) *Server {
	return &Server{
		sink:    sink,
		logger:  slog.Default().With("component", "ingest"),
		bridges: make(map[string]*Bridge),
	}
}

// Register mounts the frame endpoint at path, with an optional ":id"
// variant naming the bridge.
func (s *Server) Register(router fiber.Router, path string) {
	upgrade := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
	router.Get(path, upgrade, websocket.New(s.handleBridge))
	router.Get(path+"/:id", upgrade, websocket.New(s.handleBridge))
}

func (s *Server) handleBridge(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = "bridge-" + strconv.FormatUint(s.nextID.Add(1), 10)
	}
	now := time.Now()
	b := &Bridge{ID: id, Connected: now, LastSeen: now}

	s.mu.Lock()
	s.bridges[id] = b
	n := len(s.bridges)
	s.mu.Unlock()
	s.logger.Info("frame bridge connected", "bridge", id, "bridges", n)

	defer func() {
		s.mu.Lock()
		delete(s.bridges, id)
		n := len(s.bridges)
		s.mu.Unlock()
		s.logger.Info("frame bridge disconnected", "bridge", id, "bridges", n)
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			s.logger.Debug("bridge read ended", "bridge", id, "error", err)
			return
		}
		s.messages.Add(1)

		reply, err := s.handleMessage(b, mt, data)
		if err != nil {
			if errors.Is(err, camera.ErrClosed) {
				return
			}
			s.rejected.Add(1)
			s.logger.Debug("rejected message", "bridge", id, "error", err)
			continue
		}
		if reply != nil {
			if raw, err := reply.Bytes(); err == nil {
				c.WriteMessage(websocket.TextMessage, raw)
			}
		}
	}
}

// handleMessage decodes one websocket message. Binary messages are JPEG
// frames; text messages are protocol envelopes.
func (s *Server) handleMessage(b *Bridge, mt int, data []byte) (*protocol.Message, error) {
	var f *pose.Frame
	if mt == websocket.BinaryMessage {
		f = &pose.Frame{Encoding: pose.EncodingJPEG, Data: data}
	} else {
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			return nil, err
		}
		switch msg.Type {
		case protocol.TypePing:
			return protocol.NewMessage(protocol.TypePong, nil)
		case protocol.TypeFrame:
			var fd protocol.FrameData
			if err := msg.ParseData(&fd); err != nil {
				return nil, err
			}
			if f, err = camera.FromFrameData(fd); err != nil {
				return nil, err
			}
		default:
			return nil, errors.New("ingest: unexpected message type " + string(msg.Type))
		}
	}

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.sink.Push(f); err != nil {
		return nil, err
	}

	s.frames.Add(1)
	s.mu.Lock()
	b.LastSeen = f.Timestamp
	b.Frames++
	s.mu.Unlock()
	return nil, nil
}

// Bridges returns the connected bridges.
func (s *Server) Bridges() []Bridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Bridge, 0, len(s.bridges))
	for _, b := range s.bridges {
		out = append(out, *b)
	}
	return out
}

// Stats returns ingestion counters.
func (s *Server) Stats() Stats {
	s.mu.RLock()
	n := len(s.bridges)
	s.mu.RUnlock()
	return Stats{
		Bridges:  n,
		Messages: s.messages.Load(),
		Frames:   s.frames.Load(),
		Rejected: s.rejected.Load(),
	}
}
