package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-padtrack/internal/httpc"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// Stream receives frames from a WebSocket frame bridge. Binary messages are
// JPEG images; text messages are protocol frame messages.
type Stream struct {
	url    string
	ws     *websocket.Conn
	queue  *Queue
	logger *slog.Logger

	mu  sync.Mutex
	err error
}

// DialStream connects to a frame bridge and starts receiving.
func DialStream(ctx context.Context, url string) (*Stream, error) {
	ws, _, err := httpc.Dialer().DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("frame bridge connect failed: %w", err)
	}

	s := &Stream{
		url:    url,
		ws:     ws,
		queue:  NewQueue(),
		logger: slog.Default().With("component", "camera.stream", "url", url),
	}
	go s.readLoop()
	s.logger.Info("frame bridge connected")
	return s, nil
}

// Next implements Source.
func (s *Stream) Next(ctx context.Context) (*pose.Frame, error) {
	f, err := s.queue.Next(ctx)
	if err == ErrClosed {
		if rerr := s.readErr(); rerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrClosed, rerr)
		}
	}
	return f, err
}

// Dropped returns how many frames arrived faster than they were consumed.
func (s *Stream) Dropped() uint64 {
	return s.queue.Dropped()
}

// Close implements Source.
func (s *Stream) Close() error {
	s.queue.Close()
	return s.ws.Close()
}

func (s *Stream) readLoop() {
	defer s.queue.Close()

	for {
		msgType, data, err := s.ws.ReadMessage()
		if err != nil {
			s.setErr(err)
			return
		}

		var f *pose.Frame
		switch msgType {
		case websocket.BinaryMessage:
			f = &pose.Frame{Encoding: pose.EncodingJPEG, Data: data, Timestamp: time.Now()}
		case websocket.TextMessage:
			f, err = parseFrameMessage(data)
			if err != nil {
				s.logger.Warn("ignoring bad frame message", "error", err)
				continue
			}
			if f == nil {
				continue
			}
		default:
			continue
		}

		if err := s.queue.Push(f); err != nil {
			return
		}
	}
}

// parseFrameMessage returns nil, nil for well-formed messages that are not frames.
func parseFrameMessage(data []byte) (*pose.Frame, error) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	if msg.Type != protocol.TypeFrame {
		return nil, nil
	}
	var fd protocol.FrameData
	if err := msg.ParseData(&fd); err != nil {
		return nil, fmt.Errorf("parse frame data: %w", err)
	}
	return FromFrameData(fd)
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Stream) readErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
