// Package camera delivers frames to the tracking loop from a local camera,
// a remote frame bridge, or frames pushed in over the web API.
package camera

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// ErrClosed is returned by Next once a source has been closed.
var ErrClosed = errors.New("camera: source closed")

// Source yields frames one at a time.
type Source interface {
	// Next blocks until a frame is available, the context ends, or the
	// source is closed.
	Next(ctx context.Context) (*pose.Frame, error)

	// Close releases the source.
	Close() error
}

// Config holds frame source settings.
type Config struct {
	Device    string `yaml:"device" json:"device"`         // Capture device index or path, "" disables
	Width     int    `yaml:"width" json:"width"`           // Requested capture width
	StreamURL string `yaml:"stream_url" json:"stream_url"` // WebSocket frame bridge, "" disables
}

// DefaultConfig returns the capture defaults.
func DefaultConfig() Config {
	return Config{
		Device: "0",
		Width:  640,
	}
}

// FromFrameData converts a wire frame into a pose.Frame.
func FromFrameData(fd protocol.FrameData) (*pose.Frame, error) {
	data, err := base64.StdEncoding.DecodeString(fd.Data)
	if err != nil {
		return nil, fmt.Errorf("camera: decode frame data: %w", err)
	}
	encoding := fd.Encoding
	if encoding == "" {
		encoding = pose.EncodingJPEG
	}
	f := &pose.Frame{
		SourceID:  fd.FrameID,
		Width:     fd.Width,
		Height:    fd.Height,
		Encoding:  encoding,
		Data:      data,
		Timestamp: time.Now(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
