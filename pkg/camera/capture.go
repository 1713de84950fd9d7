package camera

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Capture reads frames from a local camera through OpenCV.
type Capture struct {
	vc     *gocv.VideoCapture
	img    gocv.Mat
	seq    uint64
	mu     sync.Mutex
	closed bool
}

// OpenCapture opens a capture device. A numeric device is treated as a
// camera index, anything else as a file or pipeline path.
func OpenCapture(cfg Config) (*Capture, error) {
	var device interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", cfg.Device, err)
	}
	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}

	slog.Default().Info("camera opened",
		"component", "camera.capture",
		"device", cfg.Device,
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
	)

	return &Capture{vc: vc, img: gocv.NewMat()}, nil
}

// Next implements Source. The read itself is not interruptible; the
// context is checked before each read.
func (c *Capture) Next(ctx context.Context) (*pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	if ok := c.vc.Read(&c.img); !ok {
		return nil, fmt.Errorf("%w: unable to read video frame", ErrClosed)
	}
	if c.img.Empty() {
		return nil, fmt.Errorf("camera: empty frame")
	}

	c.seq++
	return &pose.Frame{
		Seq:       c.seq,
		Width:     c.img.Cols(),
		Height:    c.img.Rows(),
		Encoding:  pose.EncodingBGR8,
		Data:      c.img.ToBytes(),
		Timestamp: time.Now(),
	}, nil
}

// Close implements Source.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	return c.vc.Close()
}
