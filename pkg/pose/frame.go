package pose

import (
	"errors"
	"fmt"
	"time"
)

// Frame encodings understood by the estimators.
const (
	EncodingJPEG = "jpeg"
	EncodingBGR8 = "bgr8"
	EncodingRGB8 = "rgb8"
)

// ErrEmptyFrame is returned when a frame carries no pixel data.
var ErrEmptyFrame = errors.New("pose: empty frame")

// Frame is one camera image delivered to the tracking loop.
type Frame struct {
	Seq       uint64 // Monotonic per source, assigned by the source
	SourceID  uint64 // Frame number reported by the producer, if any
	Width     int
	Height    int
	Encoding  string
	Data      []byte
	Timestamp time.Time
}

// Validate checks that the frame can be handed to an estimator.
func (f *Frame) Validate() error {
	if f == nil || len(f.Data) == 0 {
		return ErrEmptyFrame
	}
	switch f.Encoding {
	case EncodingJPEG:
		return nil
	case EncodingBGR8, EncodingRGB8:
		if f.Width <= 0 || f.Height <= 0 {
			return fmt.Errorf("pose: invalid frame size %dx%d", f.Width, f.Height)
		}
		if want := f.Width * f.Height * 3; len(f.Data) != want {
			return fmt.Errorf("pose: %s frame has %d bytes, want %d", f.Encoding, len(f.Data), want)
		}
		return nil
	default:
		return fmt.Errorf("pose: unsupported encoding %q", f.Encoding)
	}
}
