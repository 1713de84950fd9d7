package detection

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Decode converts a frame to a BGR Mat. The caller must Close it.
func Decode(f *pose.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	switch f.Encoding {
	case pose.EncodingJPEG:
		img, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("decode image: %w", err)
		}
		if img.Empty() {
			img.Close()
			return gocv.Mat{}, fmt.Errorf("decode image: empty result")
		}
		return img, nil

	case pose.EncodingBGR8:
		img, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap bgr8 frame: %w", err)
		}
		return img, nil

	case pose.EncodingRGB8:
		rgb, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("wrap rgb8 frame: %w", err)
		}
		defer rgb.Close()
		bgr := gocv.NewMat()
		gocv.CvtColor(rgb, &bgr, gocv.ColorRGBToBGR)
		return bgr, nil
	}

	return gocv.Mat{}, fmt.Errorf("detection: unsupported encoding %q", f.Encoding)
}

// frameResult caches one estimator's answer for the frame it last saw, so
// Detect followed by EstimatePose runs OpenCV once. It is keyed on the
// frame itself: sequence numbers can repeat across producers.
type frameResult struct {
	frame *pose.Frame
	pose  pose.Pose
	err   error
}

func (r *frameResult) lookup(f *pose.Frame) (frameResult, bool) {
	if f == nil || r.frame != f {
		return frameResult{}, false
	}
	return *r, true
}

func (r *frameResult) store(f *pose.Frame, p pose.Pose, err error) {
	if f == nil {
		return
	}
	r.frame, r.pose, r.err = f, p, err
}

// get returns the cached answer for f, running estimate on a miss.
func (r *frameResult) get(f *pose.Frame, estimate func(*pose.Frame) (pose.Pose, error)) (pose.Pose, error) {
	if c, ok := r.lookup(f); ok {
		return c.pose, c.err
	}
	p, err := estimate(f)
	r.store(f, p, err)
	return p, err
}
