package detection

import (
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Color estimates the pose of a coloured pad disc from HSV segmentation.
type Color struct {
	name   string
	config ColorConfig
	calib  pose.Calibration
	kernel gocv.Mat
	logger *slog.Logger

	mu   sync.Mutex
	last frameResult
}

// NewColor creates a colour estimator.
func NewColor(name string, cfg ColorConfig, calib pose.Calibration) (*Color, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := calib.Validate(); err != nil {
		return nil, err
	}

	c := &Color{
		name:   name,
		config: cfg,
		calib:  calib,
		logger: slog.Default().With("component", "detection.color", "tracker", name),
	}
	if cfg.OpenKernel > 0 {
		c.kernel = gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.OpenKernel, cfg.OpenKernel))
	}
	return c, nil
}

// Name implements pose.Estimator.
func (c *Color) Name() string {
	return c.name
}

// Detect implements pose.Estimator.
func (c *Color) Detect(f *pose.Frame) bool {
	_, err := c.run(f)
	return err == nil
}

// EstimatePose implements pose.Estimator.
func (c *Color) EstimatePose(f *pose.Frame) (pose.Pose, error) {
	return c.run(f)
}

// Close releases the morphology kernel.
func (c *Color) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.OpenKernel > 0 {
		return c.kernel.Close()
	}
	return nil
}

func (c *Color) run(f *pose.Frame) (pose.Pose, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last.get(f, c.estimate)
}

func (c *Color) estimate(f *pose.Frame) (pose.Pose, error) {
	img, err := Decode(f)
	if err != nil {
		c.logger.Debug("frame decode failed", "error", err)
		return pose.Pose{}, err
	}
	defer img.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(img, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	defer mask.Close()
	lo, hi := c.config.Lower, c.config.Upper
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(lo[0], lo[1], lo[2], 0),
		gocv.NewScalar(hi[0], hi[1], hi[2], 0),
		&mask)

	if c.config.OpenKernel > 0 {
		gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, c.kernel)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	blobs := make([]Blob, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		x, y, r := gocv.MinEnclosingCircle(contour)
		blobs = append(blobs, Blob{
			Center: Point{X: float64(x), Y: float64(y)},
			Radius: float64(r),
			Area:   gocv.ContourArea(contour),
		})
	}

	best := SelectLargest(blobs, c.config.MinArea)
	if best == nil {
		return pose.Pose{}, ErrNotDetected
	}
	p, ok := EstimateBlob(*best, c.config, c.calib)
	if !ok {
		return pose.Pose{}, ErrNotDetected
	}
	return p, nil
}
