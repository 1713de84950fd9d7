package pose

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Calibration holds pinhole camera intrinsics. Poses are computed with the
// ideal pinhole model: pixel positions are used as detected, without lens
// undistortion.
type Calibration struct {
	Fx float64 `yaml:"fx" json:"fx"`
	Fy float64 `yaml:"fy" json:"fy"`
	Cx float64 `yaml:"cx" json:"cx"`
	Cy float64 `yaml:"cy" json:"cy"`

	// Distortion coefficients (k1, k2, p1, p2, k3). Loaded so calibration
	// files round-trip; nothing in pose estimation reads them.
	Distortion []float64 `yaml:"distortion" json:"distortion"`
}

// DefaultCalibration returns nominal intrinsics for a 640x480 USB camera.
func DefaultCalibration() Calibration {
	return Calibration{
		Fx: 600,
		Fy: 600,
		Cx: 320,
		Cy: 240,
	}
}

// Validate checks the intrinsics are usable.
func (c Calibration) Validate() error {
	if c.Fx <= 0 || c.Fy <= 0 {
		return fmt.Errorf("pose: focal lengths must be positive, got fx=%v fy=%v", c.Fx, c.Fy)
	}
	return nil
}

// Matrix returns the camera matrix K.
func (c Calibration) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		c.Fx, 0, c.Cx,
		0, c.Fy, c.Cy,
		0, 0, 1,
	})
}

// BackProject returns the camera-frame point seen at pixel (u, v) at depth z.
func (c Calibration) BackProject(u, v, z float64) (r3.Vector, error) {
	var inv mat.Dense
	if err := inv.Inverse(c.Matrix()); err != nil {
		return r3.Vector{}, fmt.Errorf("pose: invert camera matrix: %w", err)
	}
	var ray mat.VecDense
	ray.MulVec(&inv, mat.NewVecDense(3, []float64{u, v, 1}))
	return r3.Vector{X: ray.AtVec(0) * z, Y: ray.AtVec(1) * z, Z: ray.AtVec(2) * z}, nil
}

// Project returns the pixel position of a camera-frame point.
func (c Calibration) Project(p r3.Vector) (u, v float64) {
	if p.Z == 0 {
		return c.Cx, c.Cy
	}
	return c.Fx*p.X/p.Z + c.Cx, c.Fy*p.Y/p.Z + c.Cy
}
