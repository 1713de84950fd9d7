// Package pose defines landing-pad pose values, camera frames and the
// estimator capability that turns one into the other.
package pose

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Pose is the position and orientation of the pad relative to the camera.
// Translation is in the estimator's length unit (centimetres for the boards),
// Rotation is an axis-angle vector in radians.
type Pose struct {
	Translation r3.Vector
	Rotation    r3.Vector
}

// IsFinite reports whether every component is a finite number.
func (p Pose) IsFinite() bool {
	for _, v := range []float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// RotationMatrix returns the 3x3 rotation matrix for the pose's axis-angle rotation.
func (p Pose) RotationMatrix() *mat.Dense {
	return Rodrigues(p.Rotation)
}

// Rotate applies the pose rotation to v.
func (p Pose) Rotate(v r3.Vector) r3.Vector {
	r := p.RotationMatrix()
	var out mat.VecDense
	out.MulVec(r, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vector{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Offset maps a point given in the pad's own frame into camera coordinates.
// Used to report the pad centre when the estimator's origin is a board corner.
func (p Pose) Offset(local r3.Vector) r3.Vector {
	return p.Rotate(local).Add(p.Translation)
}

func (p Pose) String() string {
	return fmt.Sprintf("t=(%.2f, %.2f, %.2f) r=(%.3f, %.3f, %.3f)",
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Rotation.X, p.Rotation.Y, p.Rotation.Z)
}

// Rodrigues converts an axis-angle vector into a rotation matrix.
func Rodrigues(r r3.Vector) *mat.Dense {
	theta := r.Norm()
	if theta < 1e-12 {
		return identity()
	}
	k := r.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)

	kkT := mat.NewDense(3, 3, []float64{
		k.X * k.X, k.X * k.Y, k.X * k.Z,
		k.Y * k.X, k.Y * k.Y, k.Y * k.Z,
		k.Z * k.X, k.Z * k.Y, k.Z * k.Z,
	})
	skew := mat.NewDense(3, 3, []float64{
		0, -k.Z, k.Y,
		k.Z, 0, -k.X,
		-k.Y, k.X, 0,
	})

	var out mat.Dense
	out.Scale(c, identity())
	kkT.Scale(1-c, kkT)
	out.Add(&out, kkT)
	skew.Scale(s, skew)
	out.Add(&out, skew)
	return &out
}

func identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}
