package detection

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Point is a pixel position.
type Point struct {
	X, Y float64
}

// Marker is one detected ArUco marker. Corners follow OpenCV order:
// top-left, top-right, bottom-right, bottom-left.
type Marker struct {
	ID      int
	Corners [4]Point
}

// Center returns the mean of the corners.
func (m Marker) Center() Point {
	var c Point
	for _, p := range m.Corners {
		c.X += p.X
		c.Y += p.Y
	}
	return Point{X: c.X / 4, Y: c.Y / 4}
}

// SideLength returns the mean edge length in pixels.
func (m Marker) SideLength() float64 {
	total := 0.0
	for i := range m.Corners {
		a, b := m.Corners[i], m.Corners[(i+1)%4]
		total += math.Hypot(b.X-a.X, b.Y-a.Y)
	}
	return total / 4
}

// Roll returns the in-plane angle of the marker's top edge.
func (m Marker) Roll() float64 {
	a, b := m.Corners[0], m.Corners[1]
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Blob is a colour region found by segmentation.
type Blob struct {
	Center Point
	Radius float64 // Enclosing circle radius in pixels
	Area   float64 // Contour area in pixels
}

// MarkerCell returns the grid position of a marker id on the board.
func (c BoardConfig) MarkerCell(id int) (col, row int, ok bool) {
	idx := id - c.FirstMarker
	if idx < 0 || idx >= c.MarkersX*c.MarkersY {
		return 0, 0, false
	}
	return idx % c.MarkersX, idx / c.MarkersX, true
}

// MarkerCenter returns the centre of a marker in board coordinates, with
// the origin at the board's top-left corner.
func (c BoardConfig) MarkerCenter(col, row int) r3.Vector {
	pitch := c.MarkerLength + c.MarkerSeparation
	return r3.Vector{
		X: float64(col)*pitch + c.MarkerLength/2,
		Y: float64(row)*pitch + c.MarkerLength/2,
	}
}

// Center returns the centre of the whole board in board coordinates.
func (c BoardConfig) Center() r3.Vector {
	return r3.Vector{
		X: (float64(c.MarkersX)*c.MarkerLength + float64(c.MarkersX-1)*c.MarkerSeparation) / 2,
		Y: (float64(c.MarkersY)*c.MarkerLength + float64(c.MarkersY-1)*c.MarkerSeparation) / 2,
	}
}

// DepthFromSize returns the distance at which an object of realSize spans
// pixelSize pixels under focal length f. Zero if pixelSize is not positive.
func DepthFromSize(f, realSize, pixelSize float64) float64 {
	if pixelSize <= 0 {
		return 0
	}
	return f * realSize / pixelSize
}

// EstimateBoard computes the pose of the board centre from its detected
// markers. Markers that are not on the board or too small are ignored.
func EstimateBoard(markers []Marker, cfg BoardConfig, calib pose.Calibration) (pose.Pose, bool) {
	type sample struct {
		cam   r3.Vector
		board r3.Vector
	}

	var samples []sample
	var sinSum, cosSum float64
	for _, m := range markers {
		col, row, ok := cfg.MarkerCell(m.ID)
		if !ok {
			continue
		}
		side := m.SideLength()
		if side < cfg.MinSidePixels || side <= 0 {
			continue
		}
		z := DepthFromSize(calib.Fx, cfg.MarkerLength, side)
		c := m.Center()
		cam, err := calib.BackProject(c.X, c.Y, z)
		if err != nil {
			return pose.Pose{}, false
		}
		samples = append(samples, sample{cam: cam, board: cfg.MarkerCenter(col, row)})

		roll := m.Roll()
		sinSum += math.Sin(roll)
		cosSum += math.Cos(roll)
	}
	if len(samples) == 0 || len(samples) < cfg.MinMarkers {
		return pose.Pose{}, false
	}

	rot := pose.Pose{Rotation: r3.Vector{Z: math.Atan2(sinSum, cosSum)}}
	center := cfg.Center()

	var sum r3.Vector
	for _, s := range samples {
		sum = sum.Add(s.cam.Sub(rot.Rotate(s.board.Sub(center))))
	}
	rot.Translation = sum.Mul(1 / float64(len(samples)))
	return rot, true
}

// EstimateBlob computes the pose of a round pad from its enclosing circle.
func EstimateBlob(b Blob, cfg ColorConfig, calib pose.Calibration) (pose.Pose, bool) {
	z := DepthFromSize(calib.Fx, cfg.PadDiameter/2, b.Radius)
	if z <= 0 {
		return pose.Pose{}, false
	}
	t, err := calib.BackProject(b.Center.X, b.Center.Y, z)
	if err != nil {
		return pose.Pose{}, false
	}
	return pose.Pose{Translation: t}, true
}

// SelectLargest picks the blob with the largest area at or above minArea.
func SelectLargest(blobs []Blob, minArea float64) *Blob {
	var best *Blob
	for i := range blobs {
		if blobs[i].Area < minArea || blobs[i].Radius <= 0 {
			continue
		}
		if best == nil || blobs[i].Area > best.Area {
			best = &blobs[i]
		}
	}
	return best
}
