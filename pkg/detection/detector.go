// Package detection provides landing-pad pose estimators backed by OpenCV.
//
// Board finds an ArUco grid board, Color finds a coloured disc by HSV
// segmentation. Both turn what they see into a pose with a pinhole camera
// model; the geometry lives in pure functions so it can be tested without
// OpenCV.
package detection

import (
	"errors"
	"fmt"
)

// ErrNotDetected is returned by EstimatePose when the pad is not in the frame.
var ErrNotDetected = errors.New("detection: pad not detected")

// BoardConfig describes an ArUco grid board.
type BoardConfig struct {
	MarkerLength     float64 `yaml:"marker_length" json:"marker_length"`         // Marker side, in output units (cm)
	MarkerSeparation float64 `yaml:"marker_separation" json:"marker_separation"` // Gap between markers, same units
	MarkersX         int     `yaml:"markers_x" json:"markers_x"`
	MarkersY         int     `yaml:"markers_y" json:"markers_y"`
	Dictionary       int     `yaml:"dictionary" json:"dictionary"` // OpenCV predefined dictionary id
	FirstMarker      int     `yaml:"first_marker" json:"first_marker"`
	MinMarkers       int     `yaml:"min_markers" json:"min_markers"` // Markers needed for a pose
	MinSidePixels    float64 `yaml:"min_side_pixels" json:"min_side_pixels"`
}

// DefaultSmallBoard returns the 6x8 board of small markers used for the
// final descent.
func DefaultSmallBoard() BoardConfig {
	return BoardConfig{
		MarkerLength:     3.62,
		MarkerSeparation: 2.63,
		MarkersX:         6,
		MarkersY:         8,
		Dictionary:       0, // DICT_4X4_50
		MinMarkers:       1,
		MinSidePixels:    6,
	}
}

// DefaultLargeBoard returns the 2x2 board of large markers visible from altitude.
func DefaultLargeBoard() BoardConfig {
	return BoardConfig{
		MarkerLength:     9.89,
		MarkerSeparation: 15.15,
		MarkersX:         2,
		MarkersY:         2,
		Dictionary:       4, // DICT_5X5_50
		MinMarkers:       1,
		MinSidePixels:    6,
	}
}

// Validate checks the board description.
func (c BoardConfig) Validate() error {
	if c.MarkerLength <= 0 {
		return fmt.Errorf("detection: marker length must be positive, got %v", c.MarkerLength)
	}
	if c.MarkerSeparation < 0 {
		return fmt.Errorf("detection: marker separation must not be negative, got %v", c.MarkerSeparation)
	}
	if c.MarkersX < 1 || c.MarkersY < 1 {
		return fmt.Errorf("detection: board must have at least one marker, got %dx%d", c.MarkersX, c.MarkersY)
	}
	if c.Dictionary < 0 {
		return fmt.Errorf("detection: invalid dictionary %d", c.Dictionary)
	}
	if c.MinMarkers < 1 {
		return fmt.Errorf("detection: min markers must be at least 1, got %d", c.MinMarkers)
	}
	return nil
}

// ColorConfig describes the colour tracker. Bounds are OpenCV HSV
// (H 0-180, S and V 0-255).
type ColorConfig struct {
	Lower       [3]float64 `yaml:"lower" json:"lower"`
	Upper       [3]float64 `yaml:"upper" json:"upper"`
	PadDiameter float64    `yaml:"pad_diameter" json:"pad_diameter"` // Real diameter, output units (cm)
	MinArea     float64    `yaml:"min_area" json:"min_area"`         // Minimum blob area in pixels
	OpenKernel  int        `yaml:"open_kernel" json:"open_kernel"`   // Morphological opening size, 0 disables
}

// DefaultColor returns settings for the orange pad disc.
func DefaultColor() ColorConfig {
	return ColorConfig{
		Lower:       [3]float64{5, 120, 90},
		Upper:       [3]float64{22, 255, 255},
		PadDiameter: 60,
		MinArea:     400,
		OpenKernel:  5,
	}
}

// Validate checks the colour tracker settings.
func (c ColorConfig) Validate() error {
	for i := range c.Lower {
		if c.Lower[i] > c.Upper[i] {
			return fmt.Errorf("detection: HSV channel %d lower bound %v above upper %v", i, c.Lower[i], c.Upper[i])
		}
	}
	if c.PadDiameter <= 0 {
		return fmt.Errorf("detection: pad diameter must be positive, got %v", c.PadDiameter)
	}
	if c.MinArea < 0 {
		return fmt.Errorf("detection: min area must not be negative, got %v", c.MinArea)
	}
	return nil
}
