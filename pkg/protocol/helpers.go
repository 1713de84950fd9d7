package protocol

import (
	"encoding/base64"

	"github.com/golang/geo/r3"
)

// VectorFrom converts an r3 vector to its wire form.
func VectorFrom(v r3.Vector) Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: v.Z}
}

// R3 converts the wire vector back to r3.
func (v Vector3) R3() r3.Vector {
	return r3.Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// NewFrameMessage creates a frame message from raw image data
func NewFrameMessage(width, height int, encoding string, data []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{
		Width:    width,
		Height:   height,
		Encoding: encoding,
		Data:     base64.StdEncoding.EncodeToString(data),
		FrameID:  frameID,
	})
}

// NewPoseMessage creates a pose message
func NewPoseMessage(p PoseData) (*Message, error) {
	return NewMessage(TypePose, p)
}

// NewDetectionMessage creates a detection message
func NewDetectionMessage(seq uint64, detected bool) (*Message, error) {
	return NewMessage(TypeDetection, DetectionData{Seq: seq, Detected: detected})
}
