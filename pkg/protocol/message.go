// Package protocol defines the WebSocket messages exchanged between the pad
// tracker, the flight controller bridge and camera bridges.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Tracker → flight controller
	TypePose      MessageType = "pose"      // Smoothed pad pose
	TypeDetection MessageType = "detection" // Whether the pad is visible this frame
	TypeStatus    MessageType = "status"    // Tracker diagnostics

	// Camera bridge → tracker
	TypeFrame MessageType = "frame" // Camera frame

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with a fresh ID and the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Payloads
// =============================================================================

// Vector3 is a plain 3-component vector on the wire.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PoseData is the pad pose handed to the position controller.
// Linear is the smoothed translation in metres, Angular the raw rotation
// vector in radians.
type PoseData struct {
	Seq         uint64  `json:"seq"`
	Linear      Vector3 `json:"linear"`
	Angular     Vector3 `json:"angular"`
	Tracker     int     `json:"tracker"`
	TrackerName string  `json:"tracker_name,omitempty"`
}

// DetectionData reports whether any tracker saw the pad.
type DetectionData struct {
	Seq      uint64 `json:"seq"`
	Detected bool   `json:"detected"`
}

// FrameData contains a camera frame
type FrameData struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Encoding string `json:"encoding"` // "jpeg", "bgr8", "rgb8"
	Data     string `json:"data"`     // base64 encoded
	FrameID  uint64 `json:"frame_id,omitempty"`
}

// StatusData is a snapshot of the tracking loop.
type StatusData struct {
	Frames      uint64    `json:"frames"`
	Detections  uint64    `json:"detections"`
	Switches    uint64    `json:"switches"`
	Mode        string    `json:"mode"`
	Active      int       `json:"active"`
	ActiveName  string    `json:"active_name,omitempty"`
	Trackers    []string  `json:"trackers"`
	Hits        []uint64  `json:"hits"`
	LastPose    *PoseData `json:"last_pose,omitempty"`
	LastFrameAt int64     `json:"last_frame_at,omitempty"` // Unix milliseconds
}
