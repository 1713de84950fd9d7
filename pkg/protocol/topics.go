package protocol

import "fmt"

// Topic names, relative to the configured prefix.
const (
	// TopicPose carries PoseData messages.
	TopicPose = "pose"

	// TopicDetection carries DetectionData messages.
	TopicDetection = "detection"

	// TopicFrames accepts camera frames.
	TopicFrames = "frames"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix = "padtrack"

// Topics builds fully-qualified topic names.
type Topics struct {
	prefix string
}

// NewTopics creates a Topics helper with the given prefix.
func NewTopics(prefix string) *Topics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Topics{prefix: prefix}
}

// Prefix returns the topic prefix.
func (t *Topics) Prefix() string {
	return t.prefix
}

// Pose returns the full pose topic path.
func (t *Topics) Pose() string {
	return fmt.Sprintf("%s/%s", t.prefix, TopicPose)
}

// Detection returns the full detection topic path.
func (t *Topics) Detection() string {
	return fmt.Sprintf("%s/%s", t.prefix, TopicDetection)
}

// Frames returns the full frame ingestion topic path.
func (t *Topics) Frames() string {
	return fmt.Sprintf("%s/%s", t.prefix, TopicFrames)
}
