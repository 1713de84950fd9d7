// Package hub fans tracking results out to websocket subscribers using a
// channel-based broadcast loop. One Hub serves one topic.
package hub

import "github.com/teslashibe/go-padtrack/pkg/protocol"

// MessageType indicates the websocket frame type used for a message.
type MessageType int

const (
	// TextMessage carries a JSON envelope.
	TextMessage MessageType = iota
	// BinaryMessage carries raw bytes.
	BinaryMessage
)

// Message is one payload queued for every subscriber.
type Message struct {
	Type MessageType
	Data []byte
}

// NewTextMessage wraps pre-encoded JSON.
func NewTextMessage(data []byte) Message {
	return Message{Type: TextMessage, Data: data}
}

// NewBinaryMessage wraps raw bytes.
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// FromProtocol encodes a protocol envelope as a text message.
func FromProtocol(msg *protocol.Message) (Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return NewTextMessage(data), nil
}
