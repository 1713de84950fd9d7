package hub

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// ErrStopped is returned when publishing to a stopped hub.
var ErrStopped = errors.New("hub: stopped")

// Hub keeps the subscribers of one topic and broadcasts to them.
// Only the Run goroutine touches the client set's send channels.
type Hub struct {
	topic  string
	logger *slog.Logger

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	mu    sync.RWMutex // Guards clients
	count atomic.Int64

	// last is the newest message Run has delivered. It is replayed to new
	// subscribers, and since both happen on the Run goroutine a subscriber
	// never sees the same message twice.
	lastMu sync.RWMutex
	last   *Message

	dropped atomic.Uint64
}

// New creates a hub for topic. Call Run before publishing.
func New(topic string) *Hub {
	return &Hub{
		topic:      topic,
		logger:     slog.Default().With("component", "hub", "topic", topic),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Topic returns the topic this hub serves.
func (h *Hub) Topic() string {
	return h.topic
}

// Run is the broadcast loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.count.Store(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.count.Store(int64(n))

			if last := h.Last(); last != nil {
				c.send <- *last
			}
			h.logger.Info("subscriber connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.count.Store(int64(n))
			h.logger.Info("subscriber disconnected", "clients", n)

		case msg := <-h.broadcast:
			h.lastMu.Lock()
			h.last = &msg
			h.lastMu.Unlock()

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Too slow to keep up with the frame rate
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("dropped slow subscriber")
				}
			}
			h.count.Store(int64(len(h.clients)))
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and closes every subscriber. It is safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast queues msg for every subscriber. When the queue is full the
// message is dropped; subscribers only care about the newest pose.
func (h *Hub) Broadcast(msg Message) error {
	select {
	case <-h.done:
		return ErrStopped
	default:
	}

	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Debug("broadcast queue full, dropping message")
	}
	return nil
}

// Publish encodes a protocol envelope and broadcasts it.
func (h *Hub) Publish(msg *protocol.Message) error {
	m, err := FromProtocol(msg)
	if err != nil {
		return err
	}
	return h.Broadcast(m)
}

// Last returns the most recently delivered message, or nil.
func (h *Hub) Last() *Message {
	h.lastMu.RLock()
	defer h.lastMu.RUnlock()
	return h.last
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Dropped returns how many broadcasts were discarded on a full queue.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
