package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

// subscribe registers a connection-less client so tests can read its queue.
func subscribe(t *testing.T, h *Hub) *Client {
	t.Helper()
	c := &Client{hub: h, send: make(chan Message, sendBuffer)}
	select {
	case h.register <- c:
	case <-time.After(time.Second):
		t.Fatal("register timed out")
	}
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func startHub(t *testing.T, topic string) *Hub {
	t.Helper()
	h := New(topic)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := startHub(t, "padtrack/pose")
	a, b := subscribe(t, h), subscribe(t, h)

	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, h.Broadcast(NewTextMessage([]byte(`{"x":1}`))))

	assert.Equal(t, `{"x":1}`, string(receive(t, a).Data))
	assert.Equal(t, `{"x":1}`, string(receive(t, b).Data))
}

func TestHub_ReplaysLastToNewSubscriber(t *testing.T) {
	h := startHub(t, "padtrack/detection")

	msg, err := protocol.NewDetectionMessage(4, true)
	require.NoError(t, err)
	require.NoError(t, h.Publish(msg))
	require.Eventually(t, func() bool { return h.Last() != nil }, time.Second, 5*time.Millisecond)

	c := subscribe(t, h)
	got := receive(t, c)
	assert.Equal(t, TextMessage, got.Type)

	parsed, err := protocol.ParseMessage(got.Data)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypeDetection, parsed.Type)
	assert.Equal(t, msg.ID, parsed.ID)
}

func TestHub_QueuedMessageDeliveredOnce(t *testing.T) {
	h := New("padtrack/detection")
	t.Cleanup(h.Stop)

	// Queued before the loop runs; Run may take the register or the
	// broadcast first, and either order must yield one copy.
	require.NoError(t, h.Broadcast(NewTextMessage([]byte(`{"seq":1}`))))
	assert.Nil(t, h.Last(), "nothing delivered yet")

	go h.Run()
	c := subscribe(t, h)

	assert.Equal(t, `{"seq":1}`, string(receive(t, c).Data))
	select {
	case m := <-c.send:
		t.Fatalf("received a second copy: %s", m.Data)
	case <-time.After(50 * time.Millisecond):
	}
	require.NotNil(t, h.Last())
	assert.Equal(t, `{"seq":1}`, string(h.Last().Data))
}

func TestHub_DropsSlowSubscriber(t *testing.T) {
	h := startHub(t, "padtrack/pose")
	slow := subscribe(t, h)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < sendBuffer+10; i++ {
		require.NoError(t, h.Broadcast(NewBinaryMessage([]byte{byte(i)})))
	}

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// Buffered messages drain, then the channel reports closed
	n := 0
	for range slow.send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestHub_Stop(t *testing.T) {
	h := New("padtrack/pose")
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	c := subscribe(t, h)
	h.Stop()
	h.Stop() // idempotent

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	_, ok := <-c.send
	assert.False(t, ok, "subscriber channel should be closed")
	assert.Equal(t, 0, h.ClientCount())
	assert.ErrorIs(t, h.Broadcast(NewTextMessage(nil)), ErrStopped)

	_, err := NewClient(h, nil)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestFromProtocol(t *testing.T) {
	msg, err := protocol.NewPoseMessage(protocol.PoseData{Seq: 9})
	require.NoError(t, err)

	m, err := FromProtocol(msg)
	require.NoError(t, err)
	assert.Equal(t, TextMessage, m.Type)
	assert.Contains(t, string(m.Data), `"type":"pose"`)
}
