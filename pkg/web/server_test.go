package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

type staticStatus protocol.StatusData

func (s staticStatus) Status() protocol.StatusData { return protocol.StatusData(s) }

func get(t *testing.T, s *Server, path string) (int, []byte) {
	t.Helper()
	resp, err := s.app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, nil)

	code, body := get(t, s, "/api/health")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestStatus(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, nil)

	code, _ := get(t, s, "/api/status")
	assert.Equal(t, 503, code, "no provider yet")

	s.SetStatusProvider(staticStatus{
		Frames:   10,
		Mode:     "greedy",
		Active:   1,
		Trackers: []string{"small-board", "large-board", "color"},
		Hits:     []uint64{2, 5, 0},
	})

	code, body := get(t, s, "/api/status")
	require.Equal(t, 200, code)
	var st protocol.StatusData
	require.NoError(t, json.Unmarshal(body, &st))
	assert.Equal(t, uint64(10), st.Frames)
	assert.Equal(t, "greedy", st.Mode)

	code, body = get(t, s, "/api/trackers")
	require.Equal(t, 200, code)
	var trackers []TrackerInfo
	require.NoError(t, json.Unmarshal(body, &trackers))
	require.Len(t, trackers, 3)
	assert.Equal(t, TrackerInfo{Index: 1, Name: "large-board", Hits: 5, Active: true}, trackers[1])
	assert.False(t, trackers[0].Active)
}

func TestTopicsRequireUpgrade(t *testing.T) {
	q := camera.NewQueue()
	defer q.Close()
	s := NewServer(Config{Port: "0", Prefix: "drone1"}, q, nil)

	for _, path := range []string{"/ws/drone1/pose", "/ws/drone1/detection", "/ws/drone1/frames"} {
		code, _ := get(t, s, path)
		assert.Equal(t, 426, code, path)
	}

	code, body := get(t, s, "/api/bridges")
	assert.Equal(t, 200, code)
	assert.Contains(t, string(body), `"bridges":[]`)
}

func TestBridgesDisabledWithoutSink(t *testing.T) {
	s := NewServer(DefaultConfig(), nil, nil)
	code, _ := get(t, s, "/api/bridges")
	assert.Equal(t, 404, code)
}

func TestPublishReachesSubscriber(t *testing.T) {
	s := NewServer(Config{Port: "18094", Prefix: "padtrack"}, nil, nil)
	s.StartAsync()
	defer s.Shutdown()
	time.Sleep(100 * time.Millisecond)

	ws, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:18094/ws/padtrack/pose", nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return s.poseHub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	want := protocol.PoseData{Seq: 3, Linear: protocol.Vector3{Z: 1.2}, TrackerName: "color"}
	require.NoError(t, s.PublishPose(context.Background(), want))
	require.NoError(t, s.PublishDetection(context.Background(), protocol.DetectionData{Seq: 3, Detected: true}))

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, raw, err := ws.ReadMessage()
	require.NoError(t, err)

	msg, err := protocol.ParseMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypePose, msg.Type)
	var got protocol.PoseData
	require.NoError(t, msg.ParseData(&got))
	assert.Equal(t, want, got)

	assert.Eventually(t, func() bool { return s.detectionHub.Last() != nil }, time.Second, 5*time.Millisecond)
}
