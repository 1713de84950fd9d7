package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-padtrack/pkg/agent"
	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/protocol"
)

type recorder struct {
	mu         sync.Mutex
	poses      []protocol.PoseData
	detections []protocol.DetectionData
	poseErr    error
}

func (r *recorder) PublishPose(_ context.Context, p protocol.PoseData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.poses = append(r.poses, p)
	return r.poseErr
}

func (r *recorder) PublishDetection(_ context.Context, d protocol.DetectionData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detections = append(r.detections, d)
	return nil
}

// sliceSource replays frames and then reports the source closed.
type sliceSource struct {
	frames []*pose.Frame
}

func (s *sliceSource) Next(ctx context.Context) (*pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.frames) == 0 {
		return nil, camera.ErrClosed
	}
	f := s.frames[0]
	s.frames = s.frames[1:]
	return f, nil
}

func (s *sliceSource) Close() error { return nil }

func frame(seq uint64) *pose.Frame {
	return &pose.Frame{Seq: seq, Encoding: pose.EncodingJPEG, Data: []byte{0xff}}
}

// scripted returns a mock that detects only on the listed frame numbers
// and reports z = seq*100 cm.
func scripted(name string, seqs ...uint64) *pose.MockEstimator {
	on := make(map[uint64]bool, len(seqs))
	for _, s := range seqs {
		on[s] = true
	}
	return &pose.MockEstimator{
		MockName:   name,
		DetectFunc: func(f *pose.Frame) bool { return on[f.Seq] },
		EstimateFunc: func(f *pose.Frame) (pose.Pose, error) {
			return pose.Pose{
				Translation: r3.Vector{Z: float64(f.Seq) * 100},
				Rotation:    r3.Vector{Z: 0.5},
			}, nil
		},
	}
}

func newPipeline(t *testing.T, pub Publisher, trackers ...pose.Estimator) *Pipeline {
	t.Helper()
	cfg := agent.DefaultConfig()
	cfg.SmoothingPeriod = 2
	a, err := agent.New(cfg)
	require.NoError(t, err)
	for _, tr := range trackers {
		require.NoError(t, a.AddTracker(tr))
	}
	p, err := New(a, pub, Config{LinearScale: 0.01})
	require.NoError(t, err)
	return p
}

func TestHandleFrame_PublishesScaledSmoothedPose(t *testing.T) {
	rec := &recorder{}
	p := newPipeline(t, rec, scripted("board", 1, 2, 3))

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, p.HandleFrame(context.Background(), frame(seq)))
	}

	require.Len(t, rec.poses, 3)
	// window of 2 over z = 100, 200, 300 cm
	assert.InDelta(t, 1.0, rec.poses[0].Linear.Z, 1e-9)
	assert.InDelta(t, 1.5, rec.poses[1].Linear.Z, 1e-9)
	assert.InDelta(t, 2.5, rec.poses[2].Linear.Z, 1e-9)
	assert.Equal(t, 0.5, rec.poses[2].Angular.Z, "rotation is published raw")
	assert.Equal(t, "board", rec.poses[2].TrackerName)
	assert.Equal(t, 0, rec.poses[2].Tracker)
}

func TestHandleFrame_DetectionEveryFrame(t *testing.T) {
	rec := &recorder{}
	p := newPipeline(t, rec, scripted("board", 2))

	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, p.HandleFrame(context.Background(), frame(seq)))
	}

	require.Len(t, rec.detections, 3)
	assert.False(t, rec.detections[0].Detected)
	assert.True(t, rec.detections[1].Detected)
	assert.False(t, rec.detections[2].Detected)
	require.Len(t, rec.poses, 1, "no pose is published on a miss")
	assert.Equal(t, uint64(2), rec.poses[0].Seq)
}

func TestHandleFrame_PublishErrorStillPublishesDetection(t *testing.T) {
	rec := &recorder{poseErr: errors.New("link down")}
	p := newPipeline(t, rec, scripted("board", 1))

	err := p.HandleFrame(context.Background(), frame(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, rec.poseErr)
	assert.Len(t, rec.detections, 1)
}

func TestRun_StopsWhenSourceCloses(t *testing.T) {
	rec := &recorder{}
	p := newPipeline(t, rec, scripted("small", 1), scripted("large", 1, 2))

	src := &sliceSource{frames: []*pose.Frame{
		frame(1),
		{Seq: 99}, // empty frame is skipped
		frame(2),
		frame(3),
	}}
	require.NoError(t, p.Run(context.Background(), src))

	assert.Len(t, rec.detections, 3)
	require.Len(t, rec.poses, 2)
	assert.Equal(t, "small", rec.poses[0].TrackerName)
	assert.Equal(t, "large", rec.poses[1].TrackerName)

	st := p.Status()
	assert.Equal(t, uint64(3), st.Frames)
	assert.Equal(t, uint64(2), st.Detections)
	assert.Equal(t, uint64(1), st.Switches)
	assert.Equal(t, agent.NoTracker, st.Active)
	assert.Equal(t, []string{"small", "large"}, st.Trackers)
	assert.Equal(t, []uint64{1, 1}, st.Hits)
	require.NotNil(t, st.LastPose)
	assert.Equal(t, uint64(2), st.LastPose.Seq)
	assert.NotZero(t, st.LastFrameAt)
	assert.Equal(t, "greedy", st.Mode)
}

func TestRun_ContextCancelled(t *testing.T) {
	p := newPipeline(t, nil, scripted("board"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, p.Run(ctx, &sliceSource{frames: []*pose.Frame{frame(1)}}))
}

func TestRun_SourceError(t *testing.T) {
	p := newPipeline(t, nil, scripted("board"))
	src := sourceFunc(func(context.Context) (*pose.Frame, error) {
		return nil, errors.New("usb unplugged")
	})

	assert.Error(t, p.Run(context.Background(), src))
}

type sourceFunc func(context.Context) (*pose.Frame, error)

func (f sourceFunc) Next(ctx context.Context) (*pose.Frame, error) { return f(ctx) }
func (f sourceFunc) Close() error                                  { return nil }

func TestNew_Validation(t *testing.T) {
	a, err := agent.New(agent.DefaultConfig())
	require.NoError(t, err)

	_, err = New(nil, nil, DefaultConfig())
	assert.Error(t, err)

	_, err = New(a, nil, Config{LinearScale: 0})
	assert.Error(t, err)

	p, err := New(a, nil, DefaultConfig())
	require.NoError(t, err)
	st := p.Status()
	assert.Equal(t, agent.NoTracker, st.Active)
	assert.Nil(t, st.LastPose)
	assert.Zero(t, st.LastFrameAt)
}

func TestMultiPublisher(t *testing.T) {
	a, b := &recorder{poseErr: errors.New("a failed")}, &recorder{}
	m := MultiPublisher{a, NewLogPublisher(nil), b}

	err := m.PublishPose(context.Background(), protocol.PoseData{Seq: 1})
	assert.ErrorIs(t, err, a.poseErr)
	assert.Len(t, b.poses, 1, "later publishers still run")

	assert.NoError(t, m.PublishDetection(context.Background(), protocol.DetectionData{Seq: 1}))
	assert.Len(t, a.detections, 1)
	assert.Len(t, b.detections, 1)
}
