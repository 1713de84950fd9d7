package detection

import (
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-padtrack/pkg/pose"
)

// Board estimates the pose of an ArUco grid board.
type Board struct {
	name     string
	config   BoardConfig
	calib    pose.Calibration
	detector gocv.ArucoDetector
	logger   *slog.Logger

	mu   sync.Mutex // Protects detector and last
	last frameResult
}

// NewBoard creates a board estimator.
func NewBoard(name string, cfg BoardConfig, calib pose.Calibration) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := calib.Validate(); err != nil {
		return nil, err
	}

	dict := gocv.GetPredefinedDictionary(gocv.ArucoDictionaryCode(cfg.Dictionary))
	params := gocv.NewArucoDetectorParameters()

	return &Board{
		name:     name,
		config:   cfg,
		calib:    calib,
		detector: gocv.NewArucoDetectorWithParams(dict, params),
		logger:   slog.Default().With("component", "detection.board", "tracker", name),
	}, nil
}

// Name implements pose.Estimator.
func (b *Board) Name() string {
	return b.name
}

// Detect implements pose.Estimator.
func (b *Board) Detect(f *pose.Frame) bool {
	_, err := b.run(f)
	return err == nil
}

// EstimatePose implements pose.Estimator.
func (b *Board) EstimatePose(f *pose.Frame) (pose.Pose, error) {
	return b.run(f)
}

// Close releases the OpenCV detector.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detector.Close()
	return nil
}

func (b *Board) run(f *pose.Frame) (pose.Pose, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.last.get(f, b.estimate)
}

func (b *Board) estimate(f *pose.Frame) (pose.Pose, error) {
	img, err := Decode(f)
	if err != nil {
		b.logger.Debug("frame decode failed", "error", err)
		return pose.Pose{}, err
	}
	defer img.Close()

	corners, ids, _ := b.detector.DetectMarkers(img)
	markers := make([]Marker, 0, len(ids))
	for i, id := range ids {
		if i >= len(corners) || len(corners[i]) != 4 {
			continue
		}
		m := Marker{ID: id}
		for j, c := range corners[i] {
			m.Corners[j] = Point{X: float64(c.X), Y: float64(c.Y)}
		}
		markers = append(markers, m)
	}

	p, ok := EstimateBoard(markers, b.config, b.calib)
	if !ok {
		return pose.Pose{}, fmt.Errorf("%w: %d markers seen", ErrNotDetected, len(markers))
	}
	return p, nil
}
