package pose

import (
	"errors"
	"sync"
)

// ErrMockNoPose is returned by a MockEstimator with no EstimateFunc.
var ErrMockNoPose = errors.New("pose: mock has no pose")

// MockEstimator implements Estimator for testing.
type MockEstimator struct {
	// MockName is returned by Name.
	MockName string

	// DetectFunc is called when Detect is invoked. Nil means "not detected".
	DetectFunc func(frame *Frame) bool

	// EstimateFunc is called when EstimatePose is invoked.
	EstimateFunc func(frame *Frame) (Pose, error)

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Seq    uint64
}

// NewMockEstimator returns a mock that always detects and reports p.
func NewMockEstimator(name string, p Pose) *MockEstimator {
	return &MockEstimator{
		MockName:   name,
		DetectFunc: func(*Frame) bool { return true },
		EstimateFunc: func(*Frame) (Pose, error) {
			return p, nil
		},
	}
}

// Name implements Estimator.
func (m *MockEstimator) Name() string {
	return m.MockName
}

// Detect implements Estimator.
func (m *MockEstimator) Detect(frame *Frame) bool {
	m.record("Detect", frame)
	if m.DetectFunc == nil {
		return false
	}
	return m.DetectFunc(frame)
}

// EstimatePose implements Estimator.
func (m *MockEstimator) EstimatePose(frame *Frame) (Pose, error) {
	m.record("EstimatePose", frame)
	if m.EstimateFunc == nil {
		return Pose{}, ErrMockNoPose
	}
	return m.EstimateFunc(frame)
}

// Close implements io.Closer.
func (m *MockEstimator) Close() error {
	m.record("Close", nil)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of recorded calls.
func (m *MockEstimator) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times method was invoked.
func (m *MockEstimator) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears recorded calls.
func (m *MockEstimator) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

func (m *MockEstimator) record(method string, frame *Frame) {
	var seq uint64
	if frame != nil {
		seq = frame.Seq
	}
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Seq: seq})
	m.mu.Unlock()
}
