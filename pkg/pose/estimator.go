package pose

// Estimator produces a raw pad pose from a single frame.
//
// Detect reports whether the pad is visible. EstimatePose is only
// meaningful after Detect returned true for the same frame.
type Estimator interface {
	// Name identifies the estimator in logs and status output.
	Name() string

	// Detect looks for the pad in the frame.
	Detect(frame *Frame) bool

	// EstimatePose computes the pad pose for a frame the estimator detected.
	EstimatePose(frame *Frame) (Pose, error)
}
