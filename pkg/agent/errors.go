package agent

import "errors"

// Sentinel errors for agent setup.
var (
	// ErrNilEstimator is returned when registering a nil estimator.
	ErrNilEstimator = errors.New("agent: nil estimator")

	// ErrSealed is returned when registering after the frame loop started.
	ErrSealed = errors.New("agent: estimators can only be added before the first frame")

	// ErrUnknownMode is returned for an unsupported selection mode.
	ErrUnknownMode = errors.New("agent: unknown selection mode")
)
