package agent

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-padtrack/pkg/sma"
)

// Mode selects how the agent picks an estimator on each frame.
type Mode int

const (
	// ModeGreedy sticks with the estimator that last succeeded and only
	// scans the others, in priority order, once it fails.
	ModeGreedy Mode = iota

	// ModePriority scans every frame from the highest-priority estimator.
	ModePriority
)

func (m Mode) String() string {
	switch m {
	case ModeGreedy:
		return "greedy"
	case ModePriority:
		return "priority"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "greedy":
		return ModeGreedy, nil
	case "priority":
		return ModePriority, nil
	default:
		return ModeGreedy, fmt.Errorf("%w: %q", ErrUnknownMode, value)
	}
}

// Config holds agent parameters.
type Config struct {
	Mode Mode

	// SmoothingPeriod is the moving-average window, in frames, per axis.
	SmoothingPeriod int

	// ResetOnSwitch clears the smoothing windows when the estimator feeding
	// them changes, so samples from different estimators never mix.
	ResetOnSwitch bool
}

// DefaultConfig returns the flight defaults: sticky selection, a 10 frame
// window, and smoothing carried across estimator switches.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeGreedy,
		SmoothingPeriod: 10,
		ResetOnSwitch:   false,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeGreedy, ModePriority:
	default:
		return fmt.Errorf("%w: %v", ErrUnknownMode, c.Mode)
	}
	if c.SmoothingPeriod < 1 {
		return fmt.Errorf("agent: %w: got %d", sma.ErrInvalidPeriod, c.SmoothingPeriod)
	}
	return nil
}
