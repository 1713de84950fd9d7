// Package config loads padtrack's YAML configuration and environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-padtrack/pkg/agent"
	"github.com/teslashibe/go-padtrack/pkg/camera"
	"github.com/teslashibe/go-padtrack/pkg/detection"
	"github.com/teslashibe/go-padtrack/pkg/pipeline"
	"github.com/teslashibe/go-padtrack/pkg/pose"
	"github.com/teslashibe/go-padtrack/pkg/web"
)

// Environment variables that override the file.
const (
	EnvCamera    = "PADTRACK_CAMERA"
	EnvStreamURL = "PADTRACK_STREAM_URL"
	EnvPort      = "PADTRACK_PORT"
	EnvLogLevel  = "LOG_LEVEL"
)

// Tracker kinds.
const (
	KindBoard = "board"
	KindColor = "color"
)

// TrackerConfig describes one estimator. Trackers are registered in the
// order listed, which is their priority order.
type TrackerConfig struct {
	Name  string                 `yaml:"name"`
	Kind  string                 `yaml:"kind"`
	Board *detection.BoardConfig `yaml:"board,omitempty"`
	Color *detection.ColorConfig `yaml:"color,omitempty"`
}

// AgentConfig is the file form of agent.Config.
type AgentConfig struct {
	Mode            string `yaml:"mode"`
	SmoothingPeriod int    `yaml:"smoothing_period"`
	ResetOnSwitch   bool   `yaml:"reset_on_switch"`
}

// Agent converts to agent.Config.
func (a AgentConfig) Agent() (agent.Config, error) {
	mode, err := agent.ParseMode(a.Mode)
	if err != nil {
		return agent.Config{}, err
	}
	return agent.Config{
		Mode:            mode,
		SmoothingPeriod: a.SmoothingPeriod,
		ResetOnSwitch:   a.ResetOnSwitch,
	}, nil
}

// Config is the full padtrack configuration.
type Config struct {
	LogLevel    string           `yaml:"log_level"`
	Camera      camera.Config    `yaml:"camera"`
	Calibration pose.Calibration `yaml:"calibration"`
	Agent       AgentConfig      `yaml:"agent"`
	Trackers    []TrackerConfig  `yaml:"trackers"`
	Web         web.Config       `yaml:"web"`
	Pipeline    pipeline.Config  `yaml:"pipeline"`
}

// Default returns the flight configuration: the small board, then the
// large board, then the colour fallback, selected greedily.
func Default() Config {
	ac := agent.DefaultConfig()
	small, large, color := detection.DefaultSmallBoard(), detection.DefaultLargeBoard(), detection.DefaultColor()

	return Config{
		LogLevel:    "info",
		Camera:      camera.DefaultConfig(),
		Calibration: pose.DefaultCalibration(),
		Agent: AgentConfig{
			Mode:            ac.Mode.String(),
			SmoothingPeriod: ac.SmoothingPeriod,
			ResetOnSwitch:   ac.ResetOnSwitch,
		},
		Trackers: []TrackerConfig{
			{Name: "small-board", Kind: KindBoard, Board: &small},
			{Name: "large-board", Kind: KindBoard, Board: &large},
			{Name: "color", Kind: KindColor, Color: &color},
		},
		Web:      web.DefaultConfig(),
		Pipeline: pipeline.DefaultConfig(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path loads the defaults only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// Parse decodes YAML over the defaults. A trackers list in data replaces
// the default list.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UnmarshalYAML fills the parameters of a board or colour tracker from
// the defaults before decoding, so a file only lists what it changes.
func (t *TrackerConfig) UnmarshalYAML(node *yaml.Node) error {
	var head struct {
		Kind string `yaml:"kind"`
	}
	if err := node.Decode(&head); err != nil {
		return err
	}
	kind := strings.ToLower(strings.TrimSpace(head.Kind))

	type plain TrackerConfig
	p := plain{}
	switch kind {
	case KindBoard:
		b := detection.DefaultSmallBoard()
		p.Board = &b
	case KindColor:
		c := detection.DefaultColor()
		p.Color = &c
	}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = TrackerConfig(p)
	t.Kind = kind
	return nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvCamera); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv(EnvStreamURL); v != "" {
		c.Camera.StreamURL = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Web.Port = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	var errs []error

	if err := c.Calibration.Validate(); err != nil {
		errs = append(errs, err)
	}
	if ac, err := c.Agent.Agent(); err != nil {
		errs = append(errs, err)
	} else if err := ac.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Pipeline.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Web.Port == "" {
		errs = append(errs, errors.New("config: web port is required"))
	}

	if len(c.Trackers) == 0 {
		errs = append(errs, errors.New("config: at least one tracker is required"))
	}
	seen := make(map[string]bool, len(c.Trackers))
	for i, t := range c.Trackers {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("config: tracker %d has no name", i))
		} else if seen[t.Name] {
			errs = append(errs, fmt.Errorf("config: duplicate tracker name %q", t.Name))
		}
		seen[t.Name] = true

		switch t.Kind {
		case KindBoard:
			if t.Board == nil {
				errs = append(errs, fmt.Errorf("config: tracker %q: missing board parameters", t.Name))
			} else if err := t.Board.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("config: tracker %q: %w", t.Name, err))
			}
		case KindColor:
			if t.Color == nil {
				errs = append(errs, fmt.Errorf("config: tracker %q: missing colour parameters", t.Name))
			} else if err := t.Color.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("config: tracker %q: %w", t.Name, err))
			}
		default:
			errs = append(errs, fmt.Errorf("config: tracker %q: unknown kind %q", t.Name, t.Kind))
		}
	}
	return errors.Join(errs...)
}
