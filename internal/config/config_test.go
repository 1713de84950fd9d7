package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-padtrack/pkg/agent"
	"github.com/teslashibe/go-padtrack/pkg/detection"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	names := make([]string, len(cfg.Trackers))
	for i, tr := range cfg.Trackers {
		names[i] = tr.Name
	}
	assert.Equal(t, []string{"small-board", "large-board", "color"}, names)
	assert.Equal(t, 4, cfg.Trackers[1].Board.Dictionary)

	ac, err := cfg.Agent.Agent()
	require.NoError(t, err)
	assert.Equal(t, agent.DefaultConfig(), ac)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log_level: debug
agent:
  mode: priority
  smoothing_period: 5
  reset_on_switch: true
camera:
  stream_url: ws://bridge:9000/frames
trackers:
  - name: pad
    kind: Board
    board:
      marker_length: 20
      marker_separation: 5
      markers_x: 3
      markers_y: 3
      dictionary: 2
  - name: orange
    kind: color
web:
  prefix: drone7
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ws://bridge:9000/frames", cfg.Camera.StreamURL)
	assert.Equal(t, "0", cfg.Camera.Device, "unset fields keep defaults")
	assert.Equal(t, "drone7", cfg.Web.Prefix)
	assert.Equal(t, "8090", cfg.Web.Port)

	ac, err := cfg.Agent.Agent()
	require.NoError(t, err)
	assert.Equal(t, agent.ModePriority, ac.Mode)
	assert.Equal(t, 5, ac.SmoothingPeriod)
	assert.True(t, ac.ResetOnSwitch)

	require.Len(t, cfg.Trackers, 2)
	assert.Equal(t, KindBoard, cfg.Trackers[0].Kind)
	assert.Equal(t, 3, cfg.Trackers[0].Board.MarkersX)
	assert.Equal(t, 1, cfg.Trackers[0].Board.MinMarkers, "omitted board fields keep defaults")
	assert.Equal(t, detection.DefaultColor(), *cfg.Trackers[1].Color)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Agent.Mode = "random" }},
		{"zero period", func(c *Config) { c.Agent.SmoothingPeriod = 0 }},
		{"no trackers", func(c *Config) { c.Trackers = nil }},
		{"duplicate names", func(c *Config) { c.Trackers[1].Name = c.Trackers[0].Name }},
		{"unknown kind", func(c *Config) { c.Trackers[2].Kind = "lidar" }},
		{"missing board", func(c *Config) { c.Trackers[0].Board = nil }},
		{"bad calibration", func(c *Config) { c.Calibration.Fx = 0 }},
		{"no port", func(c *Config) { c.Web.Port = "" }},
		{"bad scale", func(c *Config) { c.Pipeline.LinearScale = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padtrack.yaml")
	require.NoError(t, os.WriteFile(path, []byte("web:\n  port: \"9100\"\n"), 0o644))

	t.Setenv(EnvCamera, "/dev/video2")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Web.Port)
	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, "warn", cfg.LogLevel)

	t.Setenv(EnvPort, "9200")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Web.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("agent: [unclosed"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}
