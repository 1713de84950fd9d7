// padtrack - landing-pad pose tracker
//
// Reads camera frames, estimates the pad pose with every configured
// tracker, keeps the best one and publishes the smoothed pose over
// websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-padtrack/internal/config"
	"github.com/teslashibe/go-padtrack/internal/httpc"
	"github.com/teslashibe/go-padtrack/internal/log"
	"github.com/teslashibe/go-padtrack/pkg/padtrack"
)

func main() {
	cfg, healthcheck := parseFlags()

	if healthcheck {
		os.Exit(checkHealth(cfg))
	}

	log.Init(cfg.LogLevel)
	logger := log.Component("main")

	app, err := padtrack.New(cfg)
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	logger.Info("padtrack starting",
		"mode", cfg.Agent.Mode,
		"smoothing_period", cfg.Agent.SmoothingPeriod,
		"trackers", len(cfg.Trackers),
		"port", cfg.Web.Port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		logger.Error("initialization failed", "error", err)
		app.Shutdown()
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	if err := app.Shutdown(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	if runErr != nil {
		logger.Error("runtime error", "error", runErr)
		os.Exit(1)
	}
}

// parseFlags loads the config file and applies flag overrides on top.
func parseFlags() (config.Config, bool) {
	path := flag.String("config", "", "YAML config file (defaults are used when empty)")
	device := flag.String("camera", "", "Capture device index or path; empty string disables")
	stream := flag.String("stream", "", "WebSocket frame bridge URL (takes precedence over -camera)")
	port := flag.String("port", "", "HTTP/WebSocket port")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	mode := flag.String("mode", "", "Tracker selection: greedy or priority")
	reset := flag.Bool("reset-on-switch", false, "Clear smoothing when the active tracker changes")
	healthcheck := flag.Bool("healthcheck", false, "CheckHealth a running tracker's /api/health and exit")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "padtrack: %v\n", err)
		os.Exit(2)
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.Camera.Device = *device
		case "stream":
			cfg.Camera.StreamURL = *stream
		case "port":
			cfg.Web.Port = *port
		case "mode":
			cfg.Agent.Mode = *mode
		case "reset-on-switch":
			cfg.Agent.ResetOnSwitch = *reset
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}
	return cfg, *healthcheck
}

func checkHealth(cfg config.Config) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://127.0.0.1:%s/api/health", cfg.Web.Port)
	if err := httpc.CheckHealth(ctx, url); err != nil {
		fmt.Fprintf(os.Stderr, "unhealthy: %v\n", err)
		return 1
	}
	return 0
}
