// visionaid runs the alert coordination core: it watches the camera
// stream and the wearable's sensors, announces proximity and safety
// alerts, and serves the dashboard API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/visionaid/go-visionaid/internal/config"
	"github.com/visionaid/go-visionaid/internal/log"
	"github.com/visionaid/go-visionaid/pkg/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "visionaid:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// parseFlags loads config from the environment (and .env) and lets
// flags override the common knobs.
func parseFlags() (*config.Config, error) {
	cfg := config.Load()

	piURL := flag.String("pi-url", "", "sensor unit base URL (overrides PI_BASE_URL)")
	streamURL := flag.String("stream-url", "", "MJPEG stream URL (overrides STREAM_URL)")
	dbPath := flag.String("db", "", "SQLite database path (overrides DB_PATH)")
	port := flag.String("port", "", "dashboard API port (overrides API_PORT)")
	debug := flag.Bool("debug", false, "enable verbose debug logging")
	flag.Parse()

	if *piURL != "" {
		cfg.PiBaseURL = *piURL
	}
	if *streamURL != "" {
		cfg.StreamURL = *streamURL
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *port != "" {
		cfg.APIPort = *port
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
