// Package main provides the frametrics application entry point.
// Frametrics records per-frame rendering telemetry from an Android
// target over adb and exports it as CSV, with Prometheus metrics on the
// collection loop itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/solarblue/frametrics/internal/config"
	"github.com/solarblue/frametrics/internal/health"
	"github.com/solarblue/frametrics/internal/server"
	"github.com/solarblue/frametrics/internal/target"
	"github.com/solarblue/frametrics/pkg/instrument"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	level := slog.LevelInfo

	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
}

// performHealthCheck probes the local liveness endpoint, for use as a
// container health command.
func performHealthCheck() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	host := os.Getenv("HEALTH_CHECK_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("http://%s:%s/livez", host, cfg.Port)
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

func buildExecutor(cfg config.Config) target.Executor {
	var exec target.Executor = target.NewAdbExecutor(cfg.DeviceSerial, cfg.ExecTimeout)
	if cfg.ExecRPS > 0 {
		exec = target.NewRateLimitedExecutor(exec, cfg.ExecRPS, 1)
	}
	return exec
}

func buildInstrument(ctx context.Context, cfg config.Config, exec target.Executor) (*instrument.FramesInstrument, error) {
	switch cfg.Source {
	case "gfxinfo":
		return instrument.NewGfxinfoFrames(ctx, exec, cfg.Package, cfg.Period, cfg.KeepRaw)
	default:
		return instrument.NewSurfaceFlingerFrames(exec, cfg.View, cfg.Period, cfg.KeepRaw), nil
	}
}

// runSession records one frame-telemetry session and exports it. It
// returns once the configured duration elapses or ctx is cancelled.
func runSession(ctx context.Context, cfg config.Config, inst *instrument.FramesInstrument) error {
	if len(cfg.Columns) > 0 {
		inst.SelectChannels(cfg.Columns)
	}

	if cfg.ClearBeforeRun {
		if err := inst.Clear(ctx); err != nil {
			return fmt.Errorf("clearing source buffers: %w", err)
		}
	}

	if err := inst.Start(ctx); err != nil {
		return fmt.Errorf("starting collection: %w", err)
	}
	slog.Info("Recording started",
		"source", cfg.Source,
		"period", cfg.Period,
		"duration", cfg.Duration)

	if cfg.Duration > 0 {
		select {
		case <-time.After(cfg.Duration):
		case <-ctx.Done():
			slog.Info("Recording interrupted by signal")
		}
	} else {
		<-ctx.Done()
		slog.Info("Recording interrupted by signal")
	}

	stopErr := inst.Stop()
	if stopErr != nil {
		slog.Error("Collection stopped with error", "error", stopErr)
	}

	if err := inst.GetData(cfg.Outfile); err != nil {
		return fmt.Errorf("exporting frames: %w", err)
	}

	stats := inst.Stats()
	slog.Info("Frames exported",
		"outfile", cfg.Outfile,
		"raw", inst.GetRaw(),
		"dropped", stats.Dropped,
		"warnings", stats.Warnings)

	return stopErr
}

func main() {
	var showVersion bool
	var showHelp bool
	var healthCheck bool

	flag.BoolVar(&showVersion, "version", false, "show version information")
	flag.BoolVar(&showHelp, "help", false, "show help information")
	flag.BoolVar(&healthCheck, "health-check", false, "perform health check and exit")
	flag.Parse()

	if healthCheck {
		if err := performHealthCheck(); err != nil {
			slog.Error("Health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Health check passed")
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("frametrics %s (built: %s)\n", version, buildTime)

		if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("go version: %s\n", info.GoVersion)
		}

		os.Exit(0)
	}

	if showHelp {
		fmt.Printf("Frametrics - Android frame telemetry collector\n\n")
		fmt.Printf("Usage: frametrics [options]\n\n")
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nEnvironment variables:\n")
		fmt.Printf("  FRAMETRICS_SOURCE         Frame source: surfaceflinger, gfxinfo (default: surfaceflinger)\n")
		fmt.Printf("  FRAMETRICS_VIEW           SurfaceFlinger view to sample\n")
		fmt.Printf("  FRAMETRICS_PACKAGE        App package to sample (gfxinfo source)\n")
		fmt.Printf("  FRAMETRICS_COLUMNS        Comma-separated columns to export (empty = all)\n")
		fmt.Printf("  FRAMETRICS_DEVICE_SERIAL  adb device serial (empty = default device)\n")
		fmt.Printf("  FRAMETRICS_PERIOD         Wait between samples (default: 2s)\n")
		fmt.Printf("  FRAMETRICS_DURATION       Recording duration (0 = until signal)\n")
		fmt.Printf("  FRAMETRICS_OUTFILE        Export path (default: frames.csv)\n")
		fmt.Printf("  FRAMETRICS_KEEP_RAW       Preserve raw capture as <outfile>.raw (default: true)\n")
		fmt.Printf("  FRAMETRICS_CLEAR          Clear source buffers before sampling (default: true)\n")
		fmt.Printf("  PORT                      Observability server port (default: 9101)\n")
		fmt.Printf("  LOG_LEVEL                 Log level: debug, info, warn, error (default: info)\n")
		fmt.Printf("  LOG_FORMAT                Log format: text, json (default: text)\n")
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration loading failed", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	server.SetVersion(version, buildTime)

	slog.Info("Starting frametrics",
		"version", version,
		"build_time", buildTime,
		"source", cfg.Source,
		"log_level", cfg.LogLevel,
		"log_format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exec := buildExecutor(cfg)

	if err := target.Ping(ctx, exec); err != nil {
		slog.Error("Target unreachable", "error", err)
		os.Exit(1)
	}

	hc := health.NewHealthChecker()
	hc.RegisterComponent(health.NewTargetHealthChecker(exec))

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(serverCtx, cfg, hc)
	}()

	inst, err := buildInstrument(ctx, cfg, exec)
	if err != nil {
		slog.Error("Instrument setup failed", "error", err)
		cancelServer()
		<-serverDone
		os.Exit(1)
	}

	sessionErr := runSession(ctx, cfg, inst)

	cancelServer()
	if err := <-serverDone; err != nil {
		slog.Error("Observability server error", "error", err)
	}

	if sessionErr != nil {
		slog.Error("Shutdown with error", "error", sessionErr)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
