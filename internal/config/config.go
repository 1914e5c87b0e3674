// Package config provides configuration management for frametrics.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/solarblue/frametrics/internal/types"
)

// Config holds all configuration settings for a frametrics run.
type Config struct {
	// Source selects the wire format: "surfaceflinger" or "gfxinfo".
	Source string `env:"FRAMETRICS_SOURCE" envDefault:"surfaceflinger"`
	// View is the SurfaceFlinger view to sample (latency-trace source).
	View string `env:"FRAMETRICS_VIEW"`
	// Package is the app package to sample (frame-statistics source).
	Package string `env:"FRAMETRICS_PACKAGE"`
	// Columns optionally projects the export onto these column names.
	Columns []string `env:"FRAMETRICS_COLUMNS" envSeparator:","`

	// DeviceSerial selects the adb device. Empty lets adb decide.
	DeviceSerial string `env:"FRAMETRICS_DEVICE_SERIAL"`
	// Period is the wall-clock wait between samples.
	Period time.Duration `env:"FRAMETRICS_PERIOD" envDefault:"2s"`
	// Duration bounds the recording session. Zero records until a signal.
	Duration time.Duration `env:"FRAMETRICS_DURATION"`
	// ExecTimeout bounds one remote command round trip.
	ExecTimeout time.Duration `env:"FRAMETRICS_EXEC_TIMEOUT" envDefault:"30s"`
	// ExecRPS caps remote commands per second; zero disables the limit.
	ExecRPS float64 `env:"FRAMETRICS_EXEC_RPS" envDefault:"10"`

	// Outfile receives the exported frame CSV.
	Outfile string `env:"FRAMETRICS_OUTFILE" envDefault:"frames.csv"`
	// KeepRaw preserves the raw capture next to the export as .raw.
	KeepRaw bool `env:"FRAMETRICS_KEEP_RAW" envDefault:"true"`
	// ClearBeforeRun resets the source's buffers before sampling starts.
	ClearBeforeRun bool `env:"FRAMETRICS_CLEAR" envDefault:"true"`

	// Port serves the observability endpoints.
	Port string `env:"PORT" envDefault:"9101"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat is text or json.
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Source = strings.ToLower(cfg.Source)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return cfg, nil
}

// Validate checks the configuration for consistency and required values.
func (cfg Config) Validate() error {
	if err := cfg.validateSource(); err != nil {
		return err
	}

	if err := cfg.validateTimings(); err != nil {
		return err
	}

	return cfg.validateLogSettings()
}

func (cfg Config) validateSource() error {
	switch cfg.Source {
	case "surfaceflinger":
		if cfg.View == "" {
			return fmt.Errorf("FRAMETRICS_VIEW required for the surfaceflinger source")
		}
		if _, err := types.NewViewName(cfg.View); err != nil {
			return fmt.Errorf("FRAMETRICS_VIEW: %w", err)
		}
	case "gfxinfo":
		if cfg.Package == "" {
			return fmt.Errorf("FRAMETRICS_PACKAGE required for the gfxinfo source")
		}
		if _, err := types.NewPackageName(cfg.Package); err != nil {
			return fmt.Errorf("FRAMETRICS_PACKAGE: %w", err)
		}
	default:
		return fmt.Errorf("invalid source: %s, valid options: [surfaceflinger gfxinfo]", cfg.Source)
	}

	if cfg.DeviceSerial != "" {
		if _, err := types.NewDeviceSerial(cfg.DeviceSerial); err != nil {
			return fmt.Errorf("FRAMETRICS_DEVICE_SERIAL: %w", err)
		}
	}

	for _, column := range cfg.Columns {
		if _, err := types.NewChannelName(column); err != nil {
			return fmt.Errorf("FRAMETRICS_COLUMNS: %w", err)
		}
	}
	return nil
}

func (cfg Config) validateTimings() error {
	if cfg.Period <= 0 {
		return fmt.Errorf("FRAMETRICS_PERIOD must be positive")
	}
	if cfg.Duration < 0 {
		return fmt.Errorf("FRAMETRICS_DURATION cannot be negative")
	}
	if cfg.ExecTimeout < 0 {
		return fmt.Errorf("FRAMETRICS_EXEC_TIMEOUT cannot be negative")
	}
	if cfg.ExecRPS < 0 {
		return fmt.Errorf("FRAMETRICS_EXEC_RPS cannot be negative")
	}
	return nil
}

func (cfg Config) validateLogSettings() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s, valid options: %v", cfg.LogLevel, validLogLevels)
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s, valid options: %v", cfg.LogFormat, validLogFormats)
	}
	return nil
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
