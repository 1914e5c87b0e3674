// Package target provides the remote command-execution capability the
// frame collectors sample through, plus the adb-backed implementation.
package target

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/solarblue/frametrics/internal/errors"
)

// Executor is the remote command channel: run one shell command on the
// target and return its text output. Implementations classify transport
// faults as ErrTargetUnresponsive or ErrTargetTimeout; everything else is
// an ordinary execution error.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// AdbExecutor runs commands on an Android device through the adb binary.
type AdbExecutor struct {
	// Serial selects the device when more than one is attached. Empty
	// means whatever adb picks by default.
	Serial string
	// AdbPath overrides the adb binary location. Empty means "adb" on PATH.
	AdbPath string
	// Timeout bounds a single command round trip. Zero disables the bound.
	Timeout time.Duration
}

// NewAdbExecutor creates an executor for the device with the given serial.
func NewAdbExecutor(serial string, timeout time.Duration) *AdbExecutor {
	return &AdbExecutor{Serial: serial, Timeout: timeout}
}

// Execute runs "adb [-s serial] shell <command>" and returns its combined
// output. Device-gone conditions map to ErrTargetUnresponsive, deadline
// expiry to ErrTargetTimeout.
func (e *AdbExecutor) Execute(ctx context.Context, command string) (string, error) {
	adb := e.AdbPath
	if adb == "" {
		adb = "adb"
	}

	args := make([]string, 0, 4)
	if e.Serial != "" {
		args = append(args, "-s", e.Serial)
	}
	args = append(args, "shell", command)

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, adb, args...)
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err == nil {
		return output, nil
	}

	slog.Debug("adb command failed", "command", command, "error", err, "output", output)
	return output, errors.ExecError{
		Command:    command,
		Output:     strings.TrimSpace(output),
		Underlying: classify(ctx, err, output),
	}
}

// classify maps an adb failure onto the fault taxonomy.
func classify(ctx context.Context, err error, output string) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.ErrTargetTimeout
	}
	for _, marker := range []string{
		"device offline",
		"device unauthorized",
		"no devices/emulators found",
		"error: closed",
	} {
		if strings.Contains(output, marker) {
			return errors.ErrTargetUnresponsive
		}
	}
	if strings.Contains(output, "device") && strings.Contains(output, "not found") {
		return errors.ErrTargetUnresponsive
	}
	return err
}

// RateLimitedExecutor wraps an Executor with a token-bucket limit so a
// tight sampling period cannot flood the device's shell transport.
type RateLimitedExecutor struct {
	inner   Executor
	limiter *rate.Limiter
}

// NewRateLimitedExecutor creates a wrapper allowing rps commands per
// second with the given burst.
func NewRateLimitedExecutor(inner Executor, rps float64, burst int) *RateLimitedExecutor {
	return &RateLimitedExecutor{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Execute waits for limiter admission, then delegates.
func (e *RateLimitedExecutor) Execute(ctx context.Context, command string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return e.inner.Execute(ctx, command)
}

// Ping reports whether the target answers a trivial command. Used by the
// health checker.
func Ping(ctx context.Context, e Executor) error {
	_, err := e.Execute(ctx, "echo ok")
	return err
}
