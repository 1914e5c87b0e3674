package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"unresponsive", ErrTargetUnresponsive, true},
		{"timeout", ErrTargetTimeout, true},
		{"wrapped unresponsive", fmt.Errorf("exec: %w", ErrTargetUnresponsive), true},
		{"wrapped timeout", ExecError{Command: "dumpsys", Underlying: ErrTargetTimeout}, true},
		{"plain error", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.fatal)
			}
		})
	}
}

func TestWorkerError(t *testing.T) {
	underlying := errors.New("parse exploded")
	err := WorkerError{Collector: "surfaceflinger", Underlying: underlying}

	if !strings.Contains(err.Error(), "surfaceflinger") {
		t.Errorf("Error() should name the collector, got %q", err.Error())
	}

	if !errors.Is(err, underlying) {
		t.Error("WorkerError should unwrap to the underlying error")
	}
}

func TestExecError(t *testing.T) {
	err := ExecError{
		Command:    "dumpsys SurfaceFlinger --list",
		Output:     "error: device offline",
		Underlying: ErrTargetUnresponsive,
	}

	if !strings.Contains(err.Error(), "dumpsys SurfaceFlinger --list") {
		t.Errorf("Error() should include the command, got %q", err.Error())
	}

	if !IsFatal(err) {
		t.Error("ExecError wrapping ErrTargetUnresponsive should be fatal")
	}
}

func TestInvalidColumnError(t *testing.T) {
	err := InvalidColumnError{Column: "B", Valid: []string{"A", "C"}}

	msg := err.Error()
	if !strings.Contains(msg, `"B"`) || !strings.Contains(msg, "A") {
		t.Errorf("Error() should name the column and the valid set, got %q", msg)
	}
}

func TestCorruptDumpError(t *testing.T) {
	err := CorruptDumpError{Path: "/tmp/capture.raw"}
	if !strings.Contains(err.Error(), "/tmp/capture.raw") {
		t.Errorf("Error() should include the path, got %q", err.Error())
	}
}
