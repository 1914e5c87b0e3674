// Package errors provides error types and handling utilities for frametrics.
package errors

import (
	"errors"
	"fmt"
)

// Error constants for collector lifecycle misuse.
var (
	ErrAlreadyRunning = errors.New("collector is already running")
	ErrNotRunning     = errors.New("collector is not running")
	ErrStillRunning   = errors.New("collector is still running")
	ErrNotRun         = errors.New("attempting to process frames before running the collector")
)

// Error constants for fatal target communication faults. Any error that
// wraps one of these terminates a collection session.
var (
	ErrTargetUnresponsive = errors.New("target is not responding")
	ErrTargetTimeout      = errors.New("target operation timed out")
)

// IsFatal reports whether err is a communication fault that must end the
// collection session, as opposed to a per-record issue the parsers absorb.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTargetUnresponsive) || errors.Is(err, ErrTargetTimeout)
}

// WorkerError wraps an unexpected error raised inside a collector's
// background loop with the identity of the collector it came from.
type WorkerError struct {
	Collector  string
	Underlying error
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("collector %s worker failed: %v", e.Collector, e.Underlying)
}

func (e WorkerError) Unwrap() error {
	return e.Underlying
}

// ExecError represents a failed remote command execution.
type ExecError struct {
	Command    string
	Output     string
	Underlying error
}

func (e ExecError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("remote command %q failed: %v: %s", e.Command, e.Underlying, e.Output)
	}
	return fmt.Sprintf("remote command %q failed: %v", e.Command, e.Underlying)
}

func (e ExecError) Unwrap() error {
	return e.Underlying
}

// InvalidColumnError indicates a frame export requested a column that is
// not part of the session's header.
type InvalidColumnError struct {
	Column string
	Valid  []string
}

func (e InvalidColumnError) Error() string {
	return fmt.Sprintf("invalid column %q; must be in %v", e.Column, e.Valid)
}

// CorruptDumpError indicates a raw capture file whose trailing dump block
// could not be recovered.
type CorruptDumpError struct {
	Path string
}

func (e CorruptDumpError) Error() string {
	return fmt.Sprintf("%q appears to be corrupted", e.Path)
}
