// Package errors provides sentinel errors and custom error types for the cihelper application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// ErrToolNotFound indicates that a required external tool is not on PATH
	ErrToolNotFound = errors.New("tool not found")

	// ErrBelowThreshold indicates that a parsed metric is below its configured minimum
	ErrBelowThreshold = errors.New("below threshold")

	// ErrChecksFailed indicates that at least one CI check concluded unsuccessfully
	ErrChecksFailed = errors.New("checks failed")

	// ErrChecksTimeout indicates that the check polling attempt budget was exhausted
	ErrChecksTimeout = errors.New("checks still pending after attempt budget")
)

// ToolNotFoundError represents an error when an external tool is missing from PATH
type ToolNotFoundError struct {
	Tool string
	Hint string
}

func (e *ToolNotFoundError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s not found on PATH (%s)", e.Tool, e.Hint)
	}
	return fmt.Sprintf("%s not found on PATH", e.Tool)
}

// Is returns true if the target error is ErrToolNotFound
func (e *ToolNotFoundError) Is(target error) bool {
	return target == ErrToolNotFound
}

// NewToolNotFoundError creates a new ToolNotFoundError
func NewToolNotFoundError(tool, hint string) *ToolNotFoundError {
	return &ToolNotFoundError{Tool: tool, Hint: hint}
}

// ThresholdError represents a metric that came in under its configured minimum
type ThresholdError struct {
	Metric  string
	Actual  float64
	Minimum float64
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("%s is %.2f%%, below the required minimum of %.2f%%", e.Metric, e.Actual, e.Minimum)
}

// Is returns true if the target error is ErrBelowThreshold
func (e *ThresholdError) Is(target error) bool {
	return target == ErrBelowThreshold
}

// NewThresholdError creates a new ThresholdError
func NewThresholdError(metric string, actual, minimum float64) *ThresholdError {
	return &ThresholdError{Metric: metric, Actual: actual, Minimum: minimum}
}

// CommandError represents an error from an external command execution
type CommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command failed: %s", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}

// ChecksFailedError reports the CI checks that concluded unsuccessfully
type ChecksFailedError struct {
	Ref    string
	Failed []string
}

func (e *ChecksFailedError) Error() string {
	return fmt.Sprintf("%d check(s) failed for %s: %v", len(e.Failed), e.Ref, e.Failed)
}

// Is returns true if the target error is ErrChecksFailed
func (e *ChecksFailedError) Is(target error) bool {
	return target == ErrChecksFailed
}

// NewChecksFailedError creates a new ChecksFailedError
func NewChecksFailedError(ref string, failed []string) *ChecksFailedError {
	return &ChecksFailedError{Ref: ref, Failed: failed}
}
