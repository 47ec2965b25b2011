// Package pipeline writes step results to the files the automation platform
// provides: GITHUB_OUTPUT for step outputs, GITHUB_ENV for exported variables,
// and GITHUB_STEP_SUMMARY for the human-readable run summary.
// All writes are append-only; the platform owns the files.
package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Environment variable names provided by the platform
const (
	OutputEnvVar  = "GITHUB_OUTPUT"
	ExportEnvVar  = "GITHUB_ENV"
	SummaryEnvVar = "GITHUB_STEP_SUMMARY"
)

// Files appends key/value pairs and summary fragments to the pipeline files
type Files struct {
	outputPath  string
	exportPath  string
	summaryPath string

	// fallback receives summary fragments when GITHUB_STEP_SUMMARY is unset
	fallback io.Writer
}

// New creates a Files bound to the paths in the process environment.
// Missing variables are tolerated: outputs and exports become no-ops and
// summary fragments fall back to stdout.
func New() *Files {
	return &Files{
		outputPath:  os.Getenv(OutputEnvVar),
		exportPath:  os.Getenv(ExportEnvVar),
		summaryPath: os.Getenv(SummaryEnvVar),
		fallback:    os.Stdout,
	}
}

// SetOutput appends key=value to the step output file.
// Multiline values use the platform's heredoc form with a random delimiter.
func (f *Files) SetOutput(key, value string) error {
	if f.outputPath == "" {
		return nil
	}
	return appendKeyValue(f.outputPath, key, value)
}

// ExportEnv appends key=value to the environment file for later steps
func (f *Files) ExportEnv(key, value string) error {
	if f.exportPath == "" {
		return nil
	}
	return appendKeyValue(f.exportPath, key, value)
}

// AppendSummary appends a markdown fragment to the step summary.
// A trailing newline is added when missing.
func (f *Files) AppendSummary(markdown string) error {
	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}
	if f.summaryPath == "" {
		_, err := io.WriteString(f.fallback, markdown)
		return err
	}
	file, err := os.OpenFile(f.summaryPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open summary file: %w", err)
	}
	defer file.Close()

	_, err = io.WriteString(file, markdown)
	return err
}

// HasOutputFile reports whether a step output file is configured
func (f *Files) HasOutputFile() bool {
	return f.outputPath != ""
}

func appendKeyValue(path, key, value string) error {
	if key == "" {
		return fmt.Errorf("output key must not be empty")
	}
	if strings.ContainsAny(key, "=\n") {
		return fmt.Errorf("invalid output key %q", key)
	}

	line, err := formatKeyValue(key, value)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open pipeline file: %w", err)
	}
	defer file.Close()

	_, err = io.WriteString(file, line)
	return err
}

func formatKeyValue(key, value string) (string, error) {
	if !strings.Contains(value, "\n") {
		return fmt.Sprintf("%s=%s\n", key, value), nil
	}

	delimiter, err := randomDelimiter()
	if err != nil {
		return "", err
	}
	if strings.Contains(value, delimiter) {
		return "", fmt.Errorf("value for %q contains the generated delimiter", key)
	}
	return fmt.Sprintf("%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter), nil
}

func randomDelimiter() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate delimiter: %w", err)
	}
	return "ghadelimiter_" + hex.EncodeToString(buf), nil
}
