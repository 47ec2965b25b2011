// Package cli wires the cihelper sub-commands. Each handler is independently
// invokable: it reads its inputs from the environment and the config blob,
// probes the filesystem, shells out to the tool it wraps, and reports through
// the pipeline files.
package cli

import (
	"context"
	"os"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/output"
	"cihelper.dev/cihelper/internal/pipeline"
	"cihelper.dev/cihelper/internal/runner"
)

// Context carries the collaborators every handler needs
type Context struct {
	Splog  *output.Splog
	Files  *pipeline.Files
	Runner *runner.CommandRunner

	// Ctx bounds the handler's external commands and API calls
	Ctx context.Context

	// Dir is the repository root the handler operates in
	Dir string
}

// newContext builds a handler context rooted at dir ("." when empty)
func newContext(dir string) *Context {
	if dir == "" {
		dir = "."
	}
	splog := output.NewSplog()
	if err := config.Problem(); err != nil {
		splog.Warn("%v; continuing with defaults", err)
	}
	return &Context{
		Splog:  splog,
		Files:  pipeline.New(),
		Runner: runner.NewCommandRunner(dir),
		Ctx:    context.Background(),
		Dir:    dir,
	}
}

// setOutput writes a step output, downgrading write failures to warnings so
// a broken output file does not mask the handler's real result.
func (c *Context) setOutput(key, value string) {
	if err := c.Files.SetOutput(key, value); err != nil {
		c.Splog.Warn("failed to write output %s: %v", key, err)
	}
}

// exportEnv exports a variable to later pipeline steps, downgrading failures
// to warnings.
func (c *Context) exportEnv(key, value string) {
	if err := c.Files.ExportEnv(key, value); err != nil {
		c.Splog.Warn("failed to export %s: %v", key, err)
	}
}

// appendSummary writes a summary fragment, downgrading failures to warnings
func (c *Context) appendSummary(markdown string) {
	if err := c.Files.AppendSummary(markdown); err != nil {
		c.Splog.Warn("failed to write step summary: %v", err)
	}
}

// envOr returns the environment variable's value, or def when unset
func envOr(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}
