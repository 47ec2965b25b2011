// Package runner handles execution of the external command-line tools the
// helper wraps (build toolchains, package managers, linters, container engines).
package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	cierrors "cihelper.dev/cihelper/internal/errors"
)

// DefaultCommandTimeout is the default timeout for wrapped tool invocations.
// Build and test commands can legitimately run for a long time.
const DefaultCommandTimeout = 30 * time.Minute

// CommandRunner handles execution of external commands
type CommandRunner struct {
	workingDir string
	extraEnv   []string
}

// NewCommandRunner creates a new CommandRunner rooted at workingDir
func NewCommandRunner(workingDir string) *CommandRunner {
	return &CommandRunner{workingDir: workingDir}
}

// SetWorkingDir sets the working directory for subsequent commands
func (r *CommandRunner) SetWorkingDir(dir string) {
	r.workingDir = dir
}

// GetWorkingDir returns the current working directory setting
func (r *CommandRunner) GetWorkingDir() string {
	return r.workingDir
}

// SetEnv appends KEY=VALUE pairs to the environment of subsequent commands
func (r *CommandRunner) SetEnv(env []string) {
	r.extraEnv = env
}

// LookTool reports whether the named tool is on PATH, returning a
// ToolNotFoundError when it is not.
func LookTool(name, hint string) error {
	if _, err := exec.LookPath(name); err != nil {
		return cierrors.NewToolNotFoundError(name, hint)
	}
	return nil
}

// Run executes a command, captures its output, and returns trimmed stdout.
// A non-zero exit produces a CommandError carrying both streams.
func (r *CommandRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.runInternal(ctx, "", name, args...)
}

// RunWithInput executes a command with the given stdin and returns trimmed stdout
func (r *CommandRunner) RunWithInput(ctx context.Context, input, name string, args ...string) (string, error) {
	return r.runInternal(ctx, input, name, args...)
}

// RunLines executes a command and returns stdout split into lines
func (r *CommandRunner) RunLines(ctx context.Context, name string, args ...string) ([]string, error) {
	output, err := r.Run(ctx, name, args...)
	if err != nil {
		return nil, err
	}
	if output == "" {
		return []string{}, nil
	}
	return strings.Split(output, "\n"), nil
}

// RunStreaming executes a command with stdout/stderr connected to the
// helper's own streams. Used for build tools whose output belongs in the
// step log rather than in a captured buffer.
func (r *CommandRunner) RunStreaming(ctx context.Context, name string, args ...string) error {
	ctx, cancel := ensureDeadline(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.extraEnv) > 0 {
		cmd.Env = append(os.Environ(), r.extraEnv...)
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return cierrors.NewCommandError(name, args, "", "", err)
	}
	return nil
}

func (r *CommandRunner) runInternal(ctx context.Context, input string, name string, args ...string) (string, error) {
	ctx, cancel := ensureDeadline(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if r.workingDir != "" {
		cmd.Dir = r.workingDir
	}
	if len(r.extraEnv) > 0 {
		cmd.Env = append(os.Environ(), r.extraEnv...)
	}
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", cierrors.NewCommandError(name, args, stdout.String(), stderr.String(), ctx.Err())
		}
		return "", cierrors.NewCommandError(name, args, stdout.String(), stderr.String(), err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

func ensureDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultCommandTimeout)
}
