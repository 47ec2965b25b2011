package testhelpers

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// ToolBin manages a directory of fake tool executables placed at the front
// of PATH, so handlers exercise their real subprocess plumbing without the
// wrapped tools installed.
type ToolBin struct {
	Dir string
}

// NewToolBin creates the fake tool directory and prepends it to PATH for the
// duration of the test.
func NewToolBin(t *testing.T) *ToolBin {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return &ToolBin{Dir: dir}
}

// Install writes a fake tool that runs the given shell body.
// The body sees the original arguments in "$@".
func (b *ToolBin) Install(t *testing.T, name, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\n"
	path := filepath.Join(b.Dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to install fake %s: %v", name, err)
	}
}

// InstallExiting writes a fake tool that prints stdout and exits with code
func (b *ToolBin) InstallExiting(t *testing.T, name, stdout string, code int) {
	t.Helper()
	body := ""
	if stdout != "" {
		body = "cat <<'FAKE_EOF'\n" + stdout + "\nFAKE_EOF\n"
	}
	if code != 0 {
		body += "exit " + strconv.Itoa(code)
	}
	b.Install(t, name, body)
}

// InstallRecording writes a fake tool that appends its arguments to logFile,
// one invocation per line, and exits zero.
func (b *ToolBin) InstallRecording(t *testing.T, name, logFile string) {
	t.Helper()
	b.Install(t, name, `echo "$@" >> `+logFile)
}
