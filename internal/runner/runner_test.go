package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	cierrors "cihelper.dev/cihelper/internal/errors"
)

// installFakeTool writes an executable shell script and prepends its
// directory to PATH.
func installFakeTool(t *testing.T, name, body string) {
	t.Helper()
	dir := t.TempDir()
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRun(t *testing.T) {
	t.Run("captures and trims stdout", func(t *testing.T) {
		installFakeTool(t, "fakecov", `printf '  total: 81.5%%  \n'`)

		r := NewCommandRunner("")
		out, err := r.Run(context.Background(), "fakecov")
		require.NoError(t, err)
		require.Equal(t, "total: 81.5%", out)
	})

	t.Run("non-zero exit produces a CommandError with both streams", func(t *testing.T) {
		installFakeTool(t, "failing", "echo partial; echo boom >&2; exit 3")

		r := NewCommandRunner("")
		_, err := r.Run(context.Background(), "failing", "--flag")

		var cmdErr *cierrors.CommandError
		require.ErrorAs(t, err, &cmdErr)
		require.Equal(t, "failing", cmdErr.Command)
		require.Equal(t, []string{"--flag"}, cmdErr.Args)
		require.Contains(t, cmdErr.Stdout, "partial")
		require.Contains(t, cmdErr.Stderr, "boom")
	})

	t.Run("respects the working directory", func(t *testing.T) {
		installFakeTool(t, "where", "pwd")
		dir := t.TempDir()

		r := NewCommandRunner(dir)
		out, err := r.Run(context.Background(), "where")
		require.NoError(t, err)
		resolved, _ := filepath.EvalSymlinks(dir)
		got, _ := filepath.EvalSymlinks(out)
		require.Equal(t, resolved, got)
	})

	t.Run("passes extra environment", func(t *testing.T) {
		installFakeTool(t, "printenvvar", `printf '%s' "$CIHELPER_TEST_VALUE"`)

		r := NewCommandRunner("")
		r.SetEnv([]string{"CIHELPER_TEST_VALUE=42"})
		out, err := r.Run(context.Background(), "printenvvar")
		require.NoError(t, err)
		require.Equal(t, "42", out)
	})
}

func TestRunLines(t *testing.T) {
	installFakeTool(t, "lister", "echo a.go; echo b.go")

	r := NewCommandRunner("")
	lines, err := r.RunLines(context.Background(), "lister")
	require.NoError(t, err)
	require.Equal(t, []string{"a.go", "b.go"}, lines)
}

func TestRunWithInput(t *testing.T) {
	installFakeTool(t, "upper", "tr a-z A-Z")

	r := NewCommandRunner("")
	out, err := r.RunWithInput(context.Background(), "hello", "upper")
	require.NoError(t, err)
	require.Equal(t, "HELLO", out)
}

func TestLookTool(t *testing.T) {
	t.Run("present tool passes", func(t *testing.T) {
		installFakeTool(t, "present", "true")
		require.NoError(t, LookTool("present", ""))
	})

	t.Run("missing tool returns ToolNotFoundError", func(t *testing.T) {
		err := LookTool("definitely-not-installed-tool", "install it")
		require.ErrorIs(t, err, cierrors.ErrToolNotFound)
		require.Contains(t, err.Error(), "definitely-not-installed-tool")
		require.Contains(t, err.Error(), "install it")
	})
}
