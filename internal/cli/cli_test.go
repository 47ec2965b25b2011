package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/output"
	"cihelper.dev/cihelper/internal/pipeline"
	"cihelper.dev/cihelper/internal/runner"
	"cihelper.dev/cihelper/testhelpers"
)

// newTestContext builds a handler context bound to a scene, with console
// output captured in the returned buffer.
func newTestContext(t *testing.T, scene *testhelpers.Scene) (*Context, *bytes.Buffer) {
	t.Helper()

	config.Reset()
	t.Cleanup(config.Reset)

	var buf bytes.Buffer
	splog, err := output.NewSplogWithWriter(&buf)
	require.NoError(t, err)

	return &Context{
		Splog:  splog,
		Files:  pipeline.New(),
		Runner: runner.NewCommandRunner(scene.Dir),
		Ctx:    context.Background(),
		Dir:    scene.Dir,
	}, &buf
}
