package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/coverage"
	"cihelper.dev/cihelper/internal/detect"
	"cihelper.dev/cihelper/internal/runner"
)

// relFrontendDir returns the configured frontend directory relative to the
// repository root.
func relFrontendDir() string {
	return config.GetString("frontend.dir", "frontend")
}

// frontendDir resolves the directory holding package.json: the configured
// subdirectory when it has one, otherwise the repository root itself.
func frontendDir(root string) string {
	sub := filepath.Join(root, relFrontendDir())
	if detect.HasFrontend(sub) {
		return sub
	}
	return root
}

// newFrontendInstallCmd creates the frontend-install command
func newFrontendInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frontend-install",
		Short: "Install frontend dependencies with the package manager the lockfile implies",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return frontendInstall(ctx)
		},
	}
}

func frontendInstall(ctx *Context) error {
	dir := frontendDir(ctx.Dir)
	if !detect.HasFrontend(dir) {
		ctx.Splog.Notice("no package.json; skipping frontend-install")
		return nil
	}

	pm, installArgs, ok := detect.PackageManager(dir)
	if !ok {
		return fmt.Errorf("package.json present in %s but no lockfile found", dir)
	}
	if err := runner.LookTool(pm, "required by the lockfile in "+dir); err != nil {
		return err
	}

	ctx.Splog.Group(fmt.Sprintf("%s %v", pm, installArgs))
	defer ctx.Splog.EndGroup()

	r := runner.NewCommandRunner(dir)
	return r.RunStreaming(ctx.Ctx, pm, installArgs...)
}

// newFrontendBuildCmd creates the frontend-build command
func newFrontendBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frontend-build",
		Short: "Run the frontend build script",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return runFrontendScript(ctx, "build", true)
		},
	}
}

// newFrontendTestCmd creates the frontend-test command
func newFrontendTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frontend-test",
		Short: "Run the frontend test script and enforce the coverage threshold",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return frontendTest(ctx)
		},
	}
}

func frontendTest(ctx *Context) error {
	if err := runFrontendScript(ctx, "test", true); err != nil {
		return err
	}

	dir := frontendDir(ctx.Dir)
	lcovPath := filepath.Join(dir, config.GetString("coverage.frontend.report", "coverage/lcov.info"))
	file, err := os.Open(lcovPath)
	if err != nil {
		ctx.Splog.Debug("no lcov trace at %s; skipping coverage check", lcovPath)
		return nil
	}
	defer file.Close()

	percent, err := coverage.ParseLCOV(file)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", lcovPath, err)
	}

	ctx.setOutput("frontend-coverage", fmt.Sprintf("%.2f", percent))
	ctx.appendSummary(fmt.Sprintf("**Frontend coverage:** %.2f%%", percent))
	ctx.Splog.Info("frontend coverage: %.2f%%", percent)

	return coverage.Enforce("frontend coverage", percent, config.GetFloat("coverage.frontend.min", 0))
}

// newFrontendLintCmd creates the frontend-lint command
func newFrontendLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "frontend-lint",
		Short: "Run the frontend lint script when the package defines one",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return runFrontendScript(ctx, "lint", false)
		},
	}
}

// runFrontendScript runs a package.json script via the detected package
// manager. When required is false a missing script is skipped with a notice.
func runFrontendScript(ctx *Context, script string, required bool) error {
	dir := frontendDir(ctx.Dir)
	if !detect.HasFrontend(dir) {
		ctx.Splog.Notice("no package.json; skipping frontend-%s", script)
		return nil
	}

	hasScript, err := packageHasScript(dir, script)
	if err != nil {
		return err
	}
	if !hasScript {
		if required {
			return fmt.Errorf("package.json in %s has no %q script", dir, script)
		}
		ctx.Splog.Notice("package.json has no %q script; skipping", script)
		return nil
	}

	pm, _, ok := detect.PackageManager(dir)
	if !ok {
		pm = "npm"
	}
	if err := runner.LookTool(pm, "required to run the "+script+" script"); err != nil {
		return err
	}

	ctx.Splog.Group(fmt.Sprintf("%s run %s", pm, script))
	defer ctx.Splog.EndGroup()

	r := runner.NewCommandRunner(dir)
	return r.RunStreaming(ctx.Ctx, pm, "run", script)
}

// packageHasScript reports whether package.json declares the named script
func packageHasScript(dir, script string) (bool, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false, fmt.Errorf("failed to read package.json: %w", err)
	}
	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false, fmt.Errorf("failed to parse package.json: %w", err)
	}
	_, ok := manifest.Scripts[script]
	return ok, nil
}
