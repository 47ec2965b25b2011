package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/coverage"
	"cihelper.dev/cihelper/internal/detect"
	"cihelper.dev/cihelper/internal/runner"
)

// newGoBuildCmd creates the go-build command
func newGoBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "go-build",
		Short: "Build all Go packages",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return goBuild(ctx)
		},
	}
}

func goBuild(ctx *Context) error {
	if !detect.HasGoModule(ctx.Dir) {
		ctx.Splog.Notice("no go.mod; skipping go-build")
		return nil
	}
	if err := runner.LookTool("go", "install the Go toolchain"); err != nil {
		return err
	}

	ctx.Splog.Group("go build ./...")
	defer ctx.Splog.EndGroup()

	return ctx.Runner.RunStreaming(ctx.Ctx, "go", "build", "./...")
}

// newGoTestCmd creates the go-test command
func newGoTestCmd() *cobra.Command {
	var coverProfile string

	cmd := &cobra.Command{
		Use:   "go-test",
		Short: "Run Go tests with coverage and enforce the configured threshold",
		Long: `Run Go tests with coverage and enforce the configured threshold.

The coverage profile is summarized with "go tool cover -func"; the total
percentage is written as the go-coverage output and the build fails when it
is below the coverage.go.min config value.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return goTest(ctx, coverProfile)
		},
	}

	cmd.Flags().StringVar(&coverProfile, "coverprofile", "coverage.out", "Where to write the coverage profile, relative to the repository root.")

	return cmd
}

func goTest(ctx *Context, coverProfile string) error {
	if !detect.HasGoModule(ctx.Dir) {
		ctx.Splog.Notice("no go.mod; skipping go-test")
		return nil
	}
	if err := runner.LookTool("go", "install the Go toolchain"); err != nil {
		return err
	}

	args := []string{"test", "./...", "-covermode=atomic", "-coverprofile=" + coverProfile}
	if config.GetBool("test.race", false) {
		args = append(args, "-race")
	}

	ctx.Splog.Group("go " + strings.Join(args, " "))
	err := ctx.Runner.RunStreaming(ctx.Ctx, "go", args...)
	ctx.Splog.EndGroup()
	if err != nil {
		return err
	}

	if _, err := os.Stat(filepath.Join(ctx.Dir, coverProfile)); err != nil {
		ctx.Splog.Warn("no coverage profile at %s; skipping coverage check", coverProfile)
		return nil
	}

	report, err := ctx.Runner.Run(ctx.Ctx, "go", "tool", "cover", "-func="+coverProfile)
	if err != nil {
		return err
	}
	percent, err := coverage.ParseGoFunc(report)
	if err != nil {
		return fmt.Errorf("failed to parse coverage report: %w", err)
	}

	ctx.setOutput("go-coverage", fmt.Sprintf("%.1f", percent))
	ctx.appendSummary(fmt.Sprintf("**Go coverage:** %.1f%%", percent))
	ctx.Splog.Info("go coverage: %.1f%%", percent)

	return coverage.Enforce("go coverage", percent, config.GetFloat("coverage.go.min", 0))
}

// newGoLintCmd creates the go-lint command
func newGoLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "go-lint",
		Short: "Run golangci-lint when the repository carries its config",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return goLint(ctx)
		},
	}
}

func goLint(ctx *Context) error {
	if !detect.HasGoModule(ctx.Dir) {
		ctx.Splog.Notice("no go.mod; skipping go-lint")
		return nil
	}
	if !hasGolangciConfig(ctx.Dir) {
		ctx.Splog.Notice("no golangci-lint config; skipping go-lint")
		return nil
	}

	if err := runner.LookTool("golangci-lint", "see https://golangci-lint.run/usage/install/"); err != nil {
		if config.GetBool("lint.required", false) {
			return err
		}
		ctx.Splog.Warn("%v; skipping go-lint", err)
		return nil
	}

	ctx.Splog.Group("golangci-lint run")
	defer ctx.Splog.EndGroup()

	return ctx.Runner.RunStreaming(ctx.Ctx, "golangci-lint", "run")
}

func hasGolangciConfig(dir string) bool {
	for _, name := range []string{".golangci.yml", ".golangci.yaml", ".golangci.toml", ".golangci.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
