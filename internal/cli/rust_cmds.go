package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/coverage"
	"cihelper.dev/cihelper/internal/detect"
	"cihelper.dev/cihelper/internal/runner"
)

// newRustClippyCmd creates the rust-clippy command
func newRustClippyCmd() *cobra.Command {
	var crate string

	cmd := &cobra.Command{
		Use:   "rust-clippy",
		Short: "Run clippy with warnings promoted to errors",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return rustClippy(ctx, crate)
		},
	}

	cmd.Flags().StringVar(&crate, "crate", "", "Restrict clippy to a single workspace crate.")

	return cmd
}

func rustClippy(ctx *Context, crate string) error {
	if !detect.HasRust(ctx.Dir) {
		ctx.Splog.Notice("no Cargo.toml; skipping rust-clippy")
		return nil
	}
	if err := runner.LookTool("cargo", "install the Rust toolchain"); err != nil {
		return err
	}

	args := []string{"clippy", "--all-targets", "--all-features"}
	if crate != "" {
		args = append(args, "-p", crate)
	}
	args = append(args, "--", "-D", "warnings")

	ctx.Splog.Group("cargo clippy")
	defer ctx.Splog.EndGroup()

	return ctx.Runner.RunStreaming(ctx.Ctx, "cargo", args...)
}

// newRustTestCmd creates the rust-test command
func newRustTestCmd() *cobra.Command {
	var crate string

	cmd := &cobra.Command{
		Use:   "rust-test",
		Short: "Run Rust tests and enforce the coverage threshold when a report is configured",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return rustTest(ctx, crate)
		},
	}

	cmd.Flags().StringVar(&crate, "crate", "", "Restrict tests to a single workspace crate.")

	return cmd
}

func rustTest(ctx *Context, crate string) error {
	if !detect.HasRust(ctx.Dir) {
		ctx.Splog.Notice("no Cargo.toml; skipping rust-test")
		return nil
	}
	if err := runner.LookTool("cargo", "install the Rust toolchain"); err != nil {
		return err
	}

	args := []string{"test", "--workspace"}
	if crate != "" {
		args = []string{"test", "-p", crate}
	}

	ctx.Splog.Group("cargo test")
	err := ctx.Runner.RunStreaming(ctx.Ctx, "cargo", args...)
	ctx.Splog.EndGroup()
	if err != nil {
		return err
	}

	// Tarpaulin runs in a separate step when configured; this handler only
	// reads its report.
	reportPath := config.GetString("coverage.rust.report", "")
	if reportPath == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(ctx.Dir, reportPath))
	if err != nil {
		ctx.Splog.Debug("no tarpaulin report at %s; skipping coverage check", reportPath)
		return nil
	}

	percent, err := coverage.ParseTarpaulin(string(data))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", reportPath, err)
	}

	ctx.setOutput("rust-coverage", fmt.Sprintf("%.2f", percent))
	ctx.appendSummary(fmt.Sprintf("**Rust coverage:** %.2f%%", percent))
	ctx.Splog.Info("rust coverage: %.2f%%", percent)

	return coverage.Enforce("rust coverage", percent, config.GetFloat("coverage.rust.min", 0))
}

// newRustFmtCmd creates the rust-fmt command
func newRustFmtCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rust-fmt",
		Short: "Check Rust formatting",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return rustFmt(ctx)
		},
	}
}

func rustFmt(ctx *Context) error {
	if !detect.HasRust(ctx.Dir) {
		ctx.Splog.Notice("no Cargo.toml; skipping rust-fmt")
		return nil
	}
	if err := runner.LookTool("cargo", "install the Rust toolchain"); err != nil {
		return err
	}
	return ctx.Runner.RunStreaming(ctx.Ctx, "cargo", "fmt", "--all", "--", "--check")
}
