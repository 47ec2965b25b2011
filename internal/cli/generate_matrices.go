package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/detect"
	"cihelper.dev/cihelper/internal/matrix"
)

// newGenerateMatricesCmd creates the generate-matrices command
func newGenerateMatricesCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate-matrices",
		Short: "Emit the JSON job matrices downstream workflow jobs fan out over",
		Long: `Emit the JSON job matrices downstream workflow jobs fan out over.

Axes come from the YAML matrix file when present and fall back to defaults.
Rust matrices include a crate axis discovered from the Cargo workspace.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return generateMatrices(ctx, configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", matrix.DefaultConfigPath, "Matrix axes file, relative to the repository root.")

	return cmd
}

func generateMatrices(ctx *Context, configPath string) error {
	cfg, err := matrix.LoadConfig(filepath.Join(ctx.Dir, configPath))
	if err != nil {
		return err
	}

	var members []string
	if detect.HasRust(ctx.Dir) {
		members, err = matrix.WorkspaceMembers(filepath.Join(ctx.Dir, "Cargo.toml"))
		if err != nil {
			ctx.Splog.Warn("%v; rust matrix will have no crate axis", err)
			members = nil
		}
	}

	matrices := map[string]map[string]interface{}{
		"go-matrix":       cfg.GoMatrix(),
		"frontend-matrix": cfg.FrontendMatrix(),
		"rust-matrix":     cfg.RustMatrix(members),
	}

	for key, m := range matrices {
		encoded, err := matrix.MarshalCompact(m)
		if err != nil {
			return err
		}
		ctx.setOutput(key, encoded)
		ctx.Splog.Info("%s=%s", key, encoded)
	}

	if len(members) > 0 {
		ctx.appendSummary(fmt.Sprintf("**Matrices generated** (%d rust crate(s))", len(members)))
	} else {
		ctx.appendSummary("**Matrices generated**")
	}
	return nil
}
