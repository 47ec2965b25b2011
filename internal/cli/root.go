package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// workDir is the repository root handlers operate in, set by the
// persistent --dir flag.
var workDir string

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cihelper",
		Short: "cihelper wraps the command-line tools our CI pipeline steps call",
		Long: `cihelper wraps the command-line tools our CI pipeline steps call.

Each sub-command reads its inputs from environment variables and the CI_CONFIG
JSON blob, runs the tool it wraps, and reports results through the pipeline
output, env, and summary files.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "Repository root to operate in.")

	// Add subcommands
	rootCmd.AddCommand(newDetermineExecutionCmd())
	rootCmd.AddCommand(newGenerateMatricesCmd())
	rootCmd.AddCommand(newGoBuildCmd())
	rootCmd.AddCommand(newGoTestCmd())
	rootCmd.AddCommand(newGoLintCmd())
	rootCmd.AddCommand(newFrontendInstallCmd())
	rootCmd.AddCommand(newFrontendBuildCmd())
	rootCmd.AddCommand(newFrontendTestCmd())
	rootCmd.AddCommand(newFrontendLintCmd())
	rootCmd.AddCommand(newRustClippyCmd())
	rootCmd.AddCommand(newRustTestCmd())
	rootCmd.AddCommand(newRustFmtCmd())
	rootCmd.AddCommand(newDockerBuildCmd())
	rootCmd.AddCommand(newCheckCIStatusCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, date))

	return rootCmd
}
