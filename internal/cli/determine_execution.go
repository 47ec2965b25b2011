package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	"cihelper.dev/cihelper/internal/detect"
)

// newDetermineExecutionCmd creates the determine-execution command
func newDetermineExecutionCmd() *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "determine-execution",
		Short: "Decide which pipeline segments should run for this change",
		Long: `Decide which pipeline segments should run for this change.

Diffs HEAD against the merge base with the base ref and classifies the changed
paths. Changes to the CI tooling itself force every segment. Segments whose
marker file (go.mod, package.json, Cargo.toml, Dockerfile) is absent never run.
Writes run-<segment> outputs for downstream job conditions.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := newContext(workDir)
			return determineExecution(ctx, base)
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "Base ref to diff against. Defaults to GITHUB_BASE_REF, then the execution.base-ref config path, then origin/main.")

	return cmd
}

func determineExecution(ctx *Context, base string) error {
	if base == "" {
		if branch := envOr("GITHUB_BASE_REF", ""); branch != "" {
			base = "origin/" + branch
		} else {
			base = config.GetString("execution.base-ref", "origin/main")
		}
	}

	segs, changed, reason := classifyChange(ctx, base)

	frontendRoot := frontendDir(ctx.Dir)
	runGo := segs.Go && detect.HasGoModule(ctx.Dir)
	runFrontend := segs.Frontend && detect.HasFrontend(frontendRoot)
	runRust := segs.Rust && detect.HasRust(ctx.Dir)
	runDocker := segs.Docker && detect.HasDockerfile(ctx.Dir, config.GetString("docker.dockerfile", ""))
	// Docs jobs have no marker file; the segment alone decides.
	runDocs := segs.Docs

	ctx.setOutput("run-go", strconv.FormatBool(runGo))
	ctx.setOutput("run-frontend", strconv.FormatBool(runFrontend))
	ctx.setOutput("run-rust", strconv.FormatBool(runRust))
	ctx.setOutput("run-docker", strconv.FormatBool(runDocker))
	ctx.setOutput("run-docs", strconv.FormatBool(runDocs))
	ctx.setOutput("changed-count", strconv.Itoa(len(changed)))

	ctx.Splog.Info("determine-execution: go=%v frontend=%v rust=%v docker=%v docs=%v (%s)",
		runGo, runFrontend, runRust, runDocker, runDocs, reason)

	var summary strings.Builder
	summary.WriteString("### Execution plan\n\n")
	fmt.Fprintf(&summary, "%s\n\n", reason)
	summary.WriteString("| Segment | Run |\n|---|---|\n")
	fmt.Fprintf(&summary, "| go | %s |\n", checkbox(runGo))
	fmt.Fprintf(&summary, "| frontend | %s |\n", checkbox(runFrontend))
	fmt.Fprintf(&summary, "| rust | %s |\n", checkbox(runRust))
	fmt.Fprintf(&summary, "| docker | %s |\n", checkbox(runDocker))
	fmt.Fprintf(&summary, "| docs | %s |\n", checkbox(runDocs))
	ctx.appendSummary(summary.String())

	return nil
}

// classifyChange computes the affected segments, falling back to a full run
// whenever the diff cannot be established.
func classifyChange(ctx *Context, base string) (detect.Segments, []string, string) {
	repo, err := detect.OpenRepository(ctx.Dir)
	if err != nil {
		ctx.Splog.Warn("%v", err)
		return detect.All(), nil, "not a git repository; running everything"
	}

	changed, err := detect.ChangedFiles(repo, base)
	if err != nil {
		ctx.Splog.Warn("%v", err)
		return detect.All(), nil, fmt.Sprintf("cannot diff against %s; running everything", base)
	}

	if len(changed) == 0 {
		return detect.All(), changed, fmt.Sprintf("no changes relative to %s; running everything", base)
	}

	segs := detect.Classify(changed, relFrontendDir())
	if segs.Workflow {
		return segs, changed, "CI tooling changed; running everything"
	}
	return segs, changed, fmt.Sprintf("%d file(s) changed relative to %s", len(changed), base)
}

func checkbox(run bool) string {
	if run {
		return "✅"
	}
	return "⏭️"
}
