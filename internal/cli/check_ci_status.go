package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cihelper.dev/cihelper/internal/config"
	cierrors "cihelper.dev/cihelper/internal/errors"
	"cihelper.dev/cihelper/internal/forge"
)

// newCheckCIStatusCmd creates the check-ci-status command
func newCheckCIStatusCmd() *cobra.Command {
	var (
		ref         string
		maxAttempts int
		intervalSec int
		ignore      []string
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "check-ci-status",
		Short: "Wait until every CI check for a commit has concluded",
		Long: `Wait until every CI check for a commit has concluded.

Polls the forge's checks and commit-status APIs with a fixed interval until
all checks pass, one fails, or the attempt budget runs out. Transient API
errors are logged as warnings and retried. Exhausting the budget is reported
as a non-fatal timeout unless --strict is given. The invoking job (GITHUB_JOB)
is always excluded from the wait.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := newContext(workDir)

			client, err := forge.NewGitHubClient(ctx.Ctx)
			if err != nil {
				return err
			}
			return checkCIStatus(ctx, client, checkOptions{
				Ref:         ref,
				MaxAttempts: maxAttempts,
				Interval:    time.Duration(intervalSec) * time.Second,
				Ignore:      ignore,
				Strict:      strict,
			})
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Commit sha or ref to watch. Defaults to GITHUB_SHA.")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", config.GetInt("checks.max-attempts", 30), "Polling attempt budget.")
	cmd.Flags().IntVar(&intervalSec, "interval", config.GetInt("checks.interval-seconds", 10), "Seconds to sleep between attempts.")
	cmd.Flags().StringArrayVar(&ignore, "ignore", nil, "Check name patterns to exclude from the wait. May be repeated.")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat an exhausted attempt budget as a failure.")

	return cmd
}

type checkOptions struct {
	Ref         string
	MaxAttempts int
	Interval    time.Duration
	Ignore      []string
	Strict      bool
}

func checkCIStatus(ctx *Context, client forge.Client, opts checkOptions) error {
	ref := opts.Ref
	if ref == "" {
		ref = os.Getenv("GITHUB_SHA")
	}
	if ref == "" {
		return fmt.Errorf("no ref given and GITHUB_SHA is not set")
	}

	ignore := opts.Ignore
	if job := os.Getenv("GITHUB_JOB"); job != "" {
		ignore = append(ignore, job)
	}
	ignore = append(ignore, config.GetStringSlice("checks.ignore", nil)...)

	owner, repo := client.GetOwnerRepo()
	ctx.Splog.Info("waiting for checks on %s/%s@%s (budget: %d attempts, %s apart)",
		owner, repo, shortRef(ref), opts.MaxAttempts, opts.Interval)

	result, err := forge.PollChecks(ctx.Ctx, client, forge.PollOptions{
		Ref:         ref,
		MaxAttempts: opts.MaxAttempts,
		Interval:    opts.Interval,
		Ignore:      ignore,
		Splog:       ctx.Splog,
	})
	if err != nil {
		return err
	}

	ctx.setOutput("status", result.Status)

	switch result.Status {
	case forge.StatusSuccess:
		ctx.Splog.Info("all checks passed after %d attempt(s)", result.Attempts)
		ctx.appendSummary(fmt.Sprintf("**CI status:** ✅ all checks passed for `%s`", shortRef(ref)))
		return nil

	case forge.StatusFailure:
		ctx.appendSummary(fmt.Sprintf("**CI status:** ❌ failed checks for `%s`: %s",
			shortRef(ref), strings.Join(result.Failed, ", ")))
		return cierrors.NewChecksFailedError(shortRef(ref), result.Failed)

	default:
		ctx.Splog.Notice("checks still pending after %d attempt(s): %v", result.Attempts, result.Pending)
		ctx.appendSummary(fmt.Sprintf("**CI status:** ⏳ timed out waiting on `%s`", shortRef(ref)))
		if opts.Strict {
			return cierrors.ErrChecksTimeout
		}
		return nil
	}
}

func shortRef(ref string) string {
	if len(ref) == 40 {
		return ref[:12]
	}
	return ref
}
