package forge

import (
	"context"
	"path/filepath"
	"time"

	"cihelper.dev/cihelper/internal/output"
)

// Poll outcome values written to the pipeline output file
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// PollOptions configures a check polling run
type PollOptions struct {
	Ref         string
	MaxAttempts int
	Interval    time.Duration

	// Ignore holds glob patterns for check names to exclude, typically the
	// invoking job itself.
	Ignore []string

	Splog *output.Splog
}

// PollResult is the outcome of a polling run
type PollResult struct {
	Status   string
	Failed   []string
	Pending  []string
	Attempts int
}

// PollChecks polls the forge until every check for the ref has concluded, a
// check fails, or the attempt budget runs out. Transient API errors are
// logged as warnings and retried; they count against the budget.
func PollChecks(ctx context.Context, client Client, opts PollOptions) (*PollResult, error) {
	result := &PollResult{}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result.Attempts = attempt

		status, err := client.GetRefChecks(ctx, opts.Ref)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			opts.Splog.Warn("attempt %d/%d: %v", attempt, opts.MaxAttempts, err)
		} else {
			filtered := filterChecks(status, opts.Ignore)

			if failed := filtered.Failed(); len(failed) > 0 {
				result.Status = StatusFailure
				result.Failed = failed
				return result, nil
			}

			pending := filtered.Pending()
			result.Pending = pending
			if len(pending) == 0 && len(filtered.Checks) > 0 {
				result.Status = StatusSuccess
				return result, nil
			}
			if len(filtered.Checks) == 0 {
				opts.Splog.Debug("no checks reported for %s yet", opts.Ref)
			} else {
				opts.Splog.Info("waiting on %d check(s): %v (attempt %d/%d)",
					len(pending), pending, attempt, opts.MaxAttempts)
			}
		}

		if attempt == opts.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.Interval):
		}
	}

	result.Status = StatusTimeout
	return result, nil
}

// filterChecks drops checks whose name matches any ignore pattern
func filterChecks(status *CheckStatus, ignore []string) *CheckStatus {
	if len(ignore) == 0 {
		return status
	}
	filtered := &CheckStatus{}
	for _, check := range status.Checks {
		if matchesAny(check.Name, ignore) {
			continue
		}
		filtered.Checks = append(filtered.Checks, check)
	}
	return filtered
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
		if pattern == name {
			return true
		}
	}
	return false
}
