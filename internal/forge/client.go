// Package forge talks to the source-control automation API (GitHub) for
// check status queries.
package forge

import (
	"context"
)

// CheckDetail represents the state of an individual CI check or commit status
type CheckDetail struct {
	Name       string
	Status     string // queued, in_progress, completed
	Conclusion string // success, failure, neutral, cancelled, skipped, timed_out, action_required
}

// Completed reports whether the check has finished running
func (d CheckDetail) Completed() bool {
	return d.Status == "completed"
}

// Failed reports whether the check concluded unsuccessfully
func (d CheckDetail) Failed() bool {
	switch d.Conclusion {
	case "failure", "cancelled", "timed_out", "action_required":
		return true
	}
	return false
}

// CheckStatus is the combined state of all checks for a ref
type CheckStatus struct {
	Checks []CheckDetail
}

// Pending returns the names of checks still running
func (s *CheckStatus) Pending() []string {
	var names []string
	for _, c := range s.Checks {
		if !c.Completed() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Failed returns the names of checks that concluded unsuccessfully
func (s *CheckStatus) Failed() []string {
	var names []string
	for _, c := range s.Checks {
		if c.Completed() && c.Failed() {
			names = append(names, c.Name)
		}
	}
	return names
}

// Client is an interface for forge API interactions
type Client interface {
	// GetRefChecks returns check runs and commit statuses for a ref
	GetRefChecks(ctx context.Context, ref string) (*CheckStatus, error)

	// GetOwnerRepo returns the repository owner and name
	GetOwnerRepo() (owner, repo string)
}
