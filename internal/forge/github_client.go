package forge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

// GitHubClient implements Client using the GitHub REST API
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubClient creates a client from the pipeline environment:
// GITHUB_TOKEN (or GH_TOKEN) for auth, GITHUB_REPOSITORY for owner/name,
// GITHUB_API_URL for enterprise hosts.
func NewGitHubClient(ctx context.Context) (*GitHubClient, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		token = os.Getenv("GH_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN is not set")
	}

	owner, repo, err := ownerRepoFromEnv()
	if err != nil {
		return nil, err
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	client := github.NewClient(tc)

	if apiURL := os.Getenv("GITHUB_API_URL"); apiURL != "" && !strings.Contains(apiURL, "api.github.com") {
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure enterprise API URL: %w", err)
		}
	}

	return &GitHubClient{client: client, owner: owner, repo: repo}, nil
}

// NewGitHubClientWith wraps an existing go-github client. Used by tests to
// point the helper at a mock server.
func NewGitHubClientWith(client *github.Client, owner, repo string) *GitHubClient {
	return &GitHubClient{client: client, owner: owner, repo: repo}
}

// GetOwnerRepo returns the repository owner and name
func (c *GitHubClient) GetOwnerRepo() (string, string) {
	return c.owner, c.repo
}

// GetRefChecks returns the check runs and legacy commit statuses for a ref
func (c *GitHubClient) GetRefChecks(ctx context.Context, ref string) (*CheckStatus, error) {
	status := &CheckStatus{}

	opts := &github.ListCheckRunsOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		results, resp, err := c.client.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, ref, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list check runs for %s: %w", ref, err)
		}
		for _, run := range results.CheckRuns {
			status.Checks = append(status.Checks, CheckDetail{
				Name:       run.GetName(),
				Status:     run.GetStatus(),
				Conclusion: run.GetConclusion(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	combined, _, err := c.client.Repositories.GetCombinedStatus(ctx, c.owner, c.repo, ref, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to get combined status for %s: %w", ref, err)
	}
	for _, s := range combined.Statuses {
		status.Checks = append(status.Checks, CheckDetail{
			Name:       s.GetContext(),
			Status:     statusState(s.GetState()),
			Conclusion: conclusionState(s.GetState()),
		})
	}

	return status, nil
}

// statusState maps a legacy commit status state onto a check run status
func statusState(state string) string {
	if state == "pending" {
		return "in_progress"
	}
	return "completed"
}

// conclusionState maps a legacy commit status state onto a check run conclusion
func conclusionState(state string) string {
	switch state {
	case "success":
		return "success"
	case "error", "failure":
		return "failure"
	}
	return ""
}

func ownerRepoFromEnv() (string, string, error) {
	full := os.Getenv("GITHUB_REPOSITORY")
	if full == "" {
		return "", "", fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed GITHUB_REPOSITORY %q", full)
	}
	return parts[0], parts[1], nil
}
