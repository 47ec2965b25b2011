package forge_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cihelper.dev/cihelper/internal/forge"
	"cihelper.dev/cihelper/testhelpers"
)

func TestGetRefChecks(t *testing.T) {
	cfg := &testhelpers.MockChecksServerConfig{
		Pages: []testhelpers.ChecksPage{
			{
				CheckRuns: []testhelpers.CheckFixture{
					{Name: "build", Status: "completed", Conclusion: "success"},
					{Name: "lint", Status: "in_progress"},
				},
				Statuses: map[string]string{
					"legacy-status": "pending",
				},
			},
		},
	}
	_, ghClient := testhelpers.NewMockChecksServer(t, cfg)
	client := forge.NewGitHubClientWith(ghClient, "owner", "repo")

	status, err := client.GetRefChecks(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, status.Checks, 3)

	require.ElementsMatch(t, []string{"lint", "legacy-status"}, status.Pending())
	require.Empty(t, status.Failed())
}

func TestGetRefChecksMapsLegacyStates(t *testing.T) {
	cfg := &testhelpers.MockChecksServerConfig{
		Pages: []testhelpers.ChecksPage{
			{
				Statuses: map[string]string{
					"ok-status":  "success",
					"bad-status": "failure",
				},
			},
		},
	}
	_, ghClient := testhelpers.NewMockChecksServer(t, cfg)
	client := forge.NewGitHubClientWith(ghClient, "owner", "repo")

	status, err := client.GetRefChecks(context.Background(), "abc123")
	require.NoError(t, err)
	require.Empty(t, status.Pending())
	require.Equal(t, []string{"bad-status"}, status.Failed())
}

func TestGetRefChecksSurfacesAPIErrors(t *testing.T) {
	cfg := &testhelpers.MockChecksServerConfig{
		Pages: []testhelpers.ChecksPage{{Fail: true}},
	}
	_, ghClient := testhelpers.NewMockChecksServer(t, cfg)
	client := forge.NewGitHubClientWith(ghClient, "owner", "repo")

	_, err := client.GetRefChecks(context.Background(), "abc123")
	require.Error(t, err)
}
