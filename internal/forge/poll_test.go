package forge

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cihelper.dev/cihelper/internal/output"
)

// scriptedClient returns a scripted sequence of responses; the last entry is
// sticky.
type scriptedClient struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	status *CheckStatus
	err    error
}

func (c *scriptedClient) GetRefChecks(_ context.Context, _ string) (*CheckStatus, error) {
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	r := c.responses[idx]
	return r.status, r.err
}

func (c *scriptedClient) GetOwnerRepo() (string, string) {
	return "owner", "repo"
}

func testSplog(t *testing.T) (*output.Splog, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	splog, err := output.NewSplogWithWriter(&buf)
	require.NoError(t, err)
	return splog, &buf
}

func pollOpts(splog *output.Splog, attempts int) PollOptions {
	return PollOptions{
		Ref:         "abc123",
		MaxAttempts: attempts,
		Interval:    time.Millisecond,
		Splog:       splog,
	}
}

func completed(name, conclusion string) CheckDetail {
	return CheckDetail{Name: name, Status: "completed", Conclusion: conclusion}
}

func running(name string) CheckDetail {
	return CheckDetail{Name: name, Status: "in_progress"}
}

func TestPollChecks(t *testing.T) {
	t.Run("succeeds once every check concludes", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{running("build"), completed("lint", "success")}}},
			{status: &CheckStatus{Checks: []CheckDetail{completed("build", "success"), completed("lint", "success")}}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 5))
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, result.Status)
		require.Equal(t, 2, result.Attempts)
	})

	t.Run("fails fast when a check concludes badly", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{completed("build", "failure"), running("lint")}}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 5))
		require.NoError(t, err)
		require.Equal(t, StatusFailure, result.Status)
		require.Equal(t, []string{"build"}, result.Failed)
		require.Equal(t, 1, result.Attempts)
	})

	t.Run("neutral and skipped conclusions pass", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{
				completed("build", "success"),
				completed("optional", "neutral"),
				completed("docs", "skipped"),
			}}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 5))
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, result.Status)
	})

	t.Run("times out when the budget runs dry", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{running("build")}}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 3))
		require.NoError(t, err)
		require.Equal(t, StatusTimeout, result.Status)
		require.Equal(t, 3, result.Attempts)
		require.Equal(t, []string{"build"}, result.Pending)
	})

	t.Run("transient errors are warned and retried", func(t *testing.T) {
		splog, buf := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{err: errors.New("502 bad gateway")},
			{status: &CheckStatus{Checks: []CheckDetail{completed("build", "success")}}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 5))
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, result.Status)
		require.Contains(t, buf.String(), "502 bad gateway")
	})

	t.Run("ignored patterns exclude checks from the wait", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{
				completed("build", "success"),
				running("wait-for-ci"),
				running("deploy-preview"),
			}}},
		}}

		opts := pollOpts(splog, 2)
		opts.Ignore = []string{"wait-*", "deploy-preview"}

		result, err := PollChecks(context.Background(), client, opts)
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, result.Status)
	})

	t.Run("no reported checks keeps polling until timeout", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{}},
		}}

		result, err := PollChecks(context.Background(), client, pollOpts(splog, 2))
		require.NoError(t, err)
		require.Equal(t, StatusTimeout, result.Status)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		splog, _ := testSplog(t)
		client := &scriptedClient{responses: []scriptedResponse{
			{status: &CheckStatus{Checks: []CheckDetail{running("build")}}},
		}}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := PollChecks(ctx, client, pollOpts(splog, 5))
		require.ErrorIs(t, err, context.Canceled)
	})
}
