package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// CheckFixture is one check run as the mock server reports it
type CheckFixture struct {
	Name       string
	Status     string
	Conclusion string
}

// ChecksPage is the full response for one polling attempt
type ChecksPage struct {
	CheckRuns []CheckFixture
	// Statuses are legacy commit statuses ("pending", "success", "failure")
	Statuses map[string]string
	// Fail serves a 502 instead, simulating a transient API error
	Fail bool
}

// MockChecksServerConfig scripts the responses of a mock checks API.
// Each polling attempt consumes the next page; the last page is sticky.
type MockChecksServerConfig struct {
	Owner string
	Repo  string
	Pages []ChecksPage

	mu   sync.Mutex
	next int
}

// NewMockChecksServer creates an httptest server mocking the check-runs and
// combined-status endpoints, plus a go-github client pointed at it.
func NewMockChecksServer(t *testing.T, config *MockChecksServerConfig) (*httptest.Server, *github.Client) {
	t.Helper()
	if config.Owner == "" {
		config.Owner = "owner"
	}
	if config.Repo == "" {
		config.Repo = "repo"
	}

	mux := http.NewServeMux()
	base := "/repos/" + config.Owner + "/" + config.Repo + "/commits/"

	mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		page, advance := config.peek()
		if page == nil {
			http.Error(w, "no pages scripted", http.StatusInternalServerError)
			return
		}

		// One attempt hits check-runs and then status; the script advances
		// at the end of the attempt. A failing page short-circuits after
		// check-runs, so it advances there.
		switch {
		case strings.HasSuffix(r.URL.Path, "/check-runs"):
			if page.Fail {
				advance()
				http.Error(w, "bad gateway", http.StatusBadGateway)
				return
			}
			writeCheckRuns(t, w, page.CheckRuns)

		case strings.HasSuffix(r.URL.Path, "/status"):
			advance()
			writeCombinedStatus(t, w, page.Statuses)

		default:
			http.NotFound(w, r)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	baseURL, err := url.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("failed to parse mock server URL: %v", err)
	}
	client.BaseURL = baseURL
	client.UploadURL = baseURL

	return server, client
}

// peek returns the current page and a function that moves to the next one
func (c *MockChecksServerConfig) peek() (*ChecksPage, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Pages) == 0 {
		return nil, func() {}
	}
	idx := c.next
	if idx >= len(c.Pages) {
		idx = len(c.Pages) - 1
	}
	return &c.Pages[idx], func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.next < len(c.Pages)-1 {
			c.next++
		}
	}
}

func writeCheckRuns(t *testing.T, w http.ResponseWriter, runs []CheckFixture) {
	t.Helper()
	type checkRun struct {
		Name       string  `json:"name"`
		Status     string  `json:"status"`
		Conclusion *string `json:"conclusion"`
	}
	payload := struct {
		TotalCount int        `json:"total_count"`
		CheckRuns  []checkRun `json:"check_runs"`
	}{TotalCount: len(runs)}
	for _, run := range runs {
		cr := checkRun{Name: run.Name, Status: run.Status}
		if run.Conclusion != "" {
			conclusion := run.Conclusion
			cr.Conclusion = &conclusion
		}
		payload.CheckRuns = append(payload.CheckRuns, cr)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("failed to encode check runs: %v", err)
	}
}

func writeCombinedStatus(t *testing.T, w http.ResponseWriter, statuses map[string]string) {
	t.Helper()
	type repoStatus struct {
		Context string `json:"context"`
		State   string `json:"state"`
	}
	payload := struct {
		State    string       `json:"state"`
		Statuses []repoStatus `json:"statuses"`
	}{State: "success"}
	for name, state := range statuses {
		if state == "pending" {
			payload.State = "pending"
		}
		payload.Statuses = append(payload.Statuses, repoStatus{Context: name, State: state})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("failed to encode combined status: %v", err)
	}
}
