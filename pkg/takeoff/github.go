package takeoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	githubAPI = "https://api.github.com"
	// maxResponseSize limits API response size to prevent memory exhaustion.
	maxResponseSize = 10 * 1024 * 1024 // 10MB
	// maxErrorBodySize limits error response body reading for debugging.
	maxErrorBodySize = 1024
	// tokenPreviewPrefixLen is the number of characters to show at the start of a masked token.
	tokenPreviewPrefixLen = 4
	// tokenPreviewSuffixLen is the number of characters to show at the end of a masked token.
	tokenPreviewSuffixLen = 4
	// tokenPreviewMinLen is the minimum token length to show a preview.
	tokenPreviewMinLen = 8
)

// GitHubAPIError represents an error response from the GitHub API.
type GitHubAPIError struct {
	Status     string
	Body       string
	URL        string
	StatusCode int
}

func (e *GitHubAPIError) Error() string {
	return fmt.Sprintf("github API error: %s", e.Status)
}

// ErrorMessage extracts the "message" field from the error payload, falling
// back to the HTTP status when the body is not parseable.
func (e *GitHubAPIError) ErrorMessage() string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return "HTTP " + e.Status
}

// githubClient is a client for interacting with the GitHub API.
type githubClient struct {
	client *http.Client
	token  string
	api    string
}

// doRequest performs the common HTTP request logic for GitHub API calls.
func (c *githubClient) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	apiURL := c.api + path

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Log request details (mask token for security)
	tokenPreview := ""
	if c.token != "" {
		if len(c.token) > tokenPreviewMinLen {
			tokenPreview = c.token[:tokenPreviewPrefixLen] + "..." + c.token[len(c.token)-tokenPreviewSuffixLen:]
		} else {
			tokenPreview = "***"
		}
	}

	slog.InfoContext(ctx, "GitHub API request starting",
		"method", method,
		"url", apiURL,
		"headers", map[string]string{
			"Authorization": "Bearer " + tokenPreview,
			"Accept":        req.Header.Get("Accept"),
		})

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		slog.ErrorContext(ctx, "GitHub API request failed", "url", apiURL, "error", err, "elapsed", elapsed)
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.DebugContext(ctx, "failed to close response body", "error", closeErr, "url", apiURL)
		}
	}()

	// Log rate limit headers for all responses
	rateLimitHeaders := map[string]string{
		"X-RateLimit-Limit":     resp.Header.Get("X-Ratelimit-Limit"),
		"X-RateLimit-Remaining": resp.Header.Get("X-Ratelimit-Remaining"),
		"X-RateLimit-Reset":     resp.Header.Get("X-Ratelimit-Reset"),
		"Retry-After":           resp.Header.Get("Retry-After"),
	}

	slog.InfoContext(ctx, "GitHub API response received",
		"status", resp.Status,
		"url", apiURL,
		"elapsed", elapsed,
		"rate_limits", rateLimitHeaders)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			errBody = []byte("failed to read response body")
		}

		slog.ErrorContext(ctx, "GitHub API error",
			"status", resp.Status,
			"status_code", resp.StatusCode,
			"url", apiURL,
			"body", string(errBody))
		return nil, &GitHubAPIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(errBody),
			URL:        apiURL,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// get makes a GET request to the GitHub API and decodes the response into v.
func (c *githubClient) get(ctx context.Context, path string, v any) error {
	data, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// pullRequest fetches the current state of a pull request.
func (c *githubClient) pullRequest(ctx context.Context, owner, repo string, number int) (*githubPullRequest, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	var pr githubPullRequest
	if err := c.get(ctx, path, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// combinedStatus fetches the combined commit status for a head SHA.
func (c *githubClient) combinedStatus(ctx context.Context, owner, repo, sha string) (*githubCombinedStatus, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/status", owner, repo, sha)
	var status githubCombinedStatus
	if err := c.get(ctx, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// checkRuns fetches the check runs for a head SHA.
func (c *githubClient) checkRuns(ctx context.Context, owner, repo, sha string) (*githubCheckRuns, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits/%s/check-runs", owner, repo, sha)
	var runs githubCheckRuns
	if err := c.get(ctx, path, &runs); err != nil {
		return nil, err
	}
	return &runs, nil
}

// merge issues the merge call for a pull request. A nil return means GitHub
// accepted the merge.
func (c *githubClient) merge(ctx context.Context, owner, repo string, number int, method string) error {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/merge", owner, repo, number)
	body, err := json.Marshal(map[string]string{"merge_method": method})
	if err != nil {
		return err
	}
	_, err = c.doRequest(ctx, http.MethodPut, path, body)
	return err
}

// githubPullRequest represents the subset of a GitHub pull request consumed
// by the merge decision table.
type githubPullRequest struct {
	Mergeable *bool `json:"mergeable"`
	Head      struct {
		SHA string `json:"sha"`
	} `json:"head"`
	State          string `json:"state"`
	MergeableState string `json:"mergeable_state"`
	Number         int    `json:"number"`
	Merged         bool   `json:"merged"`
}

// githubCombinedStatus represents the combined status for a commit.
type githubCombinedStatus struct {
	State    string `json:"state"`
	Statuses []struct {
		Context string `json:"context"`
		State   string `json:"state"`
	} `json:"statuses"`
	TotalCount int `json:"total_count"`
}

// githubCheckRun represents a GitHub check run.
type githubCheckRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Conclusion string `json:"conclusion"`
}

// githubCheckRuns represents a list of GitHub check runs.
type githubCheckRuns struct {
	TotalCount int               `json:"total_count"`
	CheckRuns  []*githubCheckRun `json:"check_runs"`
}
