package takeoff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AttemptMerge fetches the current state of the referenced pull request,
// classifies it, and issues at most one merge call. PR state is re-fetched
// on every invocation; mergeability and check status can change between
// message receipt and processing. All failures are converted to an Outcome;
// AttemptMerge never returns an error.
func (c *Client) AttemptMerge(ctx context.Context, ref Reference) Outcome {
	pr, err := c.github.pullRequest(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return c.fetchFailure(ctx, ref, err)
	}

	switch {
	case pr.Merged:
		return AlreadyMerged(ref.Number)
	case pr.State == "closed":
		return APIError(ref.Number, "closed without being merged")
	case pr.Mergeable != nil && !*pr.Mergeable:
		return Conflict(ref.Number)
	case pr.MergeableState == "dirty":
		// GitHub reports "dirty" when the working tree has conflicts even
		// while the mergeable flag is still being recomputed.
		return Conflict(ref.Number)
	}

	passed, err := c.checksPassed(ctx, ref, pr.Head.SHA)
	if err != nil {
		return c.fetchFailure(ctx, ref, err)
	}
	if !passed {
		return ChecksNotPassed(ref.Number)
	}

	c.logger.InfoContext(ctx, "issuing merge call",
		"owner", ref.Owner, "repo", ref.Repo, "pr", ref.Number, "method", c.mergeMethod)
	if err := c.github.merge(ctx, ref.Owner, ref.Repo, ref.Number, c.mergeMethod); err != nil {
		return c.mergeFailure(ctx, ref, err)
	}
	return Merged(ref.Number)
}

// checksPassed reports whether every reported commit status and check run
// for the head SHA is in a passing state. Pending counts as not passed. A
// head with no statuses and no check runs at all passes: a repository
// without CI must still be mergeable by bot.
func (c *Client) checksPassed(ctx context.Context, ref Reference, sha string) (bool, error) {
	status, err := c.github.combinedStatus(ctx, ref.Owner, ref.Repo, sha)
	if err != nil {
		return false, fmt.Errorf("fetching combined status: %w", err)
	}
	if status.TotalCount > 0 && status.State != "success" {
		c.logger.InfoContext(ctx, "commit statuses not passing",
			"pr", ref.Number, "state", status.State, "count", status.TotalCount)
		return false, nil
	}

	runs, err := c.github.checkRuns(ctx, ref.Owner, ref.Repo, sha)
	if err != nil {
		return false, fmt.Errorf("fetching check runs: %w", err)
	}
	for _, run := range runs.CheckRuns {
		if run.Status != "completed" {
			c.logger.InfoContext(ctx, "check run still in progress",
				"pr", ref.Number, "check", run.Name, "status", run.Status)
			return false, nil
		}
		switch run.Conclusion {
		case "success", "neutral", "skipped":
		default:
			c.logger.InfoContext(ctx, "check run not passing",
				"pr", ref.Number, "check", run.Name, "conclusion", run.Conclusion)
			return false, nil
		}
	}
	return true, nil
}

// fetchFailure maps a failed PR-state fetch to an Outcome.
func (c *Client) fetchFailure(ctx context.Context, ref Reference, err error) Outcome {
	var apiErr *GitHubAPIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return APIError(ref.Number, fmt.Sprintf("PR not found in %s/%s", ref.Owner, ref.Repo))
		}
		return APIError(ref.Number, apiErr.ErrorMessage())
	}
	c.logger.ErrorContext(ctx, "PR state fetch failed", "pr", ref.String(), "error", err)
	return APIError(ref.Number, err.Error())
}

// mergeFailure maps a failed merge call to an Outcome. GitHub answers 405
// when the PR is not in a mergeable state (conflicts or unmet branch
// protection) and 409 when the head SHA moved underneath the merge.
func (c *Client) mergeFailure(ctx context.Context, ref Reference, err error) Outcome {
	var apiErr *GitHubAPIError
	if !errors.As(err, &apiErr) {
		c.logger.ErrorContext(ctx, "merge call failed", "pr", ref.String(), "error", err)
		return APIError(ref.Number, err.Error())
	}

	message := apiErr.ErrorMessage()
	switch apiErr.StatusCode {
	case http.StatusMethodNotAllowed:
		lower := strings.ToLower(message)
		if strings.Contains(lower, "not mergeable") || strings.Contains(lower, "conflict") {
			return Conflict(ref.Number)
		}
		return ChecksNotPassed(ref.Number)
	case http.StatusConflict:
		return Conflict(ref.Number)
	case http.StatusNotFound:
		return APIError(ref.Number, fmt.Sprintf("PR not found in %s/%s", ref.Owner, ref.Repo))
	default:
		c.logger.ErrorContext(ctx, "merge call rejected",
			"pr", ref.String(), "status", apiErr.StatusCode, "message", message)
		return APIError(ref.Number, message)
	}
}
