package takeoff

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"
)

// stubAPI is an in-memory GitHub API that counts calls so tests can assert
// which steps of the decision table actually ran.
type stubAPI struct {
	pr        githubPullRequest
	prErr     error
	status    githubCombinedStatus
	statusErr error
	runs      githubCheckRuns
	runsErr   error
	mergeErr  error

	fetchCalls  int
	statusCalls int
	runsCalls   int
	mergeCalls  int
}

func (s *stubAPI) pullRequest(_ context.Context, _, _ string, _ int) (*githubPullRequest, error) {
	s.fetchCalls++
	if s.prErr != nil {
		return nil, s.prErr
	}
	pr := s.pr
	return &pr, nil
}

func (s *stubAPI) combinedStatus(_ context.Context, _, _, _ string) (*githubCombinedStatus, error) {
	s.statusCalls++
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	status := s.status
	return &status, nil
}

func (s *stubAPI) checkRuns(_ context.Context, _, _, _ string) (*githubCheckRuns, error) {
	s.runsCalls++
	if s.runsErr != nil {
		return nil, s.runsErr
	}
	runs := s.runs
	return &runs, nil
}

func (s *stubAPI) merge(_ context.Context, _, _ string, _ int, _ string) error {
	s.mergeCalls++
	if s.mergeErr != nil {
		return s.mergeErr
	}
	s.pr.Merged = true
	return nil
}

func newStubClient(stub *stubAPI) *Client {
	return &Client{
		github:      stub,
		logger:      slog.Default(),
		mergeMethod: defaultMergeMethod,
	}
}

func boolPtr(b bool) *bool { return &b }

func openPR(mergeable *bool) githubPullRequest {
	pr := githubPullRequest{Number: 42, State: "open", Mergeable: mergeable}
	pr.Head.SHA = "abc123"
	return pr
}

func TestAttemptMergeAlreadyMerged(t *testing.T) {
	stub := &stubAPI{pr: githubPullRequest{Number: 42, State: "closed", Merged: true}}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeAlreadyMerged || out.Number != 42 {
		t.Fatalf("got %+v, want AlreadyMerged(42)", out)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
	if stub.statusCalls != 0 || stub.runsCalls != 0 {
		t.Errorf("check fetches ran for an already-merged PR")
	}
}

func TestAttemptMergeClosedUnmerged(t *testing.T) {
	stub := &stubAPI{pr: githubPullRequest{Number: 42, State: "closed"}}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeAPIError {
		t.Fatalf("got %+v, want APIError", out)
	}
	if out.Reason != "closed without being merged" {
		t.Errorf("Reason = %q", out.Reason)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
}

func TestAttemptMergeConflict(t *testing.T) {
	// Conflicts win over passing checks: the merge call must never be issued.
	stub := &stubAPI{
		pr:     openPR(boolPtr(false)),
		status: githubCombinedStatus{State: "success", TotalCount: 1},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeConflict || out.Number != 42 {
		t.Fatalf("got %+v, want Conflict(42)", out)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
	if stub.statusCalls != 0 {
		t.Errorf("status fetched for a conflicting PR")
	}
}

func TestAttemptMergeDirtyStateConflicts(t *testing.T) {
	// mergeable may lag behind mergeable_state; "dirty" already means
	// conflicts.
	pr := openPR(nil)
	pr.MergeableState = "dirty"
	stub := &stubAPI{pr: pr}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeConflict {
		t.Fatalf("got %+v, want Conflict", out)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
}

func TestAttemptMergeChecksPending(t *testing.T) {
	stub := &stubAPI{
		pr:     openPR(boolPtr(true)),
		status: githubCombinedStatus{State: "pending", TotalCount: 2},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeChecksNotPassed {
		t.Fatalf("got %+v, want ChecksNotPassed", out)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
}

func TestAttemptMergeCheckRunFailing(t *testing.T) {
	stub := &stubAPI{
		pr: openPR(boolPtr(true)),
		runs: githubCheckRuns{TotalCount: 1, CheckRuns: []*githubCheckRun{
			{Name: "ci/test", Status: "completed", Conclusion: "failure"},
		}},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeChecksNotPassed {
		t.Fatalf("got %+v, want ChecksNotPassed", out)
	}
	if stub.mergeCalls != 0 {
		t.Errorf("merge called %d times, want 0", stub.mergeCalls)
	}
}

func TestAttemptMergeCheckRunInProgress(t *testing.T) {
	stub := &stubAPI{
		pr: openPR(boolPtr(true)),
		runs: githubCheckRuns{TotalCount: 1, CheckRuns: []*githubCheckRun{
			{Name: "ci/test", Status: "in_progress"},
		}},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeChecksNotPassed {
		t.Fatalf("got %+v, want ChecksNotPassed", out)
	}
}

func TestAttemptMergeSuccess(t *testing.T) {
	stub := &stubAPI{
		pr:     openPR(boolPtr(true)),
		status: githubCombinedStatus{State: "success", TotalCount: 1},
		runs: githubCheckRuns{TotalCount: 2, CheckRuns: []*githubCheckRun{
			{Name: "ci/test", Status: "completed", Conclusion: "success"},
			{Name: "ci/lint", Status: "completed", Conclusion: "skipped"},
		}},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeMerged || out.Number != 42 {
		t.Fatalf("got %+v, want Merged(42)", out)
	}
	if stub.mergeCalls != 1 {
		t.Errorf("merge called %d times, want exactly 1", stub.mergeCalls)
	}
}

func TestAttemptMergeNoChecksConfigured(t *testing.T) {
	// A repository without CI reports zero statuses and zero check runs.
	stub := &stubAPI{pr: openPR(boolPtr(true))}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeMerged {
		t.Fatalf("got %+v, want Merged", out)
	}
}

func TestAttemptMergeMergeableUnknownProceeds(t *testing.T) {
	// mergeable is null while GitHub computes it; the merge call arbitrates.
	stub := &stubAPI{pr: openPR(nil)}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeMerged {
		t.Fatalf("got %+v, want Merged", out)
	}
	if stub.mergeCalls != 1 {
		t.Errorf("merge called %d times, want 1", stub.mergeCalls)
	}
}

func TestAttemptMergeIdempotent(t *testing.T) {
	// State is re-fetched, not cached: a second attempt right after a
	// successful merge must observe the merged PR.
	stub := &stubAPI{pr: openPR(boolPtr(true))}
	client := newStubClient(stub)
	ref := Reference{"acme", "widgets", 42}

	if out := client.AttemptMerge(context.Background(), ref); out.Kind != OutcomeMerged {
		t.Fatalf("first attempt: got %+v, want Merged", out)
	}
	if out := client.AttemptMerge(context.Background(), ref); out.Kind != OutcomeAlreadyMerged {
		t.Fatalf("second attempt: got %+v, want AlreadyMerged", out)
	}
	if stub.fetchCalls != 2 {
		t.Errorf("fetchCalls = %d, want 2", stub.fetchCalls)
	}
	if stub.mergeCalls != 1 {
		t.Errorf("mergeCalls = %d, want 1", stub.mergeCalls)
	}
}

func TestAttemptMergeFetchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantReason string
	}{
		{
			name:       "PR not found",
			err:        &GitHubAPIError{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
			wantReason: "PR not found in acme/widgets",
		},
		{
			name:       "server error with payload message",
			err:        &GitHubAPIError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway", Body: `{"message":"Server Error"}`},
			wantReason: "Server Error",
		},
		{
			name:       "network failure",
			err:        errors.New("dial tcp: connection refused"),
			wantReason: "dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAPI{prErr: tt.err}
			out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

			if out.Kind != OutcomeAPIError {
				t.Fatalf("got %+v, want APIError", out)
			}
			if out.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", out.Reason, tt.wantReason)
			}
			if stub.mergeCalls != 0 {
				t.Errorf("merge called after failed fetch")
			}
		})
	}
}

func TestAttemptMergeMergeCallClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{
			name:     "405 not mergeable",
			err:      &GitHubAPIError{StatusCode: http.StatusMethodNotAllowed, Status: "405 Method Not Allowed", Body: `{"message":"Pull Request is not mergeable"}`},
			wantKind: OutcomeConflict,
		},
		{
			name:     "405 other reason",
			err:      &GitHubAPIError{StatusCode: http.StatusMethodNotAllowed, Status: "405 Method Not Allowed", Body: `{"message":"Required status check \"ci/test\" is expected."}`},
			wantKind: OutcomeChecksNotPassed,
		},
		{
			name:     "409 head moved",
			err:      &GitHubAPIError{StatusCode: http.StatusConflict, Status: "409 Conflict", Body: `{"message":"Head branch was modified"}`},
			wantKind: OutcomeConflict,
		},
		{
			name:     "rate limited",
			err:      &GitHubAPIError{StatusCode: http.StatusTooManyRequests, Status: "429 Too Many Requests", Body: `{"message":"API rate limit exceeded"}`},
			wantKind: OutcomeAPIError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubAPI{pr: openPR(boolPtr(true)), mergeErr: tt.err}
			out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

			if out.Kind != tt.wantKind {
				t.Fatalf("got %+v, want kind %q", out, tt.wantKind)
			}
			if stub.mergeCalls != 1 {
				t.Errorf("merge called %d times, want exactly 1", stub.mergeCalls)
			}
		})
	}
}

func TestAttemptMergeStubFailureReasonPassedThrough(t *testing.T) {
	stub := &stubAPI{
		pr:       openPR(boolPtr(true)),
		mergeErr: &GitHubAPIError{StatusCode: http.StatusBadGateway, Status: "502 Bad Gateway", Body: `{"message":"upstream timeout"}`},
	}
	out := newStubClient(stub).AttemptMerge(context.Background(), Reference{"acme", "widgets", 42})

	if out.Kind != OutcomeAPIError {
		t.Fatalf("got %+v, want APIError", out)
	}
	if out.Reason != "upstream timeout" {
		t.Errorf("Reason = %q, want stub-provided message", out.Reason)
	}
}
