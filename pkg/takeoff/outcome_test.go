package takeoff

import "testing"

func TestOutcomeMessage(t *testing.T) {
	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "unauthorized",
			outcome: Unauthorized(),
			want:    "Sorry, you're not authorized to trigger merges.",
		},
		{
			name:    "merged",
			outcome: Merged(42),
			want:    "PR #42 merged successfully.",
		},
		{
			name:    "already merged",
			outcome: AlreadyMerged(7),
			want:    "PR #7 is already merged.",
		},
		{
			name:    "conflict",
			outcome: Conflict(13),
			want:    "Cannot merge PR #13 - there are conflicts.",
		},
		{
			name:    "checks not passed",
			outcome: ChecksNotPassed(13),
			want:    "Cannot merge PR #13 - status checks have not passed.",
		},
		{
			name:    "api error with number",
			outcome: APIError(13, "HTTP 502 Bad Gateway"),
			want:    "Failed to merge PR #13: HTTP 502 Bad Gateway",
		},
		{
			name:    "api error without number",
			outcome: APIError(0, "connection refused"),
			want:    "Failed to merge PR: connection refused",
		},
		{
			name:    "no action renders empty",
			outcome: NoAction(),
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outcome.Message(); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
