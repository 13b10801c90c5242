package takeoff

import "fmt"

// Outcome kind constants. Every triggering message resolves to exactly one.
const (
	OutcomeNoAction        = "no_action"
	OutcomeUnauthorized    = "unauthorized"
	OutcomeMerged          = "merged"
	OutcomeAlreadyMerged   = "already_merged"
	OutcomeConflict        = "conflict"
	OutcomeChecksNotPassed = "checks_not_passed"
	OutcomeAPIError        = "api_error"
)

// Outcome is the single result type threading through the pipeline.
type Outcome struct {
	Kind   string
	Number int    // PR number; 0 when unknown
	Reason string // set for api_error only
}

// NoAction reports that the message did not trigger a merge.
func NoAction() Outcome {
	return Outcome{Kind: OutcomeNoAction}
}

// Unauthorized reports that the sender is not on the allow-list.
func Unauthorized() Outcome {
	return Outcome{Kind: OutcomeUnauthorized}
}

// Merged reports a successful merge of the given PR.
func Merged(number int) Outcome {
	return Outcome{Kind: OutcomeMerged, Number: number}
}

// AlreadyMerged reports that the PR was merged before this attempt.
func AlreadyMerged(number int) Outcome {
	return Outcome{Kind: OutcomeAlreadyMerged, Number: number}
}

// Conflict reports that the PR cannot be merged due to conflicts.
func Conflict(number int) Outcome {
	return Outcome{Kind: OutcomeConflict, Number: number}
}

// ChecksNotPassed reports that required status checks are pending or failing.
func ChecksNotPassed(number int) Outcome {
	return Outcome{Kind: OutcomeChecksNotPassed, Number: number}
}

// APIError reports a transport or API level failure. number may be 0 when
// the failure happened before a PR could be identified.
func APIError(number int, reason string) Outcome {
	return Outcome{Kind: OutcomeAPIError, Number: number, Reason: reason}
}

// Message renders the user-facing reply text for the outcome. NoAction
// renders empty, which means no reply is sent.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeUnauthorized:
		return "Sorry, you're not authorized to trigger merges."
	case OutcomeMerged:
		return fmt.Sprintf("PR #%d merged successfully.", o.Number)
	case OutcomeAlreadyMerged:
		return fmt.Sprintf("PR #%d is already merged.", o.Number)
	case OutcomeConflict:
		return fmt.Sprintf("Cannot merge PR #%d - there are conflicts.", o.Number)
	case OutcomeChecksNotPassed:
		return fmt.Sprintf("Cannot merge PR #%d - status checks have not passed.", o.Number)
	case OutcomeAPIError:
		if o.Number > 0 {
			return fmt.Sprintf("Failed to merge PR #%d: %s", o.Number, o.Reason)
		}
		return fmt.Sprintf("Failed to merge PR: %s", o.Reason)
	default:
		return ""
	}
}
