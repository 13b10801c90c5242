package takeoff

import "strings"

// Allowlist is the set of Slack user IDs permitted to trigger merges.
// It is built once at startup and never mutated afterwards.
type Allowlist map[string]struct{}

// NewAllowlist parses a comma-separated list of user IDs. Blank entries are
// dropped; surrounding whitespace is trimmed.
func NewAllowlist(ids string) Allowlist {
	allow := make(Allowlist)
	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			allow[id] = struct{}{}
		}
	}
	return allow
}

// Allowed reports whether the given user ID may trigger merges. Membership
// is an exact, case-sensitive match. An empty allow-list means no one is
// allowed (fail-safe default).
func (a Allowlist) Allowed(userID string) bool {
	_, ok := a[userID]
	return ok
}
