package model

import "time"

// ScopeKey identifies one unit of staleness and single-flight fetching:
// a repository plus an optional user filter. Two scopes over the same
// repository with different users refresh independently but share the
// underlying PullRequest identities.
type ScopeKey struct {
	Repo string
	User string // empty means no user filter
}

// Key returns the canonical string form used for single-flight grouping
// and cache metadata rows.
func (s ScopeKey) Key() string {
	if s.User == "" {
		return "repo:" + s.Repo
	}
	return "repo:" + s.Repo + ":user:" + s.User
}

// Matches reports whether a pull request belongs in this scope's listing.
func (s ScopeKey) Matches(pr PullRequest) bool {
	if pr.Repo != s.Repo {
		return false
	}
	if s.User == "" {
		return true
	}
	return pr.InvolvesUser(s.User)
}

// RefreshOutcome is the result of an EnsureFresh call: the scope's current
// records plus provenance. When a fetch fails, Records and RefreshedAt carry
// the untouched cached data and the failure is returned alongside.
type RefreshOutcome struct {
	Scope       ScopeKey
	Records     []PullRequest
	RefreshedAt time.Time
	FromCache   bool
}

// Stale reports whether the outcome's data is older than the threshold at
// the given instant. A zero RefreshedAt (never fetched) is always stale.
func (o RefreshOutcome) Stale(now time.Time, threshold time.Duration) bool {
	if o.RefreshedAt.IsZero() {
		return true
	}
	return now.Sub(o.RefreshedAt) > threshold
}
