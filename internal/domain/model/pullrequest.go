package model

import (
	"fmt"
	"time"
)

// PRState represents the state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
	PRStateMerged PRState = "merged"
)

// Identity uniquely identifies a pull request: repository plus number.
// It is immutable once created and shared across all scopes that list the PR.
type Identity struct {
	Repo   string // "owner/repo"
	Number int
}

// String returns the "owner/repo#number" form used in logs and errors.
func (id Identity) String() string {
	return fmt.Sprintf("%s#%d", id.Repo, id.Number)
}

// PullRequest is the last-known snapshot of a tracked pull request.
type PullRequest struct {
	Repo      string
	Number    int
	Title     string
	Author    string
	Assignees []string
	Branch    string
	Draft     bool
	State     PRState
	Approvals int
	URL       string
	FetchedAt time.Time
}

// Identity returns the record's identity key.
func (pr PullRequest) Identity() Identity {
	return Identity{Repo: pr.Repo, Number: pr.Number}
}

// InvolvesUser reports whether the given login is the author of or an
// assignee on the pull request. Matching is exact, as GitHub logins are
// unique and case-preserved in API responses.
func (pr PullRequest) InvolvesUser(login string) bool {
	if pr.Author == login {
		return true
	}
	for _, a := range pr.Assignees {
		if a == login {
			return true
		}
	}
	return false
}
