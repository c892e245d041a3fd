// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"prtrack/internal/domain/model"
)

// GitHubClient defines the driven port for fetching pull-request data.
// Retry and backoff policy is internal to implementations; callers only
// observe success or a categorized failure.
type GitHubClient interface {
	// FetchPullRequests returns the open pull requests for the scope's
	// repository in server-reported order, filtered to the scope's user
	// (author or assignee) when one is set.
	FetchPullRequests(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error)

	// FetchPullRequest returns the current state of a single pull request.
	// A pull request deleted upstream yields a FailureNotFound error.
	FetchPullRequest(ctx context.Context, id model.Identity) (*model.PullRequest, error)
}
