// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"golang.org/x/sync/errgroup"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"prtrack/internal/domain/model"
	"prtrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// reviewFetchConcurrency bounds the parallel review-listing calls issued per
// repository fetch. Review counts dominate request volume, one call per PR.
const reviewFetchConcurrency = 5

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// An empty token yields unauthenticated requests with stricter rate limits.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchPullRequests retrieves the open pull requests for the scope's
// repository in server-reported order, handling pagination automatically.
// Approval counts are loaded concurrently, one reviews call per PR. When the
// scope carries a user filter, the result keeps only pull requests authored
// by or assigned to that user.
func (c *Client) FetchPullRequests(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error) {
	owner, repo, err := splitRepo(scope.Repo)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:       "open",
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var allPRs []model.PullRequest

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, mapError(fmt.Errorf("listing pull requests for %s (page %d): %w", scope.Repo, opts.Page, err), resp)
		}

		logRateLimit(resp, scope.Repo, opts.Page, len(prs))

		for _, pr := range prs {
			mapped := mapPullRequest(pr, scope.Repo)
			if scope.Matches(mapped) {
				allPRs = append(allPRs, mapped)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if err := c.fillApprovals(ctx, owner, repo, allPRs); err != nil {
		return nil, err
	}

	if allPRs == nil {
		allPRs = []model.PullRequest{}
	}

	return allPRs, nil
}

// FetchPullRequest retrieves the current state of a single pull request,
// including its approval count. An upstream 404 yields a FailureNotFound error.
func (c *Client) FetchPullRequest(ctx context.Context, id model.Identity) (*model.PullRequest, error) {
	owner, repo, err := splitRepo(id.Repo)
	if err != nil {
		return nil, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, id.Number)
	if err != nil {
		return nil, mapError(fmt.Errorf("fetching pull request %s: %w", id, err), resp)
	}

	logRateLimit(resp, id.Repo, 0, 1)

	mapped := mapPullRequest(pr, id.Repo)

	approvals, err := c.countApprovals(ctx, owner, repo, id.Number)
	if err != nil {
		return nil, err
	}
	mapped.Approvals = approvals

	return &mapped, nil
}

// fillApprovals populates Approvals on each PR with a bounded number of
// concurrent review-listing calls.
func (c *Client) fillApprovals(ctx context.Context, owner, repo string, prs []model.PullRequest) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(reviewFetchConcurrency)

	for i := range prs {
		g.Go(func() error {
			approvals, err := c.countApprovals(ctx, owner, repo, prs[i].Number)
			if err != nil {
				return err
			}
			prs[i].Approvals = approvals
			return nil
		})
	}

	return g.Wait()
}

// countApprovals counts reviews in state APPROVED for a pull request.
func (c *Client) countApprovals(ctx context.Context, owner, repo string, number int) (int, error) {
	opts := &gh.ListOptions{PerPage: 100}
	approvals := 0

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return 0, mapError(fmt.Errorf("listing reviews for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err), resp)
		}

		for _, r := range reviews {
			if strings.EqualFold(r.GetState(), "approved") {
				approvals++
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return approvals, nil
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	state := model.PRStateOpen
	if !pr.GetMergedAt().IsZero() {
		state = model.PRStateMerged
	} else if pr.GetState() == "closed" {
		state = model.PRStateClosed
	}

	assignees := make([]string, 0, len(pr.Assignees))
	for _, a := range pr.Assignees {
		assignees = append(assignees, a.GetLogin())
	}

	return model.PullRequest{
		Repo:      repoFullName,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Author:    pr.GetUser().GetLogin(),
		Assignees: assignees,
		Branch:    pr.GetHead().GetRef(),
		Draft:     pr.GetDraft(),
		State:     state,
		URL:       pr.GetHTMLURL(),
	}
}

// mapError categorizes a go-github error into the refresh failure taxonomy.
// Rate limit errors come first since go-github models them as distinct types;
// everything without an HTTP status is treated as a transport failure.
func mapError(err error, resp *gh.Response) error {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return model.NewRefreshError(model.FailureRateLimited, err)
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return model.NewRefreshError(model.FailureUnauthorized, err)
		case http.StatusNotFound, http.StatusGone:
			return model.NewRefreshError(model.FailureNotFound, err)
		case http.StatusTooManyRequests:
			return model.NewRefreshError(model.FailureRateLimited, err)
		}
	}

	return model.NewRefreshError(model.FailureTransport, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
