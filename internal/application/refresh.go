// Package application contains use-case orchestration services.
package application

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"prtrack/internal/domain/model"
	"prtrack/internal/domain/port/driven"
)

// DefaultStalenessThreshold is the maximum age of a scope's cached data
// before EnsureFresh triggers a network fetch.
const DefaultStalenessThreshold = 300 * time.Second

// RefreshCoordinator decides when cached scope data is stale, issues at most
// one concurrent fetch per scope, and merges results into the record store.
// Failures never discard cached data; the stale view is returned alongside
// the categorized error.
type RefreshCoordinator struct {
	client    driven.GitHubClient
	store     driven.RecordStore
	threshold time.Duration
	group     singleflight.Group
	now       func() time.Time
}

// NewRefreshCoordinator creates a coordinator over the given client and store.
// A non-positive threshold falls back to DefaultStalenessThreshold.
func NewRefreshCoordinator(client driven.GitHubClient, store driven.RecordStore, threshold time.Duration) *RefreshCoordinator {
	if threshold <= 0 {
		threshold = DefaultStalenessThreshold
	}
	return &RefreshCoordinator{
		client:    client,
		store:     store,
		threshold: threshold,
		now:       time.Now,
	}
}

// fetchResult carries a scope fetch's result through the single-flight group.
// The fetch error rides inside so that every attached caller can still be
// handed the stale cached view alongside it.
type fetchResult struct {
	records     []model.PullRequest
	refreshedAt time.Time
	err         error
}

// EnsureFresh returns the scope's records, fetching from the API client only
// when the cache is stale or force is set. Concurrent callers for the same
// scope share a single in-flight fetch. A caller whose context ends while
// waiting abandons the result without canceling the underlying fetch, which
// still completes and merges for the remaining callers.
func (c *RefreshCoordinator) EnsureFresh(ctx context.Context, scope model.ScopeKey, force bool) (model.RefreshOutcome, error) {
	last, err := c.store.LastRefreshed(ctx, scope)
	if err != nil {
		return model.RefreshOutcome{}, err
	}

	if !force && !last.IsZero() && c.now().Sub(last) <= c.threshold {
		records, err := c.store.ListByScope(ctx, scope)
		if err != nil {
			return model.RefreshOutcome{}, err
		}
		return model.RefreshOutcome{
			Scope:       scope,
			Records:     records,
			RefreshedAt: last,
			FromCache:   true,
		}, nil
	}

	// The fetch runs on a detached context: callers may abandon it, but other
	// callers attached to the same flight still need the merged result.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(scope.Key(), func() (any, error) {
		return c.refreshScope(fetchCtx, scope), nil
	})

	select {
	case <-ctx.Done():
		return model.RefreshOutcome{}, ctx.Err()
	case v := <-ch:
		res := v.Val.(*fetchResult)
		if res.err != nil {
			// Stale data is preferred over no data: hand back the untouched
			// cache together with the failure.
			records, lerr := c.store.ListByScope(ctx, scope)
			if lerr != nil {
				slog.Error("stale cache read failed", "scope", scope.Key(), "error", lerr)
				records = nil
			}
			return model.RefreshOutcome{
				Scope:       scope,
				Records:     records,
				RefreshedAt: last,
				FromCache:   true,
			}, res.err
		}
		return model.RefreshOutcome{
			Scope:       scope,
			Records:     res.records,
			RefreshedAt: res.refreshedAt,
		}, nil
	}
}

// refreshScope performs the network fetch and merge for one scope. Store
// failures surface like fetch failures: the previous cache entry remains
// authoritative until a merge fully succeeds.
func (c *RefreshCoordinator) refreshScope(ctx context.Context, scope model.ScopeKey) *fetchResult {
	start := c.now()

	records, err := c.client.FetchPullRequests(ctx, scope)
	if err != nil {
		slog.Error("scope fetch failed", "scope", scope.Key(), "kind", model.KindOf(err), "error", err)
		return &fetchResult{err: err}
	}

	refreshedAt := c.now()
	ids := make([]model.Identity, len(records))
	for i := range records {
		records[i].FetchedAt = refreshedAt
		ids[i] = records[i].Identity()
	}

	if err := c.store.Upsert(ctx, records); err != nil {
		return &fetchResult{err: err}
	}
	if err := c.store.ReplaceScope(ctx, scope, ids, refreshedAt); err != nil {
		return &fetchResult{err: err}
	}

	slog.Info("scope refreshed",
		"scope", scope.Key(),
		"records", len(records),
		"duration", refreshedAt.Sub(start).Round(time.Millisecond),
	)

	return &fetchResult{records: records, refreshedAt: refreshedAt}
}

// RefreshOne fetches a single pull request's current state and replaces that
// one record without touching the owning scope's refresh stamp or member
// list. When upstream reports the pull request gone, the record is removed
// from the store and from scope listings; selection snapshots referencing it
// stay frozen and valid.
func (c *RefreshCoordinator) RefreshOne(ctx context.Context, id model.Identity) (*model.PullRequest, error) {
	pr, err := c.client.FetchPullRequest(ctx, id)
	if err != nil {
		if model.IsKind(err, model.FailureNotFound) {
			if derr := c.store.Delete(ctx, id); derr != nil {
				slog.Error("removing deleted pull request failed", "pr", id, "error", derr)
			} else {
				slog.Info("pull request deleted upstream, removed from cache", "pr", id)
			}
		}
		return nil, err
	}

	pr.FetchedAt = c.now()
	if err := c.store.Upsert(ctx, []model.PullRequest{*pr}); err != nil {
		return nil, err
	}

	return pr, nil
}
