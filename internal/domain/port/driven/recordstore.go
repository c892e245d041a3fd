package driven

import (
	"context"
	"time"

	"prtrack/internal/domain/model"
)

// RecordStore defines the driven port for the local pull-request cache.
// It holds the last-known snapshot of every pull request keyed by identity,
// plus a per-scope member list and refresh timestamp. Implementations
// serialize writes so that concurrent updates to the same identity never
// interleave; the store performs no network access.
type RecordStore interface {
	// Upsert inserts or fully replaces each record by identity. A record is
	// never partially updated from fields of another.
	Upsert(ctx context.Context, records []model.PullRequest) error

	// Get returns the record for the identity, or nil, nil when absent.
	Get(ctx context.Context, id model.Identity) (*model.PullRequest, error)

	// ListByScope returns the scope's records in the member order recorded
	// by the most recent successful ReplaceScope (server-reported order).
	ListByScope(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error)

	// Delete removes a single record and its scope memberships. Deleting an
	// absent identity is not an error.
	Delete(ctx context.Context, id model.Identity) error

	// PurgeRepository removes every record and scope entry belonging to the
	// repository. Used when a repository is removed from configuration.
	PurgeRepository(ctx context.Context, repo string) error

	// LastRefreshed returns the scope's last successful refresh time, or the
	// zero time when the scope has never been refreshed.
	LastRefreshed(ctx context.Context, scope model.ScopeKey) (time.Time, error)

	// ReplaceScope atomically replaces the scope's member list and stamps its
	// refresh time. Only successful fetches call this.
	ReplaceScope(ctx context.Context, scope model.ScopeKey, ids []model.Identity, refreshedAt time.Time) error

	// DeleteOlderThan removes records whose snapshot is older than the cutoff,
	// along with scope entries not refreshed since then. Returns the number of
	// records removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
