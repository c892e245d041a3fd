package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"prtrack/internal/domain/model"
	"prtrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RecordStore = (*RecordRepo)(nil)

// RecordRepo is the SQLite implementation of the RecordStore port.
type RecordRepo struct {
	db *DB
}

// NewRecordRepo creates a new RecordRepo backed by the given DB.
func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Upsert inserts or fully replaces each record by identity. Assignees are
// serialized as a JSON array in the TEXT column. The fetched_at column never
// moves backwards for an identity, so replays of older fetch results cannot
// regress a record's snapshot time.
func (r *RecordRepo) Upsert(ctx context.Context, records []model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (
			repo, number, title, author, assignees, branch, draft, state, approvals, url, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo, number) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			assignees = excluded.assignees,
			branch = excluded.branch,
			draft = excluded.draft,
			state = excluded.state,
			approvals = excluded.approvals,
			url = excluded.url,
			fetched_at = MAX(excluded.fetched_at, pull_requests.fetched_at)
	`

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, pr := range records {
		assignees := pr.Assignees
		if assignees == nil {
			assignees = []string{}
		}
		assigneesJSON, err := json.Marshal(assignees)
		if err != nil {
			return fmt.Errorf("marshal assignees: %w", err)
		}

		draft := 0
		if pr.Draft {
			draft = 1
		}

		_, err = stmt.ExecContext(ctx,
			pr.Repo, pr.Number, pr.Title, pr.Author, string(assigneesJSON),
			pr.Branch, draft, string(pr.State), pr.Approvals, pr.URL,
			pr.FetchedAt.UTC().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert pull request %s: %w", pr.Identity(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}

	return nil
}

// Get retrieves a single record by identity. Returns nil, nil when absent.
func (r *RecordRepo) Get(ctx context.Context, id model.Identity) (*model.PullRequest, error) {
	const query = `
		SELECT repo, number, title, author, assignees, branch, draft, state, approvals, url, fetched_at
		FROM pull_requests
		WHERE repo = ? AND number = ?
	`

	pr, err := scanRecord(r.db.Reader.QueryRowContext(ctx, query, id.Repo, id.Number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request %s: %w", id, err)
	}

	return pr, nil
}

// ListByScope returns the scope's records ordered by the member positions
// recorded at the most recent successful ReplaceScope.
func (r *RecordRepo) ListByScope(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error) {
	const query = `
		SELECT p.repo, p.number, p.title, p.author, p.assignees, p.branch, p.draft, p.state, p.approvals, p.url, p.fetched_at
		FROM scope_members m
		JOIN pull_requests p ON p.repo = m.repo AND p.number = m.number
		WHERE m.scope_key = ?
		ORDER BY m.position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, scope.Key())
	if err != nil {
		return nil, fmt.Errorf("query scope %s: %w", scope.Key(), err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// Delete removes a record and its scope memberships. Absent identities are a no-op.
func (r *RecordRepo) Delete(ctx context.Context, id model.Identity) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scope_members WHERE repo = ? AND number = ?`, id.Repo, id.Number); err != nil {
		return fmt.Errorf("delete scope members for %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pull_requests WHERE repo = ? AND number = ?`, id.Repo, id.Number); err != nil {
		return fmt.Errorf("delete pull request %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	return nil
}

// PurgeRepository removes every record and scope entry belonging to the repository.
func (r *RecordRepo) PurgeRepository(ctx context.Context, repo string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin purge tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM scope_members WHERE repo = ?`,
		`DELETE FROM scope_refreshes WHERE repo = ?`,
		`DELETE FROM pull_requests WHERE repo = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, repo); err != nil {
			return fmt.Errorf("purge repository %s: %w", repo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purge: %w", err)
	}

	return nil
}

// LastRefreshed returns the scope's last successful refresh time, or the zero
// time when the scope has never been refreshed.
func (r *RecordRepo) LastRefreshed(ctx context.Context, scope model.ScopeKey) (time.Time, error) {
	const query = `SELECT refreshed_at FROM scope_refreshes WHERE scope_key = ?`

	var epoch int64
	err := r.db.Reader.QueryRowContext(ctx, query, scope.Key()).Scan(&epoch)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last refresh for %s: %w", scope.Key(), err)
	}

	return time.Unix(epoch, 0).UTC(), nil
}

// ReplaceScope atomically replaces the scope's member list and refresh stamp.
func (r *RecordRepo) ReplaceScope(ctx context.Context, scope model.ScopeKey, ids []model.Identity, refreshedAt time.Time) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scope_members WHERE scope_key = ?`, scope.Key()); err != nil {
		return fmt.Errorf("clear scope members for %s: %w", scope.Key(), err)
	}

	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scope_members (scope_key, position, repo, number) VALUES (?, ?, ?, ?)`,
			scope.Key(), pos, id.Repo, id.Number); err != nil {
			return fmt.Errorf("insert scope member %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`REPLACE INTO scope_refreshes (scope_key, repo, refreshed_at) VALUES (?, ?, ?)`,
		scope.Key(), scope.Repo, refreshedAt.UTC().Unix()); err != nil {
		return fmt.Errorf("stamp scope refresh for %s: %w", scope.Key(), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	return nil
}

// DeleteOlderThan removes records last fetched before the cutoff, their scope
// memberships, and scope stamps not refreshed since then.
func (r *RecordRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin cleanup tx: %w", err)
	}
	defer tx.Rollback()

	epoch := cutoff.UTC().Unix()

	res, err := tx.ExecContext(ctx, `DELETE FROM pull_requests WHERE fetched_at < ?`, epoch)
	if err != nil {
		return 0, fmt.Errorf("delete old pull requests: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count removed pull requests: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scope_members WHERE NOT EXISTS (
			SELECT 1 FROM pull_requests p WHERE p.repo = scope_members.repo AND p.number = scope_members.number
		)`); err != nil {
		return 0, fmt.Errorf("delete orphaned scope members: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scope_refreshes WHERE refreshed_at < ?`, epoch); err != nil {
		return 0, fmt.Errorf("delete old scope stamps: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}

	return removed, nil
}

// CacheStats summarizes the cache contents for the stats command.
type CacheStats struct {
	Records      int
	Repositories int
	Scopes       int
}

// Stats returns record, repository, and scope counts.
func (r *RecordRepo) Stats(ctx context.Context) (CacheStats, error) {
	var stats CacheStats

	row := r.db.Reader.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM pull_requests),
			(SELECT COUNT(DISTINCT repo) FROM pull_requests),
			(SELECT COUNT(*) FROM scope_refreshes)
	`)
	if err := row.Scan(&stats.Records, &stats.Repositories, &stats.Scopes); err != nil {
		return CacheStats{}, fmt.Errorf("query cache stats: %w", err)
	}

	return stats, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var assigneesJSON, state string
	var draft int
	var fetchedAt int64

	err := s.Scan(
		&pr.Repo, &pr.Number, &pr.Title, &pr.Author, &assigneesJSON,
		&pr.Branch, &draft, &state, &pr.Approvals, &pr.URL, &fetchedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.Draft = draft != 0
	pr.State = model.PRState(state)
	pr.FetchedAt = time.Unix(fetchedAt, 0).UTC()

	if err := json.Unmarshal([]byte(assigneesJSON), &pr.Assignees); err != nil {
		return nil, fmt.Errorf("unmarshal assignees: %w", err)
	}

	return &pr, nil
}
