package application_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prtrack/internal/domain/model"
	"prtrack/internal/domain/port/driven"
)

// --- Mock implementations shared by the application tests ---

// stubClient is a scripted GitHubClient that counts calls.
type stubClient struct {
	mu         sync.Mutex
	fetchCalls int
	singles    int

	fetch       func(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error)
	fetchSingle func(ctx context.Context, id model.Identity) (*model.PullRequest, error)
}

func (c *stubClient) FetchPullRequests(ctx context.Context, scope model.ScopeKey) ([]model.PullRequest, error) {
	c.mu.Lock()
	c.fetchCalls++
	c.mu.Unlock()
	return c.fetch(ctx, scope)
}

func (c *stubClient) FetchPullRequest(ctx context.Context, id model.Identity) (*model.PullRequest, error) {
	c.mu.Lock()
	c.singles++
	c.mu.Unlock()
	return c.fetchSingle(ctx, id)
}

func (c *stubClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchCalls
}

// memStore is an in-memory RecordStore used by coordinator and view tests.
type memStore struct {
	mu        sync.Mutex
	records   map[model.Identity]model.PullRequest
	members   map[string][]model.Identity
	refreshes map[string]time.Time
}

var _ driven.RecordStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		records:   make(map[model.Identity]model.PullRequest),
		members:   make(map[string][]model.Identity),
		refreshes: make(map[string]time.Time),
	}
}

func (s *memStore) Upsert(_ context.Context, records []model.PullRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pr := range records {
		s.records[pr.Identity()] = pr
	}
	return nil
}

func (s *memStore) Get(_ context.Context, id model.Identity) (*model.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pr, ok := s.records[id]; ok {
		return &pr, nil
	}
	return nil, nil
}

func (s *memStore) ListByScope(_ context.Context, scope model.ScopeKey) ([]model.PullRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PullRequest
	for _, id := range s.members[scope.Key()] {
		if pr, ok := s.records[id]; ok {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, id model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	for key, ids := range s.members {
		kept := ids[:0]
		for _, m := range ids {
			if m != id {
				kept = append(kept, m)
			}
		}
		s.members[key] = kept
	}
	return nil
}

func (s *memStore) PurgeRepository(_ context.Context, repo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.records {
		if id.Repo == repo {
			delete(s.records, id)
		}
	}
	for key, ids := range s.members {
		kept := ids[:0]
		for _, m := range ids {
			if m.Repo != repo {
				kept = append(kept, m)
			}
		}
		s.members[key] = kept
	}
	return nil
}

func (s *memStore) LastRefreshed(_ context.Context, scope model.ScopeKey) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes[scope.Key()], nil
}

func (s *memStore) ReplaceScope(_ context.Context, scope model.ScopeKey, ids []model.Identity, refreshedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[scope.Key()] = append([]model.Identity(nil), ids...)
	s.refreshes[scope.Key()] = refreshedAt
	return nil
}

func (s *memStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, pr := range s.records {
		if pr.FetchedAt.Before(cutoff) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

// seedScope installs records and a refresh stamp directly, simulating a past
// successful merge.
func (s *memStore) seedScope(scope model.ScopeKey, refreshedAt time.Time, prs ...model.PullRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]model.Identity, len(prs))
	for i, pr := range prs {
		s.records[pr.Identity()] = pr
		ids[i] = pr.Identity()
	}
	s.members[scope.Key()] = ids
	s.refreshes[scope.Key()] = refreshedAt
}

// makePR builds a minimal open pull request for tests.
func makePR(repo string, number int, approvals int) model.PullRequest {
	return model.PullRequest{
		Repo:      repo,
		Number:    number,
		Title:     "Test PR",
		Author:    "octocat",
		Assignees: []string{},
		Branch:    "feature",
		State:     model.PRStateOpen,
		Approvals: approvals,
		URL:       fmt.Sprintf("https://github.com/%s/pull/%d", repo, number),
	}
}
