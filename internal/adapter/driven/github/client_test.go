package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ghAdapter "prtrack/internal/adapter/driven/github"
	"prtrack/internal/domain/model"
)

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *ghAdapter.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := ghAdapter.NewClientWithHTTPClient(server.Client(), server.URL+"/")
	require.NoError(t, err)

	return client
}

// prJSON is a helper struct for building GitHub API pull request responses.
type prJSON struct {
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	Draft     bool       `json:"draft"`
	HTMLURL   string     `json:"html_url"`
	User      userJSON   `json:"user"`
	Assignees []userJSON `json:"assignees"`
	Head      refJSON    `json:"head"`
	MergedAt  *string    `json:"merged_at,omitempty"`
}

type userJSON struct {
	Login string `json:"login"`
}

type refJSON struct {
	Ref string `json:"ref"`
}

type reviewJSON struct {
	State string   `json:"state"`
	User  userJSON `json:"user"`
}

// pullsHandler wires the list endpoint with scripted review responses keyed
// by PR number.
func pullsHandler(prs []prJSON, reviews map[int][]reviewJSON) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prs)
	})
	mux.HandleFunc("/repos/owner/repo/pulls/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var number int
		if _, err := fmt.Sscanf(r.URL.Path, "/repos/owner/repo/pulls/%d", &number); err != nil {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(reviews[number])
	})
	return mux
}

func TestFetchPullRequests_MapsFieldsAndApprovals(t *testing.T) {
	prs := []prJSON{
		{
			Number:    42,
			Title:     "Add feature X",
			State:     "open",
			Draft:     false,
			HTMLURL:   "https://github.com/owner/repo/pull/42",
			User:      userJSON{Login: "alice"},
			Assignees: []userJSON{{Login: "bob"}},
			Head:      refJSON{Ref: "feature-x"},
		},
		{
			Number:  43,
			Title:   "Fix bug Y",
			State:   "open",
			Draft:   true,
			HTMLURL: "https://github.com/owner/repo/pull/43",
			User:    userJSON{Login: "bob"},
			Head:    refJSON{Ref: "fix-bug-y"},
		},
	}
	reviews := map[int][]reviewJSON{
		42: {
			{State: "APPROVED", User: userJSON{Login: "carol"}},
			{State: "CHANGES_REQUESTED", User: userJSON{Login: "dave"}},
			{State: "APPROVED", User: userJSON{Login: "erin"}},
		},
	}

	client := newTestClient(t, pullsHandler(prs, reviews))

	result, err := client.FetchPullRequests(context.Background(), model.ScopeKey{Repo: "owner/repo"})
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, 42, result[0].Number)
	assert.Equal(t, "owner/repo", result[0].Repo)
	assert.Equal(t, "Add feature X", result[0].Title)
	assert.Equal(t, "alice", result[0].Author)
	assert.Equal(t, []string{"bob"}, result[0].Assignees)
	assert.Equal(t, "feature-x", result[0].Branch)
	assert.False(t, result[0].Draft)
	assert.Equal(t, model.PRStateOpen, result[0].State)
	assert.Equal(t, 2, result[0].Approvals, "only APPROVED reviews count")
	assert.Equal(t, "https://github.com/owner/repo/pull/42", result[0].URL)

	assert.Equal(t, 43, result[1].Number)
	assert.True(t, result[1].Draft)
	assert.Equal(t, 0, result[1].Approvals)
}

func TestFetchPullRequests_Pagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if page := r.URL.Query().Get("page"); page == "" || page == "1" {
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
			json.NewEncoder(w).Encode([]prJSON{
				{Number: 1, Title: "PR One", State: "open", User: userJSON{Login: "dev1"}, Head: refJSON{Ref: "branch-1"}},
			})
			return
		}
		json.NewEncoder(w).Encode([]prJSON{
			{Number: 2, Title: "PR Two", State: "open", User: userJSON{Login: "dev2"}, Head: refJSON{Ref: "branch-2"}},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]reviewJSON{})
	})

	client := newTestClient(t, mux)

	result, err := client.FetchPullRequests(context.Background(), model.ScopeKey{Repo: "owner/repo"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Number)
	assert.Equal(t, 2, result[1].Number)
}

func TestFetchPullRequests_UserScopeFiltersByAuthorOrAssignee(t *testing.T) {
	prs := []prJSON{
		{Number: 1, Title: "By alice", State: "open", User: userJSON{Login: "alice"}, Head: refJSON{Ref: "a"}},
		{Number: 2, Title: "By bob", State: "open", User: userJSON{Login: "bob"}, Head: refJSON{Ref: "b"}},
		{Number: 3, Title: "Assigned to alice", State: "open", User: userJSON{Login: "bob"},
			Assignees: []userJSON{{Login: "alice"}}, Head: refJSON{Ref: "c"}},
	}

	client := newTestClient(t, pullsHandler(prs, nil))

	result, err := client.FetchPullRequests(context.Background(),
		model.ScopeKey{Repo: "owner/repo", User: "alice"})
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Number)
	assert.Equal(t, 3, result[1].Number)
}

func TestFetchPullRequests_EmptyRepositoryReturnsEmptySlice(t *testing.T) {
	client := newTestClient(t, pullsHandler(nil, nil))

	result, err := client.FetchPullRequests(context.Background(), model.ScopeKey{Repo: "owner/repo"})
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Empty(t, result)
}

func TestFetchPullRequest_Single(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prJSON{
			Number:  7,
			Title:   "Lucky seven",
			State:   "open",
			HTMLURL: "https://github.com/owner/repo/pull/7",
			User:    userJSON{Login: "alice"},
			Head:    refJSON{Ref: "lucky"},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/7/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]reviewJSON{
			{State: "APPROVED", User: userJSON{Login: "bob"}},
		})
	})

	client := newTestClient(t, mux)

	pr, err := client.FetchPullRequest(context.Background(), model.Identity{Repo: "owner/repo", Number: 7})
	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, "Lucky seven", pr.Title)
	assert.Equal(t, 1, pr.Approvals)
}

func TestFetchPullRequest_MergedStateWins(t *testing.T) {
	mergedAt := "2026-01-05T10:00:00Z"
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/pulls/8", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(prJSON{
			Number:   8,
			Title:    "Merged already",
			State:    "closed",
			MergedAt: &mergedAt,
			User:     userJSON{Login: "alice"},
			Head:     refJSON{Ref: "done"},
		})
	})
	mux.HandleFunc("/repos/owner/repo/pulls/8/reviews", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]reviewJSON{})
	})

	client := newTestClient(t, mux)

	pr, err := client.FetchPullRequest(context.Background(), model.Identity{Repo: "owner/repo", Number: 8})
	require.NoError(t, err)
	assert.Equal(t, model.PRStateMerged, pr.State)
}

func TestFetchPullRequests_StatusCodeMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   model.FailureKind
	}{
		{"unauthorized", http.StatusUnauthorized, model.FailureUnauthorized},
		{"forbidden", http.StatusForbidden, model.FailureUnauthorized},
		{"not found", http.StatusNotFound, model.FailureNotFound},
		{"server error", http.StatusInternalServerError, model.FailureTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "{}", tt.status)
			})

			client := newTestClient(t, handler)

			_, err := client.FetchPullRequests(context.Background(), model.ScopeKey{Repo: "owner/repo"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, model.KindOf(err), "status %d", tt.status)
		})
	}
}

func TestFetchPullRequest_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	client := newTestClient(t, handler)

	_, err := client.FetchPullRequest(context.Background(), model.Identity{Repo: "owner/repo", Number: 99})
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.FailureNotFound))
}

func TestFetchPullRequests_InvalidRepoName(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())

	_, err := client.FetchPullRequests(context.Background(), model.ScopeKey{Repo: "not-a-full-name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected owner/repo")
}
