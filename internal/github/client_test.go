package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func repoJSON(name string, issues, prs int) string {
	return fmt.Sprintf(`{
		"url": "https://github.com/owner/%s",
		"name": "%s",
		"defaultBranchRef": {"name": "main", "target": {"oid": "abc123"}},
		"latestRelease": {"name": "v1.0.0", "publishedAt": "2024-06-01T12:00:00Z"},
		"issues": {"totalCount": %d},
		"pullRequests": {"totalCount": %d}
	}`, name, name, issues, prs)
}

func searchJSON(hasMore bool, cursor string, repos ...string) string {
	nodes := ""
	for i, r := range repos {
		if i > 0 {
			nodes += ","
		}
		nodes += r
	}
	return fmt.Sprintf(`{"data": {"search": {
		"pageInfo": {"hasNextPage": %t, "endCursor": "%s"},
		"nodes": [%s]
	}}}`, hasMore, cursor, nodes)
}

func TestSearchRepositoriesParsesPage(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "user:alice", req.Variables["query"])
		assert.Equal(t, float64(50), req.Variables["first"])
		_, hasCursor := req.Variables["cursor"]
		assert.False(t, hasCursor, "first page sends no cursor")

		fmt.Fprint(w, searchJSON(true, "CURSOR1", repoJSON("alpha", 3, 2)))
	}))
	defer srv.Close()

	c := NewClient("tok", testLogger()).WithBaseURL(srv.URL)
	page, err := c.SearchRepositories(context.Background(), "user:alice", 50, "")
	require.NoError(t, err)

	assert.Equal(t, "bearer tok", gotAuth)
	assert.True(t, page.HasMore)
	assert.Equal(t, "CURSOR1", page.EndCursor)
	require.Len(t, page.Repos, 1)

	r := page.Repos[0]
	assert.Equal(t, "https://github.com/owner/alpha", r.URL)
	assert.Equal(t, "alpha", r.Name)
	assert.Equal(t, "main", r.DefaultBranch)
	assert.Equal(t, "abc123", r.HeadOID)
	assert.Equal(t, "v1.0.0", r.LatestRelease)
	assert.Equal(t, 2024, r.LatestReleaseAt.Year())
	assert.Equal(t, 3, r.OpenIssues)
	assert.Equal(t, 2, r.OpenPRs)
}

func TestSearchRepositoriesSendsCursor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "CURSOR1", req.Variables["cursor"])
		fmt.Fprint(w, searchJSON(false, "", repoJSON("beta", 0, 0)))
	}))
	defer srv.Close()

	c := NewClient("tok", testLogger()).WithBaseURL(srv.URL)
	page, err := c.SearchRepositories(context.Background(), "user:alice", 50, "CURSOR1")
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestSearchRepositoriesNoToken(t *testing.T) {
	c := NewClient("", testLogger())
	_, err := c.SearchRepositories(context.Background(), "user:alice", 50, "")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestSearchRepositoriesNullableFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {
			"pageInfo": {"hasNextPage": false, "endCursor": ""},
			"nodes": [{
				"url": "https://github.com/owner/bare",
				"name": "bare",
				"defaultBranchRef": null,
				"latestRelease": null,
				"issues": {"totalCount": 0},
				"pullRequests": {"totalCount": 0}
			}]
		}}}`)
	}))
	defer srv.Close()

	c := NewClient("tok", testLogger()).WithBaseURL(srv.URL)
	page, err := c.SearchRepositories(context.Background(), "q", 50, "")
	require.NoError(t, err)
	require.Len(t, page.Repos, 1)
	assert.Empty(t, page.Repos[0].DefaultBranch)
	assert.Empty(t, page.Repos[0].LatestRelease)
	assert.True(t, page.Repos[0].LatestReleaseAt.IsZero())
}

func TestSearchRepositoriesRateLimitRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, searchJSON(false, "", repoJSON("gamma", 1, 1)))
	}))
	defer srv.Close()

	c := NewClient("tok", testLogger()).WithBaseURL(srv.URL)
	page, err := c.SearchRepositories(context.Background(), "q", 50, "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, page.Repos, 1)
}

func TestSearchRepositoriesAuthFailureIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	}))
	defer srv.Close()

	c := NewClient("bad", testLogger()).WithBaseURL(srv.URL)
	_, err := c.SearchRepositories(context.Background(), "q", 50, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "auth failures are not retried")
}

func TestSearchRepositoriesGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "Something went wrong"}]}`)
	}))
	defer srv.Close()

	c := NewClient("tok", testLogger()).WithBaseURL(srv.URL)
	_, err := c.SearchRepositories(context.Background(), "q", 50, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "Something went wrong")
}

func TestTokenFromEnv(t *testing.T) {
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	_, err := TokenFromEnv()
	assert.ErrorIs(t, err, ErrNoToken)

	t.Setenv("GITHUB_TOKEN", "fallback")
	tok, err := TokenFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "fallback", tok)

	t.Setenv("GH_TOKEN", "primary")
	tok, err = TokenFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "primary", tok)
}
