package gateway

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galaxyproject/activity-stats/internal/domain"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP
// server, with retry backoff replaced by a no-op sleep.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())
	logger := log.New(io.Discard, "", 0)

	limiter := NewRateLimiter(0, logger)
	retry := newRetrier(limiter, 3, logger)
	retry.sleep = func(context.Context, time.Duration) error { return nil }

	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		limiter:       limiter,
		retry:         retry,
		logger:        logger,
	}, server
}

func testWindow() domain.DateRange {
	return domain.NewDateRange(
		time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC),
	)
}

func TestGitHubGateway_ListRepositories(t *testing.T) {
	t.Run("paginates and filters archived and empty repos", func(t *testing.T) {
		pages := []string{
			`{"data":{"organization":{"repositories":{
				"pageInfo":{"hasNextPage":true,"endCursor":"CURSOR1"},
				"nodes":[
					{"name":"galaxy","isArchived":false,"isEmpty":false,"defaultBranchRef":{"name":"dev"}},
					{"name":"attic","isArchived":true,"isEmpty":false,"defaultBranchRef":{"name":"main"}}
				]}}}}`,
			`{"data":{"organization":{"repositories":{
				"pageInfo":{"hasNextPage":false,"endCursor":""},
				"nodes":[
					{"name":"placeholder","isArchived":false,"isEmpty":true,"defaultBranchRef":{"name":"main"}},
					{"name":"tools-iuc","isArchived":false,"isEmpty":false,"defaultBranchRef":{"name":"main"}}
				]}}}}`,
		}
		calls := 0
		handler := func(w http.ResponseWriter, r *http.Request) {
			require.Less(t, calls, len(pages))
			if calls == 1 {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "CURSOR1")
			}
			fmt.Fprint(w, pages[calls])
			calls++
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		repos, err := gateway.ListRepositories(context.Background(), "galaxyproject")
		require.NoError(t, err)

		// API order preserved, archived and empty repos dropped.
		require.Len(t, repos, 2)
		assert.Equal(t, "galaxy", repos[0].Name)
		assert.Equal(t, "dev", repos[0].DefaultBranch)
		assert.Equal(t, "tools-iuc", repos[1].Name)
		assert.Equal(t, "galaxyproject/galaxy", repos[0].FullName())
	})

	t.Run("persistent failure is a listing failure", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"errors":[{"message":"Something went wrong"}]}`)
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		_, err := gateway.ListRepositories(context.Background(), "galaxyproject")
		var listErr *ListingFailedError
		require.ErrorAs(t, err, &listErr)
		assert.Equal(t, "galaxyproject", listErr.Org)
	})
}

func TestGitHubGateway_FetchActivity(t *testing.T) {
	repo := domain.Repository{Owner: "galaxyproject", Name: "galaxy"}

	t.Run("classifies issues and pull requests in the window", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/repos/galaxyproject/galaxy/issues", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "all", r.URL.Query().Get("state"))
			assert.Equal(t, "2025-01-20T00:00:00Z", r.URL.Query().Get("since"))
			fmt.Fprint(w, `[
				{"number":1,"title":"Upload fails","user":{"login":"alice"},"created_at":"2025-01-21T10:00:00Z","html_url":"https://github.com/galaxyproject/galaxy/issues/1"},
				{"number":2,"title":"Old bug","user":{"login":"bob"},"created_at":"2025-01-10T10:00:00Z","closed_at":"2025-01-22T10:00:00Z","html_url":"https://github.com/galaxyproject/galaxy/issues/2"},
				{"number":3,"title":"Actually a PR","user":{"login":"carol"},"created_at":"2025-01-23T10:00:00Z","html_url":"https://github.com/galaxyproject/galaxy/pull/3","pull_request":{"url":"https://api.github.com/repos/galaxyproject/galaxy/pulls/3"}}
			]`)
		})
		mux.HandleFunc("/repos/galaxyproject/galaxy/pulls", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "created", r.URL.Query().Get("sort"))
			fmt.Fprint(w, `[
				{"number":10,"title":"Add tool panel","user":{"login":"carol"},"created_at":"2025-01-24T10:00:00Z","merged_at":"2025-01-25T10:00:00Z","html_url":"https://github.com/galaxyproject/galaxy/pull/10"},
				{"number":11,"title":"Ancient refactor","user":{"login":"dave"},"created_at":"2025-01-10T10:00:00Z","html_url":"https://github.com/galaxyproject/galaxy/pull/11"}
			]`)
		})
		gateway, _ := setupTestGateway(t, mux)

		activity, err := gateway.FetchActivity(context.Background(), repo, testWindow())
		require.NoError(t, err)

		assert.Equal(t, 1, activity.NewIssues)    // issue 1
		assert.Equal(t, 1, activity.ClosedIssues) // issue 2
		assert.Equal(t, 1, activity.OpenedPRs)    // PR 10
		assert.Equal(t, 1, activity.MergedPRs)    // PR 10, counted in both
		assert.False(t, activity.FetchFailed)
		assert.Len(t, activity.Items, 3) // issues 1 and 2, PR 10
	})

	t.Run("missing repository yields empty activity", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		activity, err := gateway.FetchActivity(context.Background(), repo, testWindow())
		require.NoError(t, err)
		assert.False(t, activity.HasActivity())
		assert.Empty(t, activity.Items)
	})

	t.Run("persistent server error surfaces as retry exhaustion", func(t *testing.T) {
		handler := func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"Internal Server Error"}`)
		}
		gateway, _ := setupTestGateway(t, http.HandlerFunc(handler))

		_, err := gateway.FetchActivity(context.Background(), repo, testWindow())
		var exhausted *FetchExhaustedError
		require.ErrorAs(t, err, &exhausted)
		assert.Equal(t, 3, exhausted.Attempts)
	})
}
