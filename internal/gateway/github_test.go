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
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())
	logger := log.New(io.Discard, "", 0)

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        logger,
	}

	return gateway, server
}

func TestGitHubGateway_FetchTrafficViews(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expectedPoints []TrafficPoint
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - successfully fetches traffic views",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.URL.String(), "/repos/org/repo/traffic/views")
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `{"count": 13, "uniques": 7, "views": [{"timestamp": "2024-01-01T00:00:00Z", "count": 10, "uniques": 5}, {"timestamp": "2024-01-02T00:00:00Z", "count": 3, "uniques": 2}]}`)
			},
			expectedPoints: []TrafficPoint{
				{Timestamp: timePtr(t, "2024-01-01T00:00:00Z"), Count: 10, Uniques: 5},
				{Timestamp: timePtr(t, "2024-01-02T00:00:00Z"), Count: 3, Uniques: 2},
			},
		},
		{
			name: "error case - GitHub API returns an error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message": "Must have push access to repository"}`)
			},
			expectError:    true,
			expectedErrMsg: "failed to fetch traffic views",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()
			points, err := gateway.FetchTrafficViews(context.Background(), "org", "repo")
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedPoints, points)
			}
		})
	}
}

func TestGitHubGateway_FetchReferrers(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/repos/org/repo/traffic/popular/referrers")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[{"referrer": "github.com", "count": 12, "uniques": 8}, {"referrer": "google.com", "count": 4, "uniques": 3}]`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	records, err := gateway.FetchReferrers(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.Equal(t, []Referrer{
		{Site: "github.com", Count: 12, Uniques: 8},
		{Site: "google.com", Count: 4, Uniques: 3},
	}, records)
}

func TestGitHubGateway_FetchPopularPaths(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/repos/org/repo/traffic/popular/paths")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[{"path": "/org/repo", "title": "org/repo: demo", "count": 20, "uniques": 15}]`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	records, err := gateway.FetchPopularPaths(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.Equal(t, []PopularPath{{Path: "/org/repo", Title: "org/repo: demo", Count: 20, Uniques: 15}}, records)
}

func TestGitHubGateway_FetchStargazers(t *testing.T) {
	testCases := []struct {
		name           string
		responseBody   string
		expectedCount  int
		expectError    bool
		expectedErrMsg string
	}{
		{
			name:          "happy path - single page of stargazers",
			responseBody:  `{"data":{"repository":{"stargazers":{"pageInfo":{"hasNextPage":false,"endCursor":""},"edges":[{"starredAt":"2024-01-01T08:00:00Z"},{"starredAt":"2024-01-02T09:00:00Z"}]}}}}`,
			expectedCount: 2,
		},
		{
			name:           "error case - GraphQL error response",
			responseBody:   `{"errors":[{"message":"Something went wrong"}]}`,
			expectError:    true,
			expectedErrMsg: "failed to execute GraphQL query",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), "stargazers")
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, tc.responseBody)
			}
			gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
			defer server.Close()

			events, err := gateway.FetchStargazers(context.Background(), "org", "repo")
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Len(t, events, tc.expectedCount)
				if tc.expectedCount > 0 {
					assert.Equal(t, *timePtr(t, "2024-01-01T08:00:00Z"), events[0].StarredAt)
				}
			}
		})
	}
}

func TestGitHubGateway_FetchForks_Paginates(t *testing.T) {
	page := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/repos/org/repo/forks")
		page++
		w.Header().Set("Content-Type", "application/json")
		if page == 1 {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s/repos/org/repo/forks?page=2>; rel="next"`, r.Host))
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `[{"id": 1, "created_at": "2024-01-01T10:00:00Z"}]`)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[{"id": 2, "created_at": "2024-01-02T10:00:00Z"}]`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	events, err := gateway.FetchForks(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	require.Len(t, events, 2)
	assert.Equal(t, *timePtr(t, "2024-01-01T10:00:00Z"), *events[0].CreatedAt)
}

func TestGitHubGateway_FetchRepoInfo(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/repos/org/repo")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"description": "A repository", "language": "Go", "default_branch": "main", "stargazers_count": 42, "forks_count": 7, "permissions": {"push": true}}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	info, err := gateway.FetchRepoInfo(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.Equal(t, &RepoInfo{
		Description:   "A repository",
		Language:      "Go",
		DefaultBranch: "main",
		Stargazers:    42,
		Forks:         7,
	}, info)

	canPush, err := gateway.CheckPushAccess(context.Background(), "org", "repo")
	require.NoError(t, err)
	assert.True(t, canPush)
}

func timePtr(t *testing.T, value string) *time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}
