// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// TrafficPoint is one wire record from the traffic views/clones endpoints.
// Timestamp is a pointer because the API may omit it; the normalizer drops
// such records.
type TrafficPoint struct {
	Timestamp *time.Time
	Count     int
	Uniques   int
}

// Referrer is one wire record from the popular referrers endpoint.
type Referrer struct {
	Site    string
	Count   int
	Uniques int
}

// PopularPath is one wire record from the popular paths endpoint.
type PopularPath struct {
	Path    string
	Title   string
	Count   int
	Uniques int
}

// StarEvent is one stargazer event with its creation timestamp.
type StarEvent struct {
	StarredAt time.Time
}

// ForkEvent is one fork with its creation timestamp.
type ForkEvent struct {
	CreatedAt *time.Time
}

// RepoInfo is the repository metadata snapshot.
type RepoInfo struct {
	Description   string
	Language      string
	DefaultBranch string
	Stargazers    int
	Forks         int
}

// Fetcher defines the behavior of a gateway for fetching repository traffic
// and engagement data from GitHub. Pagination is handled inside the gateway;
// callers always receive fully-paginated sequences.
type Fetcher interface {
	FetchTrafficViews(ctx context.Context, owner, repo string) ([]TrafficPoint, error)
	FetchTrafficClones(ctx context.Context, owner, repo string) ([]TrafficPoint, error)
	FetchReferrers(ctx context.Context, owner, repo string) ([]Referrer, error)
	FetchPopularPaths(ctx context.Context, owner, repo string) ([]PopularPath, error)
	FetchStargazers(ctx context.Context, owner, repo string) ([]StarEvent, error)
	FetchForks(ctx context.Context, owner, repo string) ([]ForkEvent, error)
	FetchRepoInfo(ctx context.Context, owner, repo string) (*RepoInfo, error)
	CheckPushAccess(ctx context.Context, owner, repo string) (bool, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
}

// stargazerQuery pages through stargazer edges oldest-first so the normalizer
// sees events in creation order.
type stargazerQuery struct {
	Repository struct {
		Stargazers struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Edges []struct {
				StarredAt githubv4.DateTime
			}
		} `graphql:"stargazers(first: 100, after: $cursor, orderBy: {field: STARRED_AT, direction: ASC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) FetchTrafficViews(ctx context.Context, owner, repo string) ([]TrafficPoint, error) {
	g.logger.Printf("[%s/%s] Fetching traffic views...", owner, repo)
	opts := &github.TrafficBreakdownOptions{Per: "day"}
	views, _, err := g.restClient.Repositories.ListTrafficViews(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch traffic views: %w", err)
	}
	return trafficPoints(views.Views), nil
}

func (g *GitHubGateway) FetchTrafficClones(ctx context.Context, owner, repo string) ([]TrafficPoint, error) {
	g.logger.Printf("[%s/%s] Fetching traffic clones...", owner, repo)
	opts := &github.TrafficBreakdownOptions{Per: "day"}
	clones, _, err := g.restClient.Repositories.ListTrafficClones(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch traffic clones: %w", err)
	}
	return trafficPoints(clones.Clones), nil
}

// trafficPoints converts the REST traffic breakdown into wire records.
func trafficPoints(data []*github.TrafficData) []TrafficPoint {
	points := make([]TrafficPoint, 0, len(data))
	for _, td := range data {
		p := TrafficPoint{Count: td.GetCount(), Uniques: td.GetUniques()}
		if td.Timestamp != nil {
			t := td.Timestamp.Time
			p.Timestamp = &t
		}
		points = append(points, p)
	}
	return points
}

func (g *GitHubGateway) FetchReferrers(ctx context.Context, owner, repo string) ([]Referrer, error) {
	g.logger.Printf("[%s/%s] Fetching referring sites...", owner, repo)
	referrers, _, err := g.restClient.Repositories.ListTrafficReferrers(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch referrers: %w", err)
	}
	records := make([]Referrer, 0, len(referrers))
	for _, r := range referrers {
		records = append(records, Referrer{
			Site:    r.GetReferrer(),
			Count:   r.GetCount(),
			Uniques: r.GetUniques(),
		})
	}
	return records, nil
}

func (g *GitHubGateway) FetchPopularPaths(ctx context.Context, owner, repo string) ([]PopularPath, error) {
	g.logger.Printf("[%s/%s] Fetching popular content paths...", owner, repo)
	paths, _, err := g.restClient.Repositories.ListTrafficPaths(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch popular paths: %w", err)
	}
	records := make([]PopularPath, 0, len(paths))
	for _, p := range paths {
		records = append(records, PopularPath{
			Path:    p.GetPath(),
			Title:   p.GetTitle(),
			Count:   p.GetCount(),
			Uniques: p.GetUniques(),
		})
	}
	return records, nil
}

// FetchStargazers pages through the full stargazer history with the GraphQL
// API, which exposes starredAt timestamps without preview headers.
func (g *GitHubGateway) FetchStargazers(ctx context.Context, owner, repo string) ([]StarEvent, error) {
	g.logger.Printf("[%s/%s] Fetching stargazer history...", owner, repo)
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(repo),
		"cursor": (*githubv4.String)(nil),
	}
	var events []StarEvent
	for {
		var q stargazerQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to execute GraphQL query for stargazers: %w", err)
		}
		for _, edge := range q.Repository.Stargazers.Edges {
			events = append(events, StarEvent{StarredAt: edge.StarredAt.Time})
		}
		if !q.Repository.Stargazers.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.Stargazers.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of stargazers...")
	}
	g.logger.Printf("[%s/%s] Completed fetching %d stargazer events.", owner, repo, len(events))
	return events, nil
}

func (g *GitHubGateway) FetchForks(ctx context.Context, owner, repo string) ([]ForkEvent, error) {
	g.logger.Printf("[%s/%s] Fetching fork history...", owner, repo)
	opts := &github.RepositoryListForksOptions{
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var events []ForkEvent
	for {
		forks, resp, err := g.restClient.Repositories.ListForks(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch forks: %w", err)
		}
		for _, f := range forks {
			e := ForkEvent{}
			if f.CreatedAt != nil {
				t := f.CreatedAt.Time
				e.CreatedAt = &t
			}
			events = append(events, e)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Println("  Fetching next page of forks...")
	}
	g.logger.Printf("[%s/%s] Completed fetching %d forks.", owner, repo, len(events))
	return events, nil
}

func (g *GitHubGateway) FetchRepoInfo(ctx context.Context, owner, repo string) (*RepoInfo, error) {
	g.logger.Printf("[%s/%s] Fetching repository metadata...", owner, repo)
	r, _, err := g.restClient.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch repository metadata: %w", err)
	}
	return &RepoInfo{
		Description:   r.GetDescription(),
		Language:      r.GetLanguage(),
		DefaultBranch: r.GetDefaultBranch(),
		Stargazers:    r.GetStargazersCount(),
		Forks:         r.GetForksCount(),
	}, nil
}

// CheckPushAccess reports whether the token's user can push to the repository.
func (g *GitHubGateway) CheckPushAccess(ctx context.Context, owner, repo string) (bool, error) {
	r, _, err := g.restClient.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return false, fmt.Errorf("failed to fetch repository permissions: %w", err)
	}
	return r.GetPermissions()["push"], nil
}
