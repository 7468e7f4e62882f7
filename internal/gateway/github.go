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
	"golang.org/x/sync/errgroup"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/galaxyproject/activity-stats/internal/domain"
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	ListRepositories(ctx context.Context, org string) ([]domain.Repository, error)
	FetchActivity(ctx context.Context, repo domain.Repository, window domain.DateRange) (domain.RepositoryActivity, error)
}

// Options are the tunables for the gateway's transport behavior.
type Options struct {
	MaxRetries      int
	RequestTimeout  time.Duration
	RateLimitMargin int
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	limiter       *RateLimiter
	retry         *retrier
	logger        *log.Logger
}

// orgReposQuery pages through the organization's repositories.
type orgReposQuery struct {
	Organization struct {
		Repositories struct {
			PageInfo struct {
				HasNextPage bool
				EndCursor   githubv4.String
			}
			Nodes []struct {
				Name             string
				IsArchived       bool
				IsEmpty          bool
				DefaultBranchRef struct {
					Name string
				}
			}
		} `graphql:"repositories(first: 100, after: $cursor, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"organization(login: $org)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, opts Options, logger *log.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		// Bounds each attempt so a hung connection cannot stall a worker.
		Timeout: opts.RequestTimeout,
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	limiter := NewRateLimiter(opts.RateLimitMargin, logger)
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		limiter:       limiter,
		retry:         newRetrier(limiter, opts.MaxRetries, logger),
		logger:        logger,
	}, nil
}

// ListRepositories enumerates every non-archived, non-empty repository of the
// organization, preserving the API's order. Later ranking tie-breaks depend
// on that order, so no re-sorting happens here. A failure after retries is
// fatal for the run.
func (g *GitHubGateway) ListRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	g.logger.Printf("[1/2] Listing repositories for %s...", org)
	variables := map[string]interface{}{
		"org":    githubv4.String(org),
		"cursor": (*githubv4.String)(nil),
	}
	var repos []domain.Repository
	for {
		var q orgReposQuery
		err := g.retry.do(ctx, "list repositories", func(ctx context.Context) (*github.Response, error) {
			return nil, g.graphqlClient.Query(ctx, &q, variables)
		})
		if err != nil {
			return nil, &ListingFailedError{Org: org, Err: err}
		}
		for _, node := range q.Organization.Repositories.Nodes {
			if node.IsArchived || node.IsEmpty {
				continue
			}
			repos = append(repos, domain.Repository{
				Owner:         org,
				Name:          node.Name,
				DefaultBranch: node.DefaultBranchRef.Name,
			})
		}
		if !q.Organization.Repositories.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Organization.Repositories.PageInfo.EndCursor)
		g.logger.Println("  Fetching next page of repositories...")
	}
	g.logger.Printf("Found %d active repos", len(repos))
	return repos, nil
}

// FetchActivity retrieves the issues and pull requests of one repository whose
// relevant timestamps fall inside the window. Issues and pulls are fetched
// concurrently, each paginated to exhaustion.
func (g *GitHubGateway) FetchActivity(ctx context.Context, repo domain.Repository, window domain.DateRange) (domain.RepositoryActivity, error) {
	var issues, pulls []domain.ActivityItem

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		issues, err = g.fetchIssues(egCtx, repo, window)
		return err
	})
	eg.Go(func() error {
		var err error
		pulls, err = g.fetchPulls(egCtx, repo, window)
		return err
	})
	if err := eg.Wait(); err != nil {
		return domain.RepositoryActivity{}, err
	}

	return domain.NewRepositoryActivity(repo, window, append(issues, pulls...)), nil
}

// fetchIssues lists issues updated since the window start and keeps those
// created or closed inside it. Pull requests surface on the issues endpoint
// too and are skipped here.
func (g *GitHubGateway) fetchIssues(ctx context.Context, repo domain.Repository, window domain.DateRange) ([]domain.ActivityItem, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "all",
		Since:       window.Start,
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var items []domain.ActivityItem
	for {
		var page []*github.Issue
		var resp *github.Response
		err := g.retry.do(ctx, repo.FullName()+": list issues", func(ctx context.Context) (*github.Response, error) {
			var err error
			page, resp, err = g.restClient.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			item := issueItem(issue)
			if item.IsNewIssueIn(window) || item.IsClosedIssueIn(window) {
				items = append(items, item)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Printf("  %s: fetching next page of issues...", repo.FullName())
	}
	return items, nil
}

// fetchPulls lists pull requests newest-first and keeps those opened or merged
// inside the window. Because the listing is sorted by creation date descending,
// the loop stops as soon as a page runs past the window start.
func (g *GitHubGateway) fetchPulls(ctx context.Context, repo domain.Repository, window domain.DateRange) ([]domain.ActivityItem, error) {
	opts := &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var items []domain.ActivityItem
	for {
		var page []*github.PullRequest
		var resp *github.Response
		err := g.retry.do(ctx, repo.FullName()+": list pull requests", func(ctx context.Context) (*github.Response, error) {
			var err error
			page, resp, err = g.restClient.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
			return resp, err
		})
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, err
		}
		for _, pr := range page {
			if pr.GetCreatedAt().Time.Before(window.Start) {
				return items, nil
			}
			item := pullItem(pr)
			if item.IsOpenedPRIn(window) || item.IsMergedPRIn(window) {
				items = append(items, item)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Printf("  %s: fetching next page of pull requests...", repo.FullName())
	}
	return items, nil
}

func issueItem(issue *github.Issue) domain.ActivityItem {
	item := domain.ActivityItem{
		Kind:      domain.KindIssue,
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Author:    issue.GetUser().GetLogin(),
		CreatedAt: issue.GetCreatedAt().Time,
		URL:       issue.GetHTMLURL(),
	}
	if issue.ClosedAt != nil {
		t := issue.ClosedAt.Time
		item.ClosedAt = &t
	}
	return item
}

func pullItem(pr *github.PullRequest) domain.ActivityItem {
	item := domain.ActivityItem{
		Kind:      domain.KindPullRequest,
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Author:    pr.GetUser().GetLogin(),
		CreatedAt: pr.GetCreatedAt().Time,
		URL:       pr.GetHTMLURL(),
	}
	if pr.ClosedAt != nil {
		t := pr.ClosedAt.Time
		item.ClosedAt = &t
	}
	if pr.MergedAt != nil {
		t := pr.MergedAt.Time
		item.MergedAt = &t
	}
	return item
}
