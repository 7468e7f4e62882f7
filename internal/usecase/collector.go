// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/galaxyproject/activity-stats/internal/domain"
	"github.com/galaxyproject/activity-stats/internal/gateway"
)

const defaultMaxWorkers = 3

// Collector fans activity fetches out across all repositories with a bounded
// worker pool and assembles the results deterministically.
type Collector struct {
	fetcher    gateway.Fetcher
	maxWorkers int
	logger     *log.Logger
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, maxWorkers int, logger *log.Logger) *Collector {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &Collector{
		fetcher:    fetcher,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// CollectAll fetches activity for every repository. Results are written into
// a slice indexed by the repository's input position, so the output order
// equals the listing order no matter which fetch finishes first. A repository
// whose fetch fails after all retries degrades to an empty entry with the
// failure recorded; it never aborts the run.
func (c *Collector) CollectAll(ctx context.Context, repos []domain.Repository, window domain.DateRange) []domain.RepositoryActivity {
	c.logger.Printf("[2/2] Fetching activity for %d repositories...", len(repos))

	results := make([]domain.RepositoryActivity, len(repos))
	var eg errgroup.Group
	eg.SetLimit(c.maxWorkers)
	for i, repo := range repos {
		i, repo := i, repo
		eg.Go(func() error {
			activity, err := c.fetcher.FetchActivity(ctx, repo, window)
			if err != nil {
				c.logger.Printf("Error fetching %s: %v", repo.FullName(), err)
				results[i] = domain.FailedRepositoryActivity(repo, window)
				return nil
			}
			results[i] = activity
			c.logger.Printf("Fetched: %s", repo.FullName())
			return nil
		})
	}
	// Workers absorb their own failures, so Wait never returns an error.
	_ = eg.Wait()

	var failed []string
	for _, r := range results {
		if r.FetchFailed {
			failed = append(failed, r.Repo.Name)
		}
	}
	if len(failed) > 0 {
		c.logger.Printf("Failed to fetch %d repos: %s", len(failed), strings.Join(failed, ", "))
	}
	return results
}
