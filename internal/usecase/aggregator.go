package usecase

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/galaxyproject/activity-stats/internal/domain"
)

// topRepoLimit caps the ranked head included in rendered output.
const topRepoLimit = 10

// Aggregate reduces the ordered per-repository activities into the run's
// report. It is pure: no network, no clock, same input means same output.
// Ranking is descending by score with ties keeping the input order, which is
// the repository-listing order preserved by the collector.
func Aggregate(activities []domain.RepositoryActivity) domain.AggregatedReport {
	report := domain.AggregatedReport{
		Ranked:   make([]domain.RepoRank, 0, len(activities)),
		TopRepos: []domain.RepoRank{},
	}
	if len(activities) > 0 {
		report.Window = activities[0].Window
	}

	contributors := make(map[string]struct{})
	var mergedGroups, newGroups, closedGroups []domain.ItemGroup
	var scores []float64

	for _, a := range activities {
		report.NewIssues += a.NewIssues
		report.ClosedIssues += a.ClosedIssues
		report.OpenedPRs += a.OpenedPRs
		report.MergedPRs += a.MergedPRs
		if a.HasActivity() {
			report.ActiveRepos++
			scores = append(scores, float64(a.Score()))
		}
		if a.FetchFailed {
			report.FailedRepos = append(report.FailedRepos, a.Repo.Name)
		}

		var merged, newIssues, closedIssues []domain.ActivityItem
		for _, item := range a.Items {
			if item.IsMergedPRIn(a.Window) {
				merged = append(merged, item)
			}
			if item.IsNewIssueIn(a.Window) {
				newIssues = append(newIssues, item)
			}
			if item.IsClosedIssueIn(a.Window) {
				closedIssues = append(closedIssues, item)
			}
			if item.Author != "" && (item.IsNewIssueIn(a.Window) || item.IsOpenedPRIn(a.Window) || item.IsMergedPRIn(a.Window)) {
				contributors[item.Author] = struct{}{}
			}
		}
		if len(merged) > 0 {
			mergedGroups = append(mergedGroups, domain.ItemGroup{Repo: a.Repo.Name, Items: merged})
		}
		if len(newIssues) > 0 {
			newGroups = append(newGroups, domain.ItemGroup{Repo: a.Repo.Name, Items: newIssues})
		}
		if len(closedIssues) > 0 {
			closedGroups = append(closedGroups, domain.ItemGroup{Repo: a.Repo.Name, Items: closedIssues})
		}

		report.Ranked = append(report.Ranked, domain.RepoRank{
			Name:          a.Repo.Name,
			MergedPRs:     a.MergedPRs,
			OpenedPRs:     a.OpenedPRs,
			NewIssues:     a.NewIssues,
			ClosedIssues:  a.ClosedIssues,
			ActivityScore: a.Score(),
		})
	}

	report.UniqueContributors = len(contributors)

	// Stable keeps the listing order on equal scores.
	sort.SliceStable(report.Ranked, func(i, j int) bool {
		return report.Ranked[i].ActivityScore > report.Ranked[j].ActivityScore
	})
	for _, r := range report.Ranked {
		if len(report.TopRepos) == topRepoLimit {
			break
		}
		if r.ActivityScore > 0 {
			report.TopRepos = append(report.TopRepos, r)
		}
	}

	sortGroups(mergedGroups)
	sortGroups(newGroups)
	sortGroups(closedGroups)
	report.MergedPRGroups = mergedGroups
	report.NewIssueGroups = newGroups
	report.ClosedIssueGroups = closedGroups

	if len(scores) > 0 {
		// Errors only occur on empty input, which is guarded above.
		report.Scores.Mean, _ = stats.Mean(scores)
		report.Scores.Median, _ = stats.Median(scores)
	}
	return report
}

func sortGroups(groups []domain.ItemGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Repo < groups[j].Repo
	})
}
