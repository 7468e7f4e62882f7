package domain

// RepoRank is one repository's position in the activity ranking.
type RepoRank struct {
	Name          string `json:"name"`
	MergedPRs     int    `json:"prs_merged"`
	OpenedPRs     int    `json:"prs_opened"`
	NewIssues     int    `json:"issues_new"`
	ClosedIssues  int    `json:"issues_closed"`
	ActivityScore int    `json:"activity_score"`
}

// ItemGroup holds one repository's items for a rendered section, preserving
// the repository's internal item order.
type ItemGroup struct {
	Repo  string         `json:"repo"`
	Items []ActivityItem `json:"items"`
}

// ScoreSummary describes the distribution of activity scores across repositories
// that had any activity.
type ScoreSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
}

// AggregatedReport is the run's sole output: totals, a deterministic ranking,
// and items grouped for rendering. Constructed once and self-contained; no
// further API access is needed to render it.
type AggregatedReport struct {
	Window             DateRange    `json:"window"`
	ActiveRepos        int          `json:"repos_active"`
	NewIssues          int          `json:"issues_new"`
	ClosedIssues       int          `json:"issues_closed"`
	OpenedPRs          int          `json:"prs_opened"`
	MergedPRs          int          `json:"prs_merged"`
	UniqueContributors int          `json:"contributors_unique"`
	Scores             ScoreSummary `json:"scores"`

	// Ranked covers every repository, descending by score; ties keep the
	// repository-listing order. TopRepos is the nonzero head, capped at ten.
	Ranked   []RepoRank `json:"ranked"`
	TopRepos []RepoRank `json:"top_repos"`

	// Grouped sections, sorted by repository name.
	MergedPRGroups    []ItemGroup `json:"merged_prs_by_repo,omitempty"`
	NewIssueGroups    []ItemGroup `json:"new_issues_by_repo,omitempty"`
	ClosedIssueGroups []ItemGroup `json:"closed_issues_by_repo,omitempty"`

	// Repositories whose fetch failed and contributed no data.
	FailedRepos []string `json:"failed_repos,omitempty"`
}
