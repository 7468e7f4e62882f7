// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// ItemKind distinguishes the two kinds of activity the pipeline tracks.
type ItemKind string

const (
	KindIssue       ItemKind = "issue"
	KindPullRequest ItemKind = "pull_request"
)

// Repository identifies one repository of the target organization.
// Instances are immutable once listed; the remote API is the source of truth.
type Repository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	Archived      bool   `json:"archived,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
}

// FullName returns the owner/name form used in queries and logs.
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// ActivityItem is an immutable snapshot of one issue or pull request as fetched.
type ActivityItem struct {
	Kind      ItemKind   `json:"kind"`
	Number    int        `json:"number"`
	Title     string     `json:"title"`
	Author    string     `json:"author,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	URL       string     `json:"url"`
}

// IsNewIssueIn reports whether the item counts as an issue opened in the window.
// Items without an author are skipped rather than attributed to "unknown".
func (i ActivityItem) IsNewIssueIn(w DateRange) bool {
	return i.Kind == KindIssue && i.Author != "" && w.Contains(i.CreatedAt)
}

// IsClosedIssueIn reports whether the item counts as an issue closed in the window.
func (i ActivityItem) IsClosedIssueIn(w DateRange) bool {
	return i.Kind == KindIssue && i.ClosedAt != nil && w.Contains(*i.ClosedAt)
}

// IsOpenedPRIn reports whether the item counts as a pull request opened in the window.
func (i ActivityItem) IsOpenedPRIn(w DateRange) bool {
	return i.Kind == KindPullRequest && i.Author != "" && w.Contains(i.CreatedAt)
}

// IsMergedPRIn reports whether the item counts as a pull request merged in the window.
func (i ActivityItem) IsMergedPRIn(w DateRange) bool {
	return i.Kind == KindPullRequest && i.Author != "" && i.MergedAt != nil && w.Contains(*i.MergedAt)
}

// RepositoryActivity pairs a repository with the activity items that matched
// the query window, plus counters derived from them. Built once per repository
// per run and never mutated afterwards.
type RepositoryActivity struct {
	Repo         Repository     `json:"repo"`
	Window       DateRange      `json:"window"`
	Items        []ActivityItem `json:"items,omitempty"`
	NewIssues    int            `json:"issues_new"`
	ClosedIssues int            `json:"issues_closed"`
	OpenedPRs    int            `json:"prs_opened"`
	MergedPRs    int            `json:"prs_merged"`
	FetchFailed  bool           `json:"fetch_failed,omitempty"`
}

// NewRepositoryActivity derives the counters from the item sequence, keeping
// them consistent by construction. An item may count in more than one
// counter within the same window (e.g. a PR opened and merged in it).
func NewRepositoryActivity(repo Repository, window DateRange, items []ActivityItem) RepositoryActivity {
	a := RepositoryActivity{Repo: repo, Window: window, Items: items}
	for _, item := range items {
		if item.IsNewIssueIn(window) {
			a.NewIssues++
		}
		if item.IsClosedIssueIn(window) {
			a.ClosedIssues++
		}
		if item.IsOpenedPRIn(window) {
			a.OpenedPRs++
		}
		if item.IsMergedPRIn(window) {
			a.MergedPRs++
		}
	}
	return a
}

// FailedRepositoryActivity is the empty placeholder recorded when a
// repository's fetch fails after all retries. It keeps the repository in the
// final report without blocking the rest of the run.
func FailedRepositoryActivity(repo Repository, window DateRange) RepositoryActivity {
	return RepositoryActivity{Repo: repo, Window: window, FetchFailed: true}
}

// Ranking weights. Merges represent completed, reviewed work; opened PRs are
// work in progress; issues count once each. Fixed policy, not derived.
const (
	weightMergedPR    = 3
	weightOpenedPR    = 2
	weightClosedIssue = 1
	weightNewIssue    = 1
)

// Score is the weighted activity score used to rank repositories.
func (a RepositoryActivity) Score() int {
	return a.MergedPRs*weightMergedPR +
		a.OpenedPRs*weightOpenedPR +
		a.ClosedIssues*weightClosedIssue +
		a.NewIssues*weightNewIssue
}

// HasActivity reports whether any counter is nonzero.
func (a RepositoryActivity) HasActivity() bool {
	return a.NewIssues > 0 || a.ClosedIssues > 0 || a.OpenedPRs > 0 || a.MergedPRs > 0
}
