// Package render turns an aggregated report into the markdown summary.
// It is pure formatting: everything it needs is already in the report value.
package render

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/galaxyproject/activity-stats/internal/domain"
)

const summaryTemplate = `# {{.Org}} activity: {{.PeriodLabel}}

_{{.Range}}, generated {{.GeneratedAt}}_

- **{{.Report.ActiveRepos}}** repositories with activity
- **{{.Report.MergedPRs}}** pull requests merged
- **{{.Report.OpenedPRs}}** pull requests opened
- **{{.Report.ClosedIssues}}** issues closed
- **{{.Report.NewIssues}}** new issues
- **{{.Report.UniqueContributors}}** contributors
{{- if .Report.FailedRepos}}

> **Partial data**: activity could not be fetched for {{join .Report.FailedRepos ", "}}.
{{- end}}
{{- if .Report.TopRepos}}

## Most active repositories

| Repository | Score | Merged | Opened | Closed | New |
|---|---|---|---|---|---|
{{- range .Report.TopRepos}}
| {{if highlighted .Name}}:star: {{end}}{{.Name}} | {{.ActivityScore}} | {{.MergedPRs}} | {{.OpenedPRs}} | {{.ClosedIssues}} | {{.NewIssues}} |
{{- end}}
{{- end}}
{{- if .Report.MergedPRGroups}}

## Merged pull requests
{{range .Report.MergedPRGroups}}
### {{.Repo}}
{{range .Items}}
- [{{.Title}}]({{.URL}}) by @{{.Author}}
{{- end}}
{{end}}
{{- end}}
{{- if .Report.NewIssueGroups}}

## New issues
{{range .Report.NewIssueGroups}}
### {{.Repo}}
{{range .Items}}
- [{{.Title}}]({{.URL}}) by @{{.Author}}
{{- end}}
{{end}}
{{- end}}
{{- if .Report.ClosedIssueGroups}}

## Closed issues
{{range .Report.ClosedIssueGroups}}
### {{.Repo}}
{{range .Items}}
- [{{.Title}}]({{.URL}})
{{- end}}
{{end}}
{{- end}}
`

type templateData struct {
	Org         string
	PeriodLabel string
	Range       string
	GeneratedAt string
	Report      domain.AggregatedReport
}

// PeriodLabel builds the human-readable heading for a period and its window.
func PeriodLabel(period string, window domain.DateRange) string {
	switch period {
	case "weekly", "monthly", "yearly":
		return fmt.Sprintf("%s summary (%s)", period, window.Label())
	}
	return window.Label()
}

// Markdown renders the report. Repositories in highlights get a marker in the
// ranking table; highlighting never changes the ranking itself.
func Markdown(report domain.AggregatedReport, org, periodLabel string, highlights []string) (string, error) {
	marked := make(map[string]bool, len(highlights))
	for _, name := range highlights {
		marked[name] = true
	}
	tmpl, err := template.New("summary").Funcs(template.FuncMap{
		"join":        strings.Join,
		"highlighted": func(name string) bool { return marked[name] },
	}).Parse(summaryTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse summary template: %w", err)
	}

	data := templateData{
		Org:         org,
		PeriodLabel: periodLabel,
		Range:       report.Window.Label(),
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		Report:      report,
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to render summary: %w", err)
	}
	return out.String(), nil
}
