// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/galaxyproject/activity-stats/internal/config"
	"github.com/galaxyproject/activity-stats/internal/domain"
	"github.com/galaxyproject/activity-stats/internal/gateway"
	"github.com/galaxyproject/activity-stats/internal/render"
	"github.com/galaxyproject/activity-stats/internal/usecase"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Collects organization activity and emits a summary",
	Long: `Collects issues and pull requests for every non-archived repository of the
configured organization within the requested period, aggregates them into
ranked metrics, and writes a markdown (or JSON) summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		// Get the verbose flag from the root command to set up the logger.
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		configPath, _ := cmd.Flags().GetString("config")
		period, _ := cmd.Flags().GetString("period")
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")
		asJSON, _ := cmd.Flags().GetBool("json")
		outputPath, _ := cmd.Flags().GetString("output")

		token := os.Getenv("GITHUB_TOKEN")
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}

		// Resolve the date window: explicit bounds win over the named period.
		var window domain.DateRange
		if startStr != "" || endStr != "" {
			window, err = domain.ParseRange(startStr, endStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid date range: %v\n", err)
				os.Exit(1)
			}
		} else {
			days, err := cfg.PeriodDays(period)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid period: %v\n", err)
				os.Exit(1)
			}
			window = domain.PeriodRange(days, time.Now())
		}
		logger.Printf("Period: %s", period)
		logger.Printf("Date range: %s", window.Label())

		// Inject dependencies and run the pipeline.
		githubGateway, err := gateway.NewGitHubGateway(token, gateway.Options{
			MaxRetries:      cfg.API.MaxRetries,
			RequestTimeout:  cfg.RequestTimeout(),
			RateLimitMargin: cfg.API.RateLimitMargin,
		}, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}

		repos, err := githubGateway.ListRepositories(ctx, cfg.Organization)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list repositories: %v\n", err)
			os.Exit(1)
		}
		kept := repos[:0]
		for _, r := range repos {
			if !cfg.IsExcluded(r.Name) {
				kept = append(kept, r)
			}
		}
		repos = kept
		logger.Printf("After exclusions: %d repos", len(repos))

		collector := usecase.NewCollector(githubGateway, cfg.API.MaxWorkers, logger)
		activities := collector.CollectAll(ctx, repos, window)

		report := usecase.Aggregate(activities)
		logger.Printf("Summary: %d active repos, %d PRs merged, %d issues closed, %d contributors",
			report.ActiveRepos, report.MergedPRs, report.ClosedIssues, report.UniqueContributors)

		var rendered string
		if asJSON {
			jsonData, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to marshal report to JSON: %v\n", err)
				os.Exit(1)
			}
			rendered = string(jsonData)
		} else {
			label := render.PeriodLabel(period, window)
			rendered, err = render.Markdown(report, cfg.Organization, label, cfg.HighlightRepos)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to render summary: %v\n", err)
				os.Exit(1)
			}
		}

		if outputPath == "" {
			fmt.Println(rendered)
			return
		}
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			os.Exit(1)
		}
		logger.Printf("Output written to: %s", outputPath)
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringP("config", "c", "config.yml", "Config file path")
	summaryCmd.Flags().StringP("period", "p", "weekly", "Summary period (weekly|monthly|yearly)")
	summaryCmd.Flags().String("start", "", "Custom start date (YYYY-MM-DD), requires --end")
	summaryCmd.Flags().String("end", "", "Custom end date (YYYY-MM-DD), requires --start")
	summaryCmd.Flags().Bool("json", false, "Emit the aggregated report as JSON instead of markdown")
	summaryCmd.Flags().StringP("output", "o", "", "Write output to a file instead of stdout")
	summaryCmd.MarkFlagsRequiredTogether("start", "end")
}
