// Package config loads the YAML run configuration.
package config

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/galaxyproject/activity-stats/internal/domain"
)

// Defaults applied when the config file leaves a knob unset.
const (
	DefaultMaxWorkers     = 3
	DefaultMaxRetries     = 3
	DefaultTimeoutSeconds = 30
)

// API holds the knobs for talking to the GitHub API.
type API struct {
	MaxWorkers            int `yaml:"max_workers"`
	MaxRetries            int `yaml:"max_retries"`
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
	// RateLimitMargin is the remaining-quota floor below which calls wait
	// for the quota window to reset.
	RateLimitMargin int `yaml:"rate_limit_margin"`
}

// Period overrides the day count for a named period.
type Period struct {
	Days int `yaml:"days"`
}

// Config is the full run configuration.
type Config struct {
	Organization   string            `yaml:"organization"`
	ExcludedRepos  []string          `yaml:"excluded_repos"`
	HighlightRepos []string          `yaml:"highlight_repos"`
	API            API               `yaml:"api"`
	Periods        map[string]Period `yaml:"periods"`
}

// Load reads and validates the config file, applying defaults for anything
// not set.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Organization == "" {
		return nil, fmt.Errorf("config %s: organization is required", path)
	}
	if cfg.API.MaxWorkers <= 0 {
		cfg.API.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.API.MaxRetries <= 0 {
		cfg.API.MaxRetries = DefaultMaxRetries
	}
	if cfg.API.RequestTimeoutSeconds <= 0 {
		cfg.API.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.API.RateLimitMargin < 0 {
		cfg.API.RateLimitMargin = 0
	}
	return &cfg, nil
}

// RequestTimeout returns the per-request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSeconds) * time.Second
}

// PeriodDays resolves a period name to its day count, falling back to the
// built-in defaults when the config does not override it.
func (c *Config) PeriodDays(period string) (int, error) {
	if p, ok := c.Periods[period]; ok && p.Days > 0 {
		return p.Days, nil
	}
	switch period {
	case "weekly":
		return domain.DefaultWeeklyDays, nil
	case "monthly":
		return domain.DefaultMonthlyDays, nil
	case "yearly":
		return domain.DefaultYearlyDays, nil
	}
	return 0, fmt.Errorf("unknown period %q", period)
}

// IsExcluded reports whether a repository is configured out of the run.
func (c *Config) IsExcluded(name string) bool {
	return slices.Contains(c.ExcludedRepos, name)
}

// IsHighlighted reports whether a repository gets priority treatment in
// rendered output.
func (c *Config) IsHighlighted(name string) bool {
	return slices.Contains(c.HighlightRepos, name)
}
