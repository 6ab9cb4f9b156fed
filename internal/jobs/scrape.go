package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/contentlab/internal/batch"
	"github.com/jonathan/contentlab/internal/store"
	"github.com/jonathan/contentlab/internal/types"
)

// ScrapeConfig controls one scrape run.
type ScrapeConfig struct {
	// Rescrape refetches items that already have base content; without it
	// those items are skipped and not counted as processed.
	Rescrape bool
	// Limit caps how many items are actually fetched in this run, not how
	// many are iterated. Zero means no cap.
	Limit int
	// Delay is the wait between successive fetches.
	Delay time.Duration
}

// Validate checks the config before any item is touched.
func (c *ScrapeConfig) Validate() error {
	if c.Limit < 0 {
		return &ConfigError{Field: "limit", Message: "must be non-negative"}
	}
	if c.Delay < 0 {
		return &ConfigError{Field: "delay", Message: "must be non-negative"}
	}
	return nil
}

// ScrapeJob fetches external content for each item's URL and overwrites its
// base content.
type ScrapeJob struct {
	fetcher PageFetcher
	store   *store.Store
	config  ScrapeConfig
	fetched int
}

// NewScrapeJob builds the job over the given store.
func NewScrapeJob(fetcher PageFetcher, s *store.Store, cfg ScrapeConfig) *ScrapeJob {
	return &ScrapeJob{fetcher: fetcher, store: s, config: cfg}
}

// BatchConfig returns the pacing for this run. Scraping has no provider-side
// rate limit; only the inter-fetch delay applies.
func (j *ScrapeJob) BatchConfig() batch.Config {
	return batch.Config{Delay: j.config.Delay}
}

// Operate implements batch.Operation for one item.
func (j *ScrapeJob) Operate(ctx context.Context, item *types.Item) (string, error) {
	if !j.config.Rescrape && item.BaseContent != "" {
		return "", batch.Skip("")
	}
	if j.config.Limit > 0 && j.fetched >= j.config.Limit {
		return "", batch.Skip("")
	}

	page, err := j.fetcher.Page(ctx, item.URL, j.store.Model().BaseURL)
	if err != nil {
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	j.fetched++
	if err := j.store.SetBaseContent(item.URL, page.Title, page.Text); err != nil {
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	return fmt.Sprintf("Successfully scraped: %s", item.URL), nil
}
