// Package jobs defines the three concrete batch operations that run over a
// model's items: scraping base content, generating alternative variants, and
// rating content units.
package jobs

import (
	"context"
	"fmt"

	"github.com/jonathan/contentlab/internal/fetch"
)

// ConfigError indicates a malformed or incomplete job configuration. It is
// rejected before any item is processed and never counts as item progress.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}

// PageFetcher is what the scrape job needs from the fetcher.
type PageFetcher interface {
	Page(ctx context.Context, rawURL, baseURL string) (*fetch.Page, error)
}
