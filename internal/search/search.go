// Package search runs ranked search tests against an external provider and
// relates the returned URLs to a model's items.
package search

import (
	"context"
	"fmt"

	"github.com/jonathan/contentlab/internal/normalize"
	"github.com/jonathan/contentlab/internal/store"
	"github.com/jonathan/contentlab/internal/types"
)

// DefaultMaxReturn is how many results a test returns when unconfigured.
const DefaultMaxReturn = 5

// DefaultMaxHighlightSearch is how deep the highlighted URL is probed for
// when it does not appear in the returned window.
const DefaultMaxHighlightSearch = 50

// Provider issues one query and returns results in the provider's ranking
// order. No local re-ranking happens anywhere downstream.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Config controls one search test.
type Config struct {
	MaxReturn          int
	MaxHighlightSearch int
	HighlightedURL     string
}

func (c Config) withDefaults() Config {
	if c.MaxReturn <= 0 {
		c.MaxReturn = DefaultMaxReturn
	}
	if c.MaxHighlightSearch <= 0 {
		c.MaxHighlightSearch = DefaultMaxHighlightSearch
	}
	return c
}

// Tester issues queries against a provider and classifies what comes back.
type Tester struct {
	provider Provider
}

// NewTester creates a tester over the given provider.
func NewTester(provider Provider) *Tester {
	return &Tester{provider: provider}
}

// Search runs one query and returns at most MaxReturn results in provider
// order. When a highlighted URL is configured but missing from that window,
// the first MaxHighlightSearch provider results are probed for it and a
// synthetic entry with its rank (or a not-found note) is appended.
func (t *Tester) Search(ctx context.Context, query string, cfg Config) ([]types.SearchResult, error) {
	cfg = cfg.withDefaults()

	raw, err := t.provider.Search(ctx, query, cfg.MaxHighlightSearch)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := raw
	if len(results) > cfg.MaxReturn {
		results = results[:cfg.MaxReturn]
	}
	// Copy so the appended highlight entry cannot clobber raw's backing array.
	results = append([]types.SearchResult(nil), results...)

	if cfg.HighlightedURL != "" && !containsURL(results, cfg.HighlightedURL) {
		results = append(results, highlightEntry(raw, cfg))
	}

	return results, nil
}

// highlightEntry builds the synthetic result reporting where (or whether)
// the highlighted URL ranks within the probed window.
func highlightEntry(raw []types.SearchResult, cfg Config) types.SearchResult {
	entry := types.SearchResult{Title: "Highlighted URL", URL: cfg.HighlightedURL}
	for i, r := range raw {
		if i >= cfg.MaxHighlightSearch {
			break
		}
		if normalize.Equal(r.URL, cfg.HighlightedURL) {
			entry.Rank = i + 1
			return entry
		}
	}
	entry.RankNote = fmt.Sprintf("Not found in top %d", cfg.MaxHighlightSearch)
	return entry
}

func containsURL(results []types.SearchResult, url string) bool {
	for _, r := range results {
		if normalize.Equal(r.URL, url) {
			return true
		}
	}
	return false
}

// Classify relates each result to the store: the highlighted URL, an item
// the model already holds, or a new URL. Purely read-side; no state stored.
func Classify(s *store.Store, results []types.SearchResult, highlightedURL string) []types.Classification {
	out := make([]types.Classification, len(results))
	for i, r := range results {
		switch {
		case highlightedURL != "" && normalize.Equal(r.URL, highlightedURL):
			out[i] = types.ClassHighlighted
		case s.FindByNormalizedURL(r.URL) != nil:
			out[i] = types.ClassExisting
		default:
			out[i] = types.ClassNew
		}
	}
	return out
}

// AddToModel merges a result URL into the model. Routed through the store's
// MergeURL so dedup matches the scrape pipeline's; adding an equivalent URL
// twice is a no-op the second time.
func AddToModel(s *store.Store, url string) (*types.Item, bool) {
	return s.MergeURL(url)
}
