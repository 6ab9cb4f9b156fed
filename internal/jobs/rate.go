package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/contentlab/internal/batch"
	"github.com/jonathan/contentlab/internal/llm"
	"github.com/jonathan/contentlab/internal/store"
	"github.com/jonathan/contentlab/internal/types"
)

// RatingMethodGemini is the only rating provider currently wired.
const RatingMethodGemini = "gemini"

// RateConfig controls one content-rating run.
type RateConfig struct {
	APIKey string
	// ContentKey selects which content unit is rated: types.BaseContentKey
	// or a positional variant key. Items lacking that unit fail per-item
	// and the batch continues.
	ContentKey   string
	RatingMethod string
}

// Validate checks the config before any item is touched.
func (c *RateConfig) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "apiKey", Message: "is required"}
	}
	if c.ContentKey == "" {
		return &ConfigError{Field: "contentKey", Message: "is required"}
	}
	if c.ContentKey != types.BaseContentKey {
		if _, ok := types.VariantIndex(c.ContentKey); !ok {
			return &ConfigError{Field: "contentKey", Message: fmt.Sprintf("unknown content key %q", c.ContentKey)}
		}
	}
	if c.RatingMethod != RatingMethodGemini {
		return &ConfigError{Field: "ratingMethod", Message: fmt.Sprintf("unsupported rating method %q", c.RatingMethod)}
	}
	return nil
}

// RateJob resolves the configured content key on each item, sends the text
// to the rating provider, and records the returned score.
type RateJob struct {
	client llm.Client
	store  *store.Store
	config RateConfig

	// TotalRated counts items whose score was recorded.
	TotalRated int
}

// NewRateJob builds the job over the given store and provider client.
func NewRateJob(client llm.Client, s *store.Store, cfg RateConfig) *RateJob {
	return &RateJob{client: client, store: s, config: cfg}
}

// BatchConfig returns the pacing for this run.
func (j *RateJob) BatchConfig() batch.Config {
	return batch.Config{}
}

// Operate implements batch.Operation for one item. An item lacking the
// configured variant is a normal, tolerated failure: items accumulate
// variants at different rates.
func (j *RateJob) Operate(ctx context.Context, item *types.Item) (string, error) {
	text, err := j.store.Content(item.URL, j.config.ContentKey)
	if err != nil {
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", batch.Skip(fmt.Sprintf("Skipped rating for URL %s: empty %s", item.URL, j.config.ContentKey))
	}

	score, err := j.client.RateContent(ctx, text)
	if err != nil {
		if llm.IsAuthError(err) {
			return "", &batch.AbortError{Cause: err}
		}
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	if err := j.store.SetRating(item.URL, j.config.ContentKey, score); err != nil {
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	j.TotalRated++
	return fmt.Sprintf("Rated %s for URL %s: %d/100", j.config.ContentKey, item.URL, score), nil
}
