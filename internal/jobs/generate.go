package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/contentlab/internal/batch"
	"github.com/jonathan/contentlab/internal/llm"
	"github.com/jonathan/contentlab/internal/store"
	"github.com/jonathan/contentlab/internal/types"
)

// GenerateConfig controls one alt-content generation run.
type GenerateConfig struct {
	APIKey    string
	Prompt    string
	Model     string
	Delay     time.Duration
	RateLimit int
	MaxTokens int
}

// Validate checks the config before any item is touched. A missing API key
// is a batch-abort condition, not a per-item failure.
func (c *GenerateConfig) Validate() error {
	if c.APIKey == "" {
		return &ConfigError{Field: "apiKey", Message: "is required"}
	}
	if c.Prompt == "" {
		return &ConfigError{Field: "prompt", Message: "is required"}
	}
	if c.RateLimit < 0 {
		return &ConfigError{Field: "rateLimit", Message: "must be non-negative"}
	}
	if c.MaxTokens < 0 {
		return &ConfigError{Field: "maxTokens", Message: "must be non-negative"}
	}
	return nil
}

// GenerateJob sends each item's base content plus the prompt to the
// generation provider and appends the result as a new variant.
type GenerateJob struct {
	client llm.Client
	store  *store.Store
	config GenerateConfig

	// TotalTokens accumulates provider-reported output tokens across the run.
	TotalTokens int
}

// NewGenerateJob builds the job over the given store and provider client.
func NewGenerateJob(client llm.Client, s *store.Store, cfg GenerateConfig) *GenerateJob {
	return &GenerateJob{client: client, store: s, config: cfg}
}

// BatchConfig returns the pacing for this run.
func (j *GenerateJob) BatchConfig() batch.Config {
	return batch.Config{Delay: j.config.Delay, RateLimit: j.config.RateLimit}
}

// Operate implements batch.Operation for one item.
func (j *GenerateJob) Operate(ctx context.Context, item *types.Item) (string, error) {
	if item.BaseContent == "" {
		return "", batch.Skip(fmt.Sprintf("Skipped item: no base content for URL %s", item.URL))
	}

	text, tokens, err := j.client.GenerateAltContent(ctx, j.config.Prompt, item.BaseContent)
	if err != nil {
		if llm.IsAuthError(err) {
			return "", &batch.AbortError{Cause: err}
		}
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	key, err := j.store.AppendVariant(item.URL, text)
	if err != nil {
		return "", &batch.ItemError{URL: item.URL, Cause: err}
	}

	j.TotalTokens += tokens
	return fmt.Sprintf("Generated %s for URL: %s. Tokens: %d", key, item.URL, tokens), nil
}
