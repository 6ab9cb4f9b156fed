// Package orchestrator ties the batch jobs, the search tester, and the
// per-model concurrency rule together. It owns the single-flight invariant:
// at most one batch job runs against a model at any time, which is what lets
// the store mutate items without internal locking.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/contentlab/internal/batch"
	"github.com/jonathan/contentlab/internal/jobs"
	"github.com/jonathan/contentlab/internal/llm"
	"github.com/jonathan/contentlab/internal/search"
	"github.com/jonathan/contentlab/internal/store"
	"github.com/jonathan/contentlab/internal/types"
)

// ErrJobInProgress is returned when a batch job is requested for a model
// that already has one running. No side effects occur.
type ErrJobInProgress struct {
	ModelID uuid.UUID
}

func (e *ErrJobInProgress) Error() string {
	return fmt.Sprintf("a job is already running for model %s", e.ModelID)
}

// LLMFactory builds a provider client from a per-request API key. Factored
// out so tests can substitute a fake provider.
type LLMFactory func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.Client, error)

// Orchestrator exposes one call per job type over a model.
type Orchestrator struct {
	fetcher  jobs.PageFetcher
	newLLM   LLMFactory
	searcher search.Provider

	mu      sync.Mutex
	running map[uuid.UUID]bool
}

// New creates an orchestrator. A nil factory defaults to the Gemini client;
// a nil search provider defaults to Google results scraping.
func New(fetcher jobs.PageFetcher, factory LLMFactory, searcher search.Provider) *Orchestrator {
	if factory == nil {
		factory = func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.Client, error) {
			return llm.NewGeminiClient(ctx, cfg, apiKey)
		}
	}
	if searcher == nil {
		searcher = search.NewGoogleProvider(nil)
	}
	return &Orchestrator{
		fetcher:  fetcher,
		newLLM:   factory,
		searcher: searcher,
		running:  make(map[uuid.UUID]bool),
	}
}

// acquire marks the model as having a batch in flight.
func (o *Orchestrator) acquire(modelID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[modelID] {
		return &ErrJobInProgress{ModelID: modelID}
	}
	o.running[modelID] = true
	return nil
}

func (o *Orchestrator) release(modelID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, modelID)
}

// Scrape runs the scrape job over the model's items. The model is mutated in
// place; the caller persists it afterwards, even on a partial failure.
func (o *Orchestrator) Scrape(ctx context.Context, model *types.Model, cfg jobs.ScrapeConfig) (*types.BatchResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := o.acquire(model.ID); err != nil {
		return nil, err
	}
	defer o.release(model.ID)

	s := store.New(model)
	job := jobs.NewScrapeJob(o.fetcher, s, cfg)

	log.Printf("[SCRAPE] model %s: starting over %d items (rescrape=%v limit=%d)", model.ID, s.Len(), cfg.Rescrape, cfg.Limit)
	result, err := batch.Run(ctx, s.Items(), job.BatchConfig(), job.Operate)
	if result != nil && result.LastProcessedItem != "" {
		model.LastScrapedID = result.LastProcessedItem
	}
	return result, err
}

// GenerateAltContent runs the generation job, appending one new variant per
// item that has base content. Returns the batch result and the total output
// tokens the provider reported.
func (o *Orchestrator) GenerateAltContent(ctx context.Context, model *types.Model, cfg jobs.GenerateConfig) (*types.BatchResult, int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	if err := o.acquire(model.ID); err != nil {
		return nil, 0, err
	}
	defer o.release(model.ID)

	client, err := o.newLLM(ctx, &llm.Config{GenerationModel: cfg.Model, MaxTokens: cfg.MaxTokens}, cfg.APIKey)
	if err != nil {
		return nil, 0, err
	}
	defer client.Close()

	s := store.New(model)
	job := jobs.NewGenerateJob(client, s, cfg)

	log.Printf("[GENERATE] model %s: starting over %d items (model=%s)", model.ID, s.Len(), cfg.Model)
	result, err := batch.Run(ctx, s.Items(), job.BatchConfig(), job.Operate)
	return result, job.TotalTokens, err
}

// RateContent runs the rating job for one content key across all items.
// Returns the batch result and how many items were actually rated.
func (o *Orchestrator) RateContent(ctx context.Context, model *types.Model, cfg jobs.RateConfig) (*types.BatchResult, int, error) {
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}
	if err := o.acquire(model.ID); err != nil {
		return nil, 0, err
	}
	defer o.release(model.ID)

	client, err := o.newLLM(ctx, &llm.Config{}, cfg.APIKey)
	if err != nil {
		return nil, 0, err
	}
	defer client.Close()

	s := store.New(model)
	job := jobs.NewRateJob(client, s, cfg)

	log.Printf("[RATE] model %s: rating %s over %d items", model.ID, cfg.ContentKey, s.Len())
	result, err := batch.Run(ctx, s.Items(), job.BatchConfig(), job.Operate)
	return result, job.TotalRated, err
}

// SearchTest issues one query, classifies the results against the model, and
// records the query in the model's history.
func (o *Orchestrator) SearchTest(ctx context.Context, model *types.Model, query string, cfg search.Config) ([]types.SearchResult, []types.Classification, error) {
	if query == "" {
		return nil, nil, &jobs.ConfigError{Field: "query", Message: "is required"}
	}

	tester := search.NewTester(o.searcher)
	results, err := tester.Search(ctx, query, cfg)
	if err != nil {
		return nil, nil, err
	}

	s := store.New(model)
	classes := search.Classify(s, results, cfg.HighlightedURL)

	model.Queries = append(model.Queries, types.SavedQuery{
		Query:   query,
		RanAt:   time.Now(),
		Results: results,
	})
	return results, classes, nil
}

// AddURL merges one URL into the model, reusing the store's normalized
// dedup. Reports whether a new item was created.
func (o *Orchestrator) AddURL(model *types.Model, url string) (bool, error) {
	if url == "" {
		return false, &jobs.ConfigError{Field: "url", Message: "is required"}
	}
	_, created := store.New(model).MergeURL(url)
	return created, nil
}
