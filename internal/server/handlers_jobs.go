package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jonathan/contentlab/internal/jobs"
	"github.com/jonathan/contentlab/internal/search"
	"github.com/jonathan/contentlab/internal/types"
)

// TestMethodGoogle is the only search-test provider currently wired.
const TestMethodGoogle = "google"

// ScrapeRequest represents the request body for scrape runs. Delay is in
// seconds, matching the other job configs on the wire.
type ScrapeRequest struct {
	Rescrape bool    `json:"rescrape"`
	Limit    int     `json:"limit" validate:"gte=0"`
	Delay    float64 `json:"delay" validate:"gte=0"`
}

// BatchResponse is the shared shape of all batch-job responses: the flat
// feedback transcript plus job-specific counters.
type BatchResponse struct {
	Messages       []string `json:"messages"`
	ItemsProcessed int      `json:"items_processed"`
	LastScrapedID  string   `json:"last_scraped_id,omitempty"`
	TotalTokens    int      `json:"total_tokens_generated,omitempty"`
	TotalRated     int      `json:"total_rated,omitempty"`
}

// handleScrape runs the scrape job over the model and persists the result.
// A partially failed batch still returns its transcript with a 200.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}

	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, err := s.orch.Scrape(r.Context(), model, jobs.ScrapeConfig{
		Rescrape: req.Rescrape,
		Limit:    req.Limit,
		Delay:    secondsToDuration(req.Delay),
	})
	if result == nil {
		s.errorResponse(w, httpStatus(err), err.Error())
		return
	}
	if err := s.store.SaveModel(r.Context(), UserID(r.Context()), model); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save model: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, BatchResponse{
		Messages:       result.Feedback,
		ItemsProcessed: result.ItemsProcessed,
		LastScrapedID:  model.LastScrapedID,
	})
}

// GenerateRequest represents the request body for generation runs.
type GenerateRequest struct {
	APIKey    string  `json:"apiKey" validate:"required"`
	Prompt    string  `json:"prompt" validate:"required"`
	Model     string  `json:"model"`
	Delay     float64 `json:"delay" validate:"gte=0"`
	RateLimit int     `json:"rateLimit" validate:"gte=0"`
	MaxTokens int     `json:"maxTokens" validate:"gte=0"`
}

// handleGenerateAltContent runs the variant-generation job.
func (s *Server) handleGenerateAltContent(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	result, totalTokens, err := s.orch.GenerateAltContent(r.Context(), model, jobs.GenerateConfig{
		APIKey:    req.APIKey,
		Prompt:    req.Prompt,
		Model:     req.Model,
		Delay:     secondsToDuration(req.Delay),
		RateLimit: req.RateLimit,
		MaxTokens: req.MaxTokens,
	})
	if result == nil {
		s.errorResponse(w, httpStatus(err), err.Error())
		return
	}
	if err := s.store.SaveModel(r.Context(), UserID(r.Context()), model); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save model: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, BatchResponse{
		Messages:       result.Feedback,
		ItemsProcessed: result.ItemsProcessed,
		TotalTokens:    totalTokens,
	})
}

// RateRequest represents the request body for rating runs. ContentType names
// the content unit to rate, base or a positional variant key.
type RateRequest struct {
	APIKey       string `json:"apiKey" validate:"required"`
	ContentType  string `json:"contentType" validate:"required"`
	RatingMethod string `json:"ratingMethod"`
}

// handleRateContent runs the rating job for one content key.
func (s *Server) handleRateContent(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.RatingMethod == "" {
		req.RatingMethod = jobs.RatingMethodGemini
	}

	result, totalRated, err := s.orch.RateContent(r.Context(), model, jobs.RateConfig{
		APIKey:       req.APIKey,
		ContentKey:   req.ContentType,
		RatingMethod: req.RatingMethod,
	})
	if result == nil {
		s.errorResponse(w, httpStatus(err), err.Error())
		return
	}
	if err := s.store.SaveModel(r.Context(), UserID(r.Context()), model); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save model: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, BatchResponse{
		Messages:       result.Feedback,
		ItemsProcessed: result.ItemsProcessed,
		TotalRated:     totalRated,
	})
}

// SearchTestRequest represents the request body for search tests.
type SearchTestRequest struct {
	Query              string `json:"query" validate:"required"`
	TestMethod         string `json:"testMethod"`
	MaxReturn          int    `json:"maxReturn" validate:"gte=0"`
	MaxHighlightSearch int    `json:"maxHighlightSearch" validate:"gte=0"`
	HighlightedURL     string `json:"highlightedUrl"`
}

// SearchTestResponse pairs each returned result with its classification
// relative to the model.
type SearchTestResponse struct {
	Results []ClassifiedResult `json:"results"`
}

// ClassifiedResult is one search result plus how it relates to the model.
type ClassifiedResult struct {
	types.SearchResult
	Classification types.Classification `json:"classification"`
}

// handleSearchTest runs one query, classifies the results, and saves the
// query on the model.
func (s *Server) handleSearchTest(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}

	var req SearchTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if req.TestMethod == "" {
		req.TestMethod = TestMethodGoogle
	}
	if req.TestMethod != TestMethodGoogle {
		s.errorResponse(w, http.StatusBadRequest, "Unsupported test method: "+req.TestMethod)
		return
	}

	results, classes, err := s.orch.SearchTest(r.Context(), model, req.Query, search.Config{
		MaxReturn:          req.MaxReturn,
		MaxHighlightSearch: req.MaxHighlightSearch,
		HighlightedURL:     req.HighlightedURL,
	})
	if err != nil {
		s.errorResponse(w, httpStatus(err), err.Error())
		return
	}
	if err := s.store.SaveModel(r.Context(), UserID(r.Context()), model); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save model: "+err.Error())
		return
	}

	classified := make([]ClassifiedResult, len(results))
	for i, res := range results {
		classified[i] = ClassifiedResult{SearchResult: res, Classification: classes[i]}
	}
	s.jsonResponse(w, http.StatusOK, SearchTestResponse{Results: classified})
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
