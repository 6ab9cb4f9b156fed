package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/contentlab/internal/config"
	"github.com/jonathan/contentlab/internal/db"
	"github.com/jonathan/contentlab/internal/fetch"
	"github.com/jonathan/contentlab/internal/llm"
	"github.com/jonathan/contentlab/internal/orchestrator"
	"github.com/jonathan/contentlab/internal/types"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	models map[uuid.UUID]*types.Model
	csvs   map[uuid.UUID]*db.CSVFile
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		models: make(map[uuid.UUID]*types.Model),
		csvs:   make(map[uuid.UUID]*db.CSVFile),
	}
}

func (f *fakeStore) CreateModel(_ context.Context, _ string, model *types.Model) (uuid.UUID, error) {
	id := uuid.New()
	model.ID = id
	model.CreatedAt = time.Now()
	clone := *model
	f.models[id] = &clone
	return id, nil
}

func (f *fakeStore) GetModel(_ context.Context, _ string, id uuid.UUID) (*types.Model, error) {
	m, ok := f.models[id]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (f *fakeStore) ListModels(_ context.Context, _ string) ([]db.ModelSummary, error) {
	var out []db.ModelSummary
	for _, m := range f.models {
		out = append(out, db.ModelSummary{ID: m.ID, Name: m.Name, CreatedAt: m.CreatedAt})
	}
	return out, nil
}

func (f *fakeStore) SaveModel(_ context.Context, _ string, model *types.Model) error {
	clone := *model
	f.models[model.ID] = &clone
	return nil
}

func (f *fakeStore) DeleteModel(_ context.Context, _ string, id uuid.UUID) (bool, error) {
	if _, ok := f.models[id]; !ok {
		return false, nil
	}
	delete(f.models, id)
	return true, nil
}

func (f *fakeStore) SaveCSV(_ context.Context, _, filename, content string) (uuid.UUID, error) {
	id := uuid.New()
	f.csvs[id] = &db.CSVFile{ID: id, Filename: filename, Content: content}
	return id, nil
}

func (f *fakeStore) GetCSV(_ context.Context, _ string, id uuid.UUID) (*db.CSVFile, error) {
	file, ok := f.csvs[id]
	if !ok {
		return nil, nil
	}
	return file, nil
}

func (f *fakeStore) ListCSVs(_ context.Context, _ string) ([]db.CSVFile, error) {
	var out []db.CSVFile
	for _, file := range f.csvs {
		out = append(out, db.CSVFile{ID: file.ID, Filename: file.Filename})
	}
	return out, nil
}

// fakeFetcher returns canned page text per URL.
type fakeFetcher struct {
	pages map[string]string
	err   error
}

func (f *fakeFetcher) Page(_ context.Context, rawURL, _ string) (*fetch.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	text, ok := f.pages[rawURL]
	if !ok {
		return nil, fmt.Errorf("no page for %s", rawURL)
	}
	return &fetch.Page{URL: rawURL, Title: "Title of " + rawURL, Text: text}, nil
}

// fakeLLM answers every generation with a fixed string and every rating with
// a fixed score.
type fakeLLM struct {
	text   string
	tokens int
	score  int
}

func (f *fakeLLM) GenerateAltContent(_ context.Context, _, _ string) (string, int, error) {
	return f.text, f.tokens, nil
}

func (f *fakeLLM) RateContent(_ context.Context, _ string) (int, error) {
	return f.score, nil
}

func (f *fakeLLM) Close() error { return nil }

// fakeProvider returns canned search results.
type fakeProvider struct {
	results []types.SearchResult
}

func (f *fakeProvider) Search(_ context.Context, _ string, _ int) ([]types.SearchResult, error) {
	return f.results, nil
}

func newTestServer(t *testing.T, store *fakeStore, fetcher *fakeFetcher, provider *fakeProvider) *Server {
	t.Helper()
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	if provider == nil {
		provider = &fakeProvider{}
	}
	factory := func(_ context.Context, _ *llm.Config, _ string) (llm.Client, error) {
		return &fakeLLM{text: "alt text", tokens: 7, score: 85}, nil
	}
	orch := orchestrator.New(fetcher, factory, provider)
	cfg := &config.Config{Port: 0, JWTSecret: "test-secret"}
	return New(cfg, store, orch)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	token, err := s.tokens.GenerateToken("user-1", time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealthNoAuth(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMissingTokenRejected(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateModelFromURL(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	w := doJSON(t, s, http.MethodPost, "/api/models", map[string]any{
		"url": "https://www.example.com/page",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp ModelResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "example.com", resp.Name)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://www.example.com/page", resp.Items[0].URL)
	// CreateModel fills the timestamp on the model it was handed, so the
	// creation response is never missing it.
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestCreateModelRequiresOneSource(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	w := doJSON(t, s, http.MethodPost, "/api/models", map[string]any{"name": "empty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, s, http.MethodPost, "/api/models", map[string]any{
		"url":   "https://example.com",
		"csvId": uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateModelFromCSV(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	up := doJSON(t, s, http.MethodPost, "/api/csvs", map[string]any{
		"filename": "pages.csv",
		"content":  "page_url,category\n/a,blog\nhttps://other.com/b,landing\n",
	})
	require.Equal(t, http.StatusCreated, up.Code)
	var uploaded map[string]string
	decodeBody(t, up, &uploaded)

	w := doJSON(t, s, http.MethodPost, "/api/models", map[string]any{
		"csvId":     uploaded["id"],
		"urlColumn": "page_url",
		"baseUrl":   "https://example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp ModelResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "pages", resp.Name)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "https://example.com/a", resp.Items[0].URL)
	assert.Equal(t, "https://other.com/b", resp.Items[1].URL)
	assert.Equal(t, "blog", resp.Items[0].Extra["category"])
}

func TestCreateModelFromCSVMissingColumn(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	up := doJSON(t, s, http.MethodPost, "/api/csvs", map[string]any{
		"filename": "pages.csv",
		"content":  "url\n/a\n",
	})
	require.Equal(t, http.StatusCreated, up.Code)
	var uploaded map[string]string
	decodeBody(t, up, &uploaded)

	w := doJSON(t, s, http.MethodPost, "/api/models", map[string]any{
		"csvId":     uploaded["id"],
		"urlColumn": "page_url",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadCSVRejectsMalformed(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	w := doJSON(t, s, http.MethodPost, "/api/csvs", map[string]any{
		"filename": "bad.csv",
		"content":  "a,b\n\"unterminated\n",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAddURLDeduplicates(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	created := doJSON(t, s, http.MethodPost, "/api/models", map[string]any{
		"url": "https://example.com/a",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	var model ModelResponse
	decodeBody(t, created, &model)

	w := doJSON(t, s, http.MethodPost, "/api/models/"+model.ID+"/add-url", map[string]any{
		"url": "http://example.com/a/",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Created    bool `json:"created"`
		TotalItems int  `json:"totalItems"`
	}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Created)
	assert.Equal(t, 1, resp.TotalItems)

	w = doJSON(t, s, http.MethodPost, "/api/models/"+model.ID+"/add-url", map[string]any{
		"url": "https://example.com/b",
	})
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &resp)
	assert.True(t, resp.Created)
	assert.Equal(t, 2, resp.TotalItems)
}

func TestScrapePersistsAndReportsLastScraped(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/a": "content a",
		"https://example.com/b": "content b",
	}}
	s := newTestServer(t, store, fetcher, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{
		Name: "m",
		Items: []types.Item{
			{URL: "https://example.com/a"},
			{URL: "https://example.com/b"},
		},
	})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/scrape", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 2, resp.ItemsProcessed)
	assert.Equal(t, "https://example.com/b", resp.LastScrapedID)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "Successfully scraped: https://example.com/a", resp.Messages[0])

	saved, _ := store.GetModel(context.Background(), "user-1", id)
	assert.Equal(t, "content a", saved.Items[0].BaseContent)
}

func TestScrapeToleratesItemFailure(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/a": "content a",
	}}
	s := newTestServer(t, store, fetcher, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{
		Name: "m",
		Items: []types.Item{
			{URL: "https://example.com/missing"},
			{URL: "https://example.com/a"},
		},
	})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/scrape", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Messages, 2)
	assert.Contains(t, resp.Messages[0], "Failed: ")
	assert.Equal(t, "Successfully scraped: https://example.com/a", resp.Messages[1])
}

func TestScrapeModelNotFound(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil, nil)

	w := doJSON(t, s, http.MethodPost, "/api/models/"+uuid.New().String()+"/scrape", map[string]any{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{Name: "m"})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/generate-alt-content", map[string]any{
		"prompt": "rewrite this",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateAppendsVariants(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{
		Name: "m",
		Items: []types.Item{
			{URL: "https://example.com/a", BaseContent: "base a"},
			{URL: "https://example.com/empty"},
		},
	})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/generate-alt-content", map[string]any{
		"apiKey": "k",
		"prompt": "rewrite this",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.ItemsProcessed)
	assert.Equal(t, 7, resp.TotalTokens)

	saved, _ := store.GetModel(context.Background(), "user-1", id)
	require.Len(t, saved.Items[0].Variants, 1)
	assert.Equal(t, "variant-0", saved.Items[0].Variants[0].Key)
	assert.Equal(t, "alt text", saved.Items[0].Variants[0].Text)
	assert.Empty(t, saved.Items[1].Variants)
}

func TestRateContentRecordsScores(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{
		Name: "m",
		Items: []types.Item{
			{URL: "https://example.com/a", BaseContent: "base a"},
		},
	})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/rate-content", map[string]any{
		"apiKey":      "k",
		"contentType": types.BaseContentKey,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp BatchResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, 1, resp.TotalRated)

	saved, _ := store.GetModel(context.Background(), "user-1", id)
	assert.Equal(t, 85, saved.Items[0].Ratings[types.BaseContentKey])
}

func TestRateContentRejectsUnknownKey(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{Name: "m"})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/rate-content", map[string]any{
		"apiKey":      "k",
		"contentType": "no-such-key",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchTestClassifiesAndSavesQuery(t *testing.T) {
	store := newFakeStore()
	provider := &fakeProvider{results: []types.SearchResult{
		{Title: "A", URL: "https://a.com"},
		{Title: "B", URL: "https://b.com"},
	}}
	s := newTestServer(t, store, nil, provider)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{
		Name:  "m",
		Items: []types.Item{{URL: "a.com"}},
	})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/test", map[string]any{
		"query":          "content experiments",
		"highlightedUrl": "b.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp SearchTestResponse
	decodeBody(t, w, &resp)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, types.ClassExisting, resp.Results[0].Classification)
	assert.Equal(t, types.ClassHighlighted, resp.Results[1].Classification)

	saved, _ := store.GetModel(context.Background(), "user-1", id)
	require.Len(t, saved.Queries, 1)
	assert.Equal(t, "content experiments", saved.Queries[0].Query)
}

func TestSearchTestRejectsUnknownMethod(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{Name: "m"})

	w := doJSON(t, s, http.MethodPost, "/api/models/"+id.String()+"/test", map[string]any{
		"query":      "q",
		"testMethod": "bing",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteModel(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, nil, nil)

	id, _ := store.CreateModel(context.Background(), "user-1", &types.Model{Name: "m"})

	w := doJSON(t, s, http.MethodDelete, "/api/models/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, s, http.MethodDelete, "/api/models/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
