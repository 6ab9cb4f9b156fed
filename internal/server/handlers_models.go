package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/contentlab/internal/csvio"
	"github.com/jonathan/contentlab/internal/types"
)

// CreateModelRequest represents the request body for POST /api/models.
// A model is seeded either from a single URL or from a previously uploaded
// CSV; exactly one of the two sources must be given.
type CreateModelRequest struct {
	Name string `json:"name"`

	// One-shot creation from a single page URL.
	URL string `json:"url,omitempty" validate:"omitempty,max=2048"`

	// CSV-backed creation.
	CSVID     string `json:"csvId,omitempty" validate:"omitempty,uuid"`
	URLColumn string `json:"urlColumn,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty" validate:"omitempty,max=2048"`
}

// ModelResponse represents a full model in API responses.
type ModelResponse struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	BaseURL       string             `json:"baseUrl,omitempty"`
	URLColumn     string             `json:"urlColumn,omitempty"`
	LastScrapedID string             `json:"lastScrapedId,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	Items         []types.Item       `json:"items"`
	Queries       []types.SavedQuery `json:"queries,omitempty"`
}

func modelResponse(m *types.Model) ModelResponse {
	return ModelResponse{
		ID:            m.ID.String(),
		Name:          m.Name,
		BaseURL:       m.BaseURL,
		URLColumn:     m.URLColumn,
		LastScrapedID: m.LastScrapedID,
		CreatedAt:     m.CreatedAt,
		Items:         m.Items,
		Queries:       m.Queries,
	}
}

// handleListModels returns summaries of the caller's models.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListModels(r.Context(), UserID(r.Context()))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list models: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"models": summaries})
}

// handleCreateModel creates a model from a single URL or an uploaded CSV.
func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	var req CreateModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if (req.URL == "") == (req.CSVID == "") {
		s.errorResponse(w, http.StatusBadRequest, "Exactly one of url or csvId is required")
		return
	}

	model := &types.Model{
		Name:      req.Name,
		BaseURL:   req.BaseURL,
		URLColumn: req.URLColumn,
	}

	switch {
	case req.URL != "":
		model.Items = []types.Item{{URL: req.URL}}
		if model.Name == "" {
			model.Name = defaultModelName(req.URL)
		}
	default:
		csvID, err := uuid.Parse(req.CSVID)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid csvId")
			return
		}
		if req.URLColumn == "" {
			s.errorResponse(w, http.StatusBadRequest, "urlColumn is required for CSV-backed models")
			return
		}
		file, err := s.store.GetCSV(r.Context(), UserID(r.Context()), csvID)
		if err != nil {
			s.errorResponse(w, http.StatusInternalServerError, "Failed to load CSV: "+err.Error())
			return
		}
		if file == nil {
			s.errorResponse(w, http.StatusNotFound, "CSV not found")
			return
		}
		items, err := csvio.Items(strings.NewReader(file.Content), req.URLColumn, req.BaseURL)
		if err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Failed to parse CSV: "+err.Error())
			return
		}
		model.Items = items
		if model.Name == "" {
			model.Name = strings.TrimSuffix(file.Filename, ".csv")
		}
	}

	id, err := s.store.CreateModel(r.Context(), UserID(r.Context()), model)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to create model: "+err.Error())
		return
	}
	model.ID = id
	s.jsonResponse(w, http.StatusCreated, modelResponse(model))
}

// defaultModelName derives a model name from the seed URL's host.
func defaultModelName(raw string) string {
	u, err := url.Parse(raw)
	if err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		trimmed = trimmed[:i]
	}
	if trimmed == "" {
		return "model"
	}
	return strings.TrimPrefix(trimmed, "www.")
}

// handleGetModel returns one model with its items.
func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, modelResponse(model))
}

// handleDeleteModel removes one model.
func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := pathModelID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid model ID")
		return
	}
	deleted, err := s.store.DeleteModel(r.Context(), UserID(r.Context()), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to delete model: "+err.Error())
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "Model not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddURLRequest represents the request body for add-url.
type AddURLRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// handleAddURL merges one URL into the model's item list.
func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	model, ok := s.loadModel(w, r)
	if !ok {
		return
	}

	var req AddURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	created, err := s.orch.AddURL(model, req.URL)
	if err != nil {
		s.errorResponse(w, httpStatus(err), err.Error())
		return
	}
	if err := s.store.SaveModel(r.Context(), UserID(r.Context()), model); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save model: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"created":    created,
		"totalItems": len(model.Items),
	})
}

// loadModel resolves the {id} path segment to the caller's model, writing
// the error response itself when it cannot.
func (s *Server) loadModel(w http.ResponseWriter, r *http.Request) (*types.Model, bool) {
	id, err := pathModelID(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid model ID")
		return nil, false
	}
	model, err := s.store.GetModel(r.Context(), UserID(r.Context()), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load model: "+err.Error())
		return nil, false
	}
	if model == nil {
		s.errorResponse(w, http.StatusNotFound, "Model not found")
		return nil, false
	}
	return model, true
}
