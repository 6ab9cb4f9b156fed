package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/contentlab/internal/csvio"
)

// UploadCSVRequest represents the request body for POST /api/csvs. Content
// is the raw CSV text; it is parsed once up front so malformed files are
// rejected at upload time rather than at model creation.
type UploadCSVRequest struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
}

// handleUploadCSV stores an uploaded CSV for later model creation.
func (s *Server) handleUploadCSV(w http.ResponseWriter, r *http.Request) {
	var req UploadCSVRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	if err := csvio.Check(strings.NewReader(req.Content)); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid CSV: "+err.Error())
		return
	}

	id, err := s.store.SaveCSV(r.Context(), UserID(r.Context()), req.Filename, req.Content)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to save CSV: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, map[string]string{
		"id":       id.String(),
		"filename": req.Filename,
	})
}

// handleListCSVs returns the caller's uploaded CSVs without their contents.
func (s *Server) handleListCSVs(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListCSVs(r.Context(), UserID(r.Context()))
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to list CSVs: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"csvs": files})
}

// handleGetCSV returns one uploaded CSV including its content.
func (s *Server) handleGetCSV(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid CSV ID")
		return
	}
	file, err := s.store.GetCSV(r.Context(), UserID(r.Context()), id)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "Failed to load CSV: "+err.Error())
		return
	}
	if file == nil {
		s.errorResponse(w, http.StatusNotFound, "CSV not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"id":          file.ID.String(),
		"filename":    file.Filename,
		"content":     file.Content,
		"uploaded_at": file.UploadedAt,
	})
}
