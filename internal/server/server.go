// Package server provides the HTTP REST API for the content lab.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/contentlab/internal/config"
	"github.com/jonathan/contentlab/internal/db"
	"github.com/jonathan/contentlab/internal/orchestrator"
	"github.com/jonathan/contentlab/internal/server/ratelimit"
	"github.com/jonathan/contentlab/internal/types"
)

// Store is the persistence surface the handlers need. *db.DB satisfies it;
// tests substitute an in-memory fake.
type Store interface {
	CreateModel(ctx context.Context, userID string, model *types.Model) (uuid.UUID, error)
	GetModel(ctx context.Context, userID string, id uuid.UUID) (*types.Model, error)
	ListModels(ctx context.Context, userID string) ([]db.ModelSummary, error)
	SaveModel(ctx context.Context, userID string, model *types.Model) error
	DeleteModel(ctx context.Context, userID string, id uuid.UUID) (bool, error)

	SaveCSV(ctx context.Context, userID, filename, content string) (uuid.UUID, error)
	GetCSV(ctx context.Context, userID string, id uuid.UUID) (*db.CSVFile, error)
	ListCSVs(ctx context.Context, userID string) ([]db.CSVFile, error)
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	store       Store
	orch        *orchestrator.Orchestrator
	tokens      *TokenService
	rateLimiter *ratelimit.Limiter
	validate    *validator.Validate
}

// New creates a new server instance over an already-connected store.
func New(cfg *config.Config, store Store, orch *orchestrator.Orchestrator) *Server {
	s := &Server{
		store:       store,
		orch:        orch,
		tokens:      NewTokenService(cfg.JWTSecret),
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		validate:    validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Model CRUD
	mux.HandleFunc("GET /api/models", s.requireAuth(s.handleListModels))
	mux.HandleFunc("POST /api/models", s.requireAuth(s.handleCreateModel))
	mux.HandleFunc("GET /api/models/{id}", s.requireAuth(s.handleGetModel))
	mux.HandleFunc("DELETE /api/models/{id}", s.requireAuth(s.handleDeleteModel))
	mux.HandleFunc("POST /api/models/{id}/add-url", s.requireAuth(s.handleAddURL))

	// Batch jobs and search tests
	mux.HandleFunc("POST /api/models/{id}/scrape", s.requireAuth(s.handleScrape))
	mux.HandleFunc("POST /api/models/{id}/generate-alt-content", s.requireAuth(s.handleGenerateAltContent))
	mux.HandleFunc("POST /api/models/{id}/rate-content", s.requireAuth(s.handleRateContent))
	mux.HandleFunc("POST /api/models/{id}/test", s.requireAuth(s.handleSearchTest))

	// CSV uploads
	mux.HandleFunc("GET /api/csvs", s.requireAuth(s.handleListCSVs))
	mux.HandleFunc("POST /api/csvs", s.requireAuth(s.handleUploadCSV))
	mux.HandleFunc("GET /api/csvs/{id}", s.requireAuth(s.handleGetCSV))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		// Scrape and generation batches can run for minutes.
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes v as the JSON body with the given status.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// errorResponse writes a JSON error body with the given status.
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// pathModelID parses the {id} path segment.
func pathModelID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
