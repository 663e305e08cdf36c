// Package server provides the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
)

// Searcher runs searches. Implemented by *search.Engine.
type Searcher interface {
	Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)
	VectorSearch(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)
}

// Catalog reads stored documents. Implemented by both backends.
type Catalog interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListSources(ctx context.Context) ([]string, error)
}

// Ingester writes documents. Only the local backend has one.
type Ingester interface {
	IndexDocument(ctx context.Context, input *models.DocumentInput) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
}

// StatusFunc reports backend-specific status.
type StatusFunc func(ctx context.Context) (interface{}, error)

// Server is the HTTP server for the search API.
type Server struct {
	searcher Searcher
	catalog  Catalog
	ingester Ingester
	embedder embedding.Embedder
	status   StatusFunc
	backend  string
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithIngester enables the document write endpoints.
func WithIngester(i Ingester) Option {
	return func(s *Server) { s.ingester = i }
}

// WithEmbedder lets search requests send query_text without query_embedding.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Server) { s.embedder = e }
}

// WithStatus adds backend details to /api/v1/status.
func WithStatus(backend string, fn StatusFunc) Option {
	return func(s *Server) {
		s.backend = backend
		s.status = fn
	}
}

// NewServer creates a server.
func NewServer(searcher Searcher, catalog Catalog, cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		searcher: searcher,
		catalog:  catalog,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.RateLimit > 0 {
			r.Use(RateLimit(s.config.RateLimit, s.config.RateBurst))
		}
		r.Post("/search", s.handleSearch)
		r.Post("/search/vector", s.handleVectorSearch)
		r.Post("/documents", s.handleIndexDocument)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Get("/sources", s.handleListSources)
		r.Get("/status", s.handleStatus)
	})
	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
