package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
)

func (s *Server) decodeQuery(w http.ResponseWriter, r *http.Request) (*models.SearchQuery, bool) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(query.Embedding) == 0 && strings.TrimSpace(query.Text) != "" {
		if s.embedder == nil {
			s.respondError(w, http.StatusBadRequest, "query_embedding is required")
			return nil, false
		}
		emb, err := s.embedder.Embed(r.Context(), query.Text)
		if err != nil {
			s.fail(w, "embed query", err)
			return nil, false
		}
		query.Embedding = emb
	}
	return &query, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	s.logger.Debug("search request",
		zap.Int("embedding_length", len(query.Embedding)),
		zap.Bool("has_text", query.Text != ""),
		zap.Strings("sources", query.SourceFilter))
	resp, err := s.searcher.Search(r.Context(), query)
	if err != nil {
		s.fail(w, "search", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	query, ok := s.decodeQuery(w, r)
	if !ok {
		return
	}
	resp, err := s.searcher.VectorSearch(r.Context(), query)
	if err != nil {
		s.fail(w, "vector search", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		s.fail(w, "index document", fmt.Errorf("document ingestion on the %s backend: %w", s.backend, models.ErrNotSupported))
		return
	}
	var input models.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := s.ingester.IndexDocument(r.Context(), &input)
	if err != nil {
		s.fail(w, "index document", err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        doc.ID,
		"source_id": doc.SourceID,
		"dimension": int(doc.Embedding.Dimension()),
		"status":    "indexed",
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.catalog.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get document", err)
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		s.fail(w, "delete document", fmt.Errorf("document deletion on the %s backend: %w", s.backend, models.ErrNotSupported))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.ingester.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, "delete document", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.catalog.ListSources(r.Context())
	if err != nil {
		s.fail(w, "list sources", err)
		return
	}
	if sources == nil {
		sources = []string{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	dims := make([]int, len(models.SupportedDimensions))
	for i, d := range models.SupportedDimensions {
		dims[i] = int(d)
	}
	resp := map[string]interface{}{
		"status":               "ok",
		"backend":              s.backend,
		"supported_dimensions": dims,
		"ingestion":            s.ingester != nil,
	}
	if s.embedder != nil {
		resp["embedding_dimensions"] = s.embedder.Dimensions()
	}
	if s.status != nil {
		details, err := s.status(r.Context())
		if err != nil {
			s.fail(w, "status", err)
			return
		}
		resp["details"] = details
	}
	respondJSON(w, http.StatusOK, resp)
}
