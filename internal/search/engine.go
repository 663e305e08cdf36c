// Package search provides the vector and hybrid search engine.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

const (
	modeVector = "vector"
	modeHybrid = "hybrid"
)

// Engine runs vector and hybrid searches against a Backend. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	backend Backend
	config  *config.SearchConfig
	logger  *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for the engine.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine over backend.
func NewEngine(backend Backend, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		backend: backend,
		config:  cfg,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// request is a query after validation, dimension resolution and defaults.
type request struct {
	embedding      models.Embedding
	inferred       bool
	limit          int
	sourceIDs      []string
	text           string
	semanticWeight float64
	lexicalWeight  float64
}

func (e *Engine) prepare(q *models.SearchQuery) (*request, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	emb, inferred, err := e.resolveEmbedding(q)
	if err != nil {
		return nil, err
	}
	limit := q.LimitOr(e.config.DefaultLimit)
	if e.config.MaxLimit > 0 && limit > e.config.MaxLimit {
		limit = e.config.MaxLimit
	}
	return &request{
		embedding:      emb,
		inferred:       inferred,
		limit:          limit,
		sourceIDs:      q.SourceFilter,
		text:           q.Text,
		semanticWeight: q.SemanticWeightOr(e.config.SemanticWeightOrDefault()),
		lexicalWeight:  q.LexicalWeightOr(e.config.LexicalWeightOrDefault()),
	}, nil
}

// resolveEmbedding tags the query vector with a dimension. An explicit
// dimension must be supported; otherwise the dimension is inferred from the
// vector size, falling back to vector.DefaultDimension.
func (e *Engine) resolveEmbedding(q *models.SearchQuery) (models.Embedding, bool, error) {
	if q.Dimension != nil {
		dim, err := vector.ParseDimension(*q.Dimension)
		if err != nil {
			return models.Embedding{}, false, err
		}
		emb, err := models.NewEmbedding(dim, q.Embedding)
		return emb, false, err
	}

	dim, ok := vector.ResolveDimension(q.Embedding)
	if !ok {
		metrics.DimensionFallbacksTotal.Inc()
		if e.config.StrictDimensionInference {
			return models.Embedding{}, true, fmt.Errorf("cannot infer dimension of a %d-value embedding: %w", len(q.Embedding), models.ErrInvalidArgument)
		}
		// Tagging the values with the default dimension fails the length
		// check below, so the request is rejected in both modes.
		e.logger.Warn("embedding size matches no supported dimension, rejecting as default dimension",
			zap.Int("length", len(q.Embedding)),
			zap.Int("encoded_size", vector.EncodedSize(models.Dimension(len(q.Embedding)))),
			zap.Int("default_dimension", int(dim)))
	}
	emb, err := models.NewEmbedding(dim, q.Embedding)
	return emb, true, err
}

// VectorSearch returns documents with the query's embedding dimension ordered
// by descending cosine similarity. RankScore equals Similarity.
func (e *Engine) VectorSearch(ctx context.Context, q *models.SearchQuery) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(modeVector, start, err) }()

	req, err := e.prepare(q)
	if err != nil {
		return nil, err
	}
	resp = newResponse(req)
	if req.limit == 0 {
		return finish(resp, start), nil
	}

	matches, err := e.backend.VectorSearch(ctx, req.embedding, req.limit, req.sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	metrics.SearchCandidates.WithLabelValues("vector").Observe(float64(len(matches)))
	for _, m := range matches {
		if len(resp.Results) == req.limit {
			break
		}
		resp.Results = append(resp.Results, models.NewSearchResult(m))
	}

	e.logger.Debug("vector search",
		zap.Int("dimension", int(req.embedding.Dimension())),
		zap.Int("limit", req.limit),
		zap.Int("results", len(resp.Results)))
	return finish(resp, start), nil
}

// Search runs a hybrid search: it over-fetches OverFetchFactor*limit vector
// candidates, scores the query text lexically within the same source filter,
// and re-ranks the candidates with Combine.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (resp *models.SearchResponse, err error) {
	start := time.Now()
	defer func() { observe(modeHybrid, start, err) }()

	req, err := e.prepare(q)
	if err != nil {
		return nil, err
	}
	resp = newResponse(req)
	if req.limit == 0 {
		return finish(resp, start), nil
	}

	var (
		candidates []*models.VectorMatch
		lexical    = map[string]float64{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := e.backend.VectorSearch(gctx, req.embedding, req.limit*OverFetchFactor, req.sourceIDs)
		if err != nil {
			return fmt.Errorf("vector search failed: %w", err)
		}
		candidates = matches
		return nil
	})
	if strings.TrimSpace(req.text) != "" {
		g.Go(func() error {
			hits, err := e.backend.LexicalSearch(gctx, req.text, req.sourceIDs)
			if err != nil {
				return fmt.Errorf("lexical search failed: %w", err)
			}
			lexical = LexicalScores(hits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.SearchCandidates.WithLabelValues("vector").Observe(float64(len(candidates)))
	metrics.SearchCandidates.WithLabelValues("lexical").Observe(float64(len(lexical)))

	resp.Results = Combine(candidates, lexical, req.semanticWeight, req.lexicalWeight, req.limit)

	e.logger.Debug("hybrid search",
		zap.Int("dimension", int(req.embedding.Dimension())),
		zap.Int("limit", req.limit),
		zap.Int("candidates", len(candidates)),
		zap.Int("lexical_matches", len(lexical)),
		zap.Int("results", len(resp.Results)))
	return finish(resp, start), nil
}

func newResponse(req *request) *models.SearchResponse {
	return &models.SearchResponse{
		Results:           []*models.SearchResult{},
		Dimension:         int(req.embedding.Dimension()),
		DimensionInferred: req.inferred,
	}
}

func finish(resp *models.SearchResponse, start time.Time) *models.SearchResponse {
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()
	metrics.SearchCandidates.WithLabelValues("result").Observe(float64(resp.Total))
	return resp
}

func observe(mode string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}
