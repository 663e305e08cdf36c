package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/indexer"
	"github.com/hyperjump/kensaku/internal/localstore"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/pgstore"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/storage"
)

// Components holds initialized services. Exactly one of Local and Postgres is set.
type Components struct {
	Config   *config.Config
	Engine   *search.Engine
	Embedder embedding.Embedder
	Local    *localstore.Store
	Postgres *pgstore.Store
	Indexer  *indexer.Indexer
}

// Catalog returns the document reader of the active backend.
func (c *Components) Catalog() server.Catalog {
	if c.Local != nil {
		return c.Local
	}
	return c.Postgres
}

func (c *Components) Close() {
	if c.Local != nil {
		_ = c.Local.Close()
	}
	if c.Postgres != nil {
		_ = c.Postgres.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c := &Components{Config: cfg}

	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		logger.Warn("embedder unavailable, falling back to mock",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = embedding.NewCachedEmbedder(
			embedding.NewMockEmbedder(cfg.Embedding.Dimensions), config.ProviderMock, cfg.Embedding.CacheSize)
	}
	c.Embedder = embedder

	var backend search.Backend
	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.Postgres.ConnectionString(), pgstore.WithLogger(logger))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Postgres = pg
		backend = pg
		if cfg.Postgres.BreakerEnabledOrDefault() {
			backend = search.NewBreakerBackend(pg, search.BreakerConfig{Name: "postgres"}, logger)
		}
	default:
		local, err := localstore.Open(ctx, cfg, localstore.WithLogger(logger))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Local = local
		backend = local
		c.Indexer = indexer.NewIndexer(local, embedder, nil, &cfg.Ingest, indexer.WithLogger(logger))
	}

	c.Engine = search.NewEngine(backend, &cfg.Search, search.WithLogger(logger))
	logger.Info("components initialized",
		zap.String("backend", cfg.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Int("embedding_dimensions", embedder.Dimensions()))
	return c, nil
}

// Status reports backend details for the status command and endpoint.
func (c *Components) Status(ctx context.Context) (*cli.StatusDetails, error) {
	if c.Postgres != nil {
		info, err := c.Postgres.ServerInfo(ctx)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, models.ErrUnavailable)
		}
		return &cli.StatusDetails{ServerVersion: info.Version, Database: info.Database, User: info.User}, nil
	}
	stats, err := c.Local.Stats(ctx)
	if err != nil {
		return nil, err
	}
	details := &cli.StatusDetails{
		Documents:     stats.Documents,
		ByDimension:   stats.ByDimension,
		VectorIndexes: stats.VectorIndexes,
		LexicalDocs:   stats.LexicalDocs,
	}
	if disk, err := storage.DiskUsageBytes(c.Config.Storage.DatabasePath, c.Config.Storage.BleveIndexPath); err == nil {
		details.DiskUsageBytes = &disk
	}
	return details, nil
}

// localStatus builds the full status without a running server.
func (c *Components) localStatus(ctx context.Context) (*cli.Status, error) {
	details, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	dims := make([]int, len(models.SupportedDimensions))
	for i, d := range models.SupportedDimensions {
		dims[i] = int(d)
	}
	return &cli.Status{
		Status:              "ok",
		Backend:             c.Config.Backend,
		SupportedDimensions: dims,
		Ingestion:           c.Indexer != nil,
		EmbeddingDimensions: c.Embedder.Dimensions(),
		Details:             details,
	}, nil
}

func (c *Components) serverOptions() []server.Option {
	opts := []server.Option{
		server.WithEmbedder(c.Embedder),
		server.WithStatus(c.Config.Backend, func(ctx context.Context) (interface{}, error) {
			return c.Status(ctx)
		}),
	}
	if c.Indexer != nil {
		opts = append(opts, server.WithIngester(c.Indexer))
	}
	return opts
}
