// Package pgstore is the PostgreSQL search backend. It reads from a table
// maintained by an external ingester:
//
//	CREATE TABLE documents (
//		id             TEXT PRIMARY KEY,
//		source_id      TEXT NOT NULL,
//		url            TEXT,
//		title          TEXT,
//		content        TEXT,
//		metadata       JSONB,
//		embedding_384  vector(384),
//		embedding_768  vector(768),
//		embedding_1024 vector(1024),
//		embedding_1536 vector(1536),
//		embedding_3072 vector(3072),
//		search_vector  tsvector,
//		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
//		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//
// At most one embedding column is set per row. The pgvector extension
// provides the vector type and the <=> cosine distance operator.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/models"
)

// Store implements search.Backend over PostgreSQL.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects with the pgx driver and pings the server.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w: %w", models.ErrUnavailable, err)
	}
	return New(db, opts...), nil
}

// New wraps an open database handle.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VectorSearch runs the statement for the query's dimension and returns rows
// by ascending cosine distance.
func (s *Store) VectorSearch(ctx context.Context, query models.Embedding, limit int, sourceIDs []string) ([]*models.VectorMatch, error) {
	stmt, err := vectorQuery(query.Dimension())
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, stmt, vectorLiteral(query.Values()), sourceArg(sourceIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("query %d-dimension embeddings: %w", int(query.Dimension()), err)
	}
	defer rows.Close()

	var matches []*models.VectorMatch
	for rows.Next() {
		var (
			doc        models.Document
			url, title sql.NullString
			content    sql.NullString
			metadata   []byte
			similarity float64
		)
		if err := rows.Scan(&doc.ID, &doc.SourceID, &url, &title, &content, &metadata,
			&doc.CreatedAt, &doc.UpdatedAt, &similarity); err != nil {
			return nil, fmt.Errorf("scan vector match: %w", err)
		}
		doc.URL, doc.Title, doc.Content = url.String, title.String, content.String
		if err := decodeMetadata(metadata, &doc); err != nil {
			return nil, err
		}
		matches = append(matches, &models.VectorMatch{Document: &doc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector matches: %w", err)
	}
	return matches, nil
}

// LexicalSearch returns the ts_rank_cd score of every row matching text.
// Scores are not normalized.
func (s *Store) LexicalSearch(ctx context.Context, text string, sourceIDs []string) ([]*models.LexicalHit, error) {
	rows, err := s.db.QueryContext(ctx, lexicalQuery, text, sourceArg(sourceIDs))
	if err != nil {
		return nil, fmt.Errorf("query lexical scores: %w", err)
	}
	defer rows.Close()

	var hits []*models.LexicalHit
	for rows.Next() {
		var h models.LexicalHit
		if err := rows.Scan(&h.ID, &h.Score); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		hits = append(hits, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical hits: %w", err)
	}
	return hits, nil
}

// GetDocument loads a document without its embedding.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var (
		doc                 models.Document
		url, title, content sql.NullString
		metadata            []byte
	)
	err := s.db.QueryRowContext(ctx, getDocumentQuery, id).Scan(&doc.ID, &doc.SourceID, &url, &title, &content,
		&metadata, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.URL, doc.Title, doc.Content = url.String, title.String, content.String
	if err := decodeMetadata(metadata, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListSources returns the distinct source ids.
func (s *Store) ListSources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, listSourcesQuery)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()
	var sources []string
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ServerInfo describes the connected server.
type ServerInfo struct {
	Version  string `json:"version"`
	Database string `json:"database"`
	User     string `json:"user"`
}

// ServerInfo queries the server version and session identity.
func (s *Store) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	if err := s.db.QueryRowContext(ctx, serverInfoQuery).Scan(&info.Version, &info.Database, &info.User); err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}
	return &info, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// vectorLiteral formats values in pgvector's text input form, e.g. [1,0.5,-2].
func vectorLiteral(values []float32) string {
	var b strings.Builder
	b.Grow(len(values) * 8)
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

// sourceArg never returns nil so the statement always sees a text array.
func sourceArg(sourceIDs []string) []string {
	if sourceIDs == nil {
		return []string{}
	}
	return sourceIDs
}

func decodeMetadata(raw []byte, doc *models.Document) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &doc.Metadata); err != nil {
		return fmt.Errorf("decode metadata of %s: %w", doc.ID, err)
	}
	return nil
}
