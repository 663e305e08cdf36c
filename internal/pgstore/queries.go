package pgstore

import (
	"fmt"

	"github.com/hyperjump/kensaku/internal/models"
)

// One statement per dimension. Each reads only its own embedding column, so a
// query can never compare vectors of different sizes. $1 is the query vector,
// $2 the source filter (empty array for none) and $3 the limit.
const (
	vectorQuery384 = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at,
	1 - (embedding_384 <=> $1::vector) AS similarity
FROM documents
WHERE embedding_384 IS NOT NULL
	AND (cardinality($2::text[]) = 0 OR source_id = ANY($2::text[]))
ORDER BY embedding_384 <=> $1::vector
LIMIT $3`

	vectorQuery768 = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at,
	1 - (embedding_768 <=> $1::vector) AS similarity
FROM documents
WHERE embedding_768 IS NOT NULL
	AND (cardinality($2::text[]) = 0 OR source_id = ANY($2::text[]))
ORDER BY embedding_768 <=> $1::vector
LIMIT $3`

	vectorQuery1024 = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at,
	1 - (embedding_1024 <=> $1::vector) AS similarity
FROM documents
WHERE embedding_1024 IS NOT NULL
	AND (cardinality($2::text[]) = 0 OR source_id = ANY($2::text[]))
ORDER BY embedding_1024 <=> $1::vector
LIMIT $3`

	vectorQuery1536 = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at,
	1 - (embedding_1536 <=> $1::vector) AS similarity
FROM documents
WHERE embedding_1536 IS NOT NULL
	AND (cardinality($2::text[]) = 0 OR source_id = ANY($2::text[]))
ORDER BY embedding_1536 <=> $1::vector
LIMIT $3`

	vectorQuery3072 = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at,
	1 - (embedding_3072 <=> $1::vector) AS similarity
FROM documents
WHERE embedding_3072 IS NOT NULL
	AND (cardinality($2::text[]) = 0 OR source_id = ANY($2::text[]))
ORDER BY embedding_3072 <=> $1::vector
LIMIT $3`
)

// lexicalQuery matches rows containing any query lexeme. plainto_tsquery
// joins lexemes with &, so they are rejoined with | and cast back without
// a second normalization pass.
const lexicalQuery = `
WITH q AS (
	SELECT replace(plainto_tsquery('english', $1)::text, ' & ', ' | ')::tsquery AS query
)
SELECT d.id, ts_rank_cd(d.search_vector, q.query) AS score
FROM documents d, q
WHERE d.search_vector @@ q.query
	AND (cardinality($2::text[]) = 0 OR d.source_id = ANY($2::text[]))`

const getDocumentQuery = `
SELECT id, source_id, url, title, content, metadata, created_at, updated_at
FROM documents
WHERE id = $1`

const listSourcesQuery = `SELECT DISTINCT source_id FROM documents ORDER BY source_id`

const serverInfoQuery = `SELECT version(), current_database(), current_user`

func vectorQuery(d models.Dimension) (string, error) {
	switch d {
	case models.Dim384:
		return vectorQuery384, nil
	case models.Dim768:
		return vectorQuery768, nil
	case models.Dim1024:
		return vectorQuery1024, nil
	case models.Dim1536:
		return vectorQuery1536, nil
	case models.Dim3072:
		return vectorQuery3072, nil
	default:
		return "", fmt.Errorf("unsupported embedding dimension %d: %w", int(d), models.ErrInvalidArgument)
	}
}
