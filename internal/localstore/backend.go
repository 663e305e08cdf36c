package localstore

import (
	"context"
	"fmt"

	"github.com/hyperjump/kensaku/internal/keyword"
	"github.com/hyperjump/kensaku/internal/models"
)

// VectorSearch returns up to limit documents whose embedding has the query's
// dimension, by descending cosine similarity.
func (s *Store) VectorSearch(ctx context.Context, query models.Embedding, limit int, sourceIDs []string) ([]*models.VectorMatch, error) {
	if limit <= 0 {
		return nil, nil
	}
	hits, err := s.catalog().Search(ctx, query, limit, sourceIDs)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	docs, err := s.storage.GetDocuments(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched documents: %w", err)
	}
	matches := make([]*models.VectorMatch, 0, len(hits))
	for _, h := range hits {
		doc, ok := docs[h.ID]
		if !ok {
			// deleted between index lookup and load
			continue
		}
		matches = append(matches, &models.VectorMatch{Document: doc, Similarity: h.Score})
	}
	return matches, nil
}

// LexicalSearch scores every document matching text within the source
// filter. Scores are normalized to [0,1] by the best match.
func (s *Store) LexicalSearch(ctx context.Context, text string, sourceIDs []string) ([]*models.LexicalHit, error) {
	results, err := s.keywords.Search(ctx, text, &keyword.SearchOptions{
		TitleBoost: s.titleBoost,
		SourceIDs:  sourceIDs,
	})
	if err != nil {
		return nil, err
	}
	return normalizeScores(results), nil
}

func normalizeScores(results []*keyword.KeywordResult) []*models.LexicalHit {
	var maxScore float64
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	hits := make([]*models.LexicalHit, 0, len(results))
	for _, r := range results {
		score := 0.0
		if maxScore > 0 {
			score = r.Score / maxScore
		}
		hits = append(hits, &models.LexicalHit{ID: r.ID, Score: score})
	}
	return hits
}
