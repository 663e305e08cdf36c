package search

import (
	"sort"

	"github.com/hyperjump/kensaku/internal/models"
)

// OverFetchFactor is how many vector candidates per requested result a hybrid
// search considers before re-ranking.
const OverFetchFactor = 2

// LexicalScores indexes hits by document ID.
func LexicalScores(hits []*models.LexicalHit) map[string]float64 {
	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.ID] = h.Score
	}
	return scores
}

// Combine re-ranks vector candidates by
//
//	rank = similarity*semanticWeight + lexical*lexicalWeight
//
// where lexical is the candidate's lexical score or 0. Documents that only
// matched lexically are not added. Ties keep the candidates' vector order.
// The result holds at most limit entries.
func Combine(candidates []*models.VectorMatch, lexical map[string]float64, semanticWeight, lexicalWeight float64, limit int) []*models.SearchResult {
	if limit <= 0 {
		return []*models.SearchResult{}
	}
	results := make([]*models.SearchResult, 0, len(candidates))
	for _, c := range candidates {
		r := models.NewSearchResult(c)
		r.RankScore = c.Similarity*semanticWeight + lexical[r.ID]*lexicalWeight
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].RankScore > results[j].RankScore })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
