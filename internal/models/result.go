package models

// SearchResult is a single ranked hit. Similarity is the cosine similarity of
// the query and document embeddings; RankScore is the weighted hybrid score
// (equal to Similarity for vector-only searches).
type SearchResult struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"source_id"`
	URL        string                 `json:"url"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Similarity float64                `json:"similarity"`
	RankScore  float64                `json:"rank_score"`
}

// NewSearchResult copies the document fields of m into a result.
func NewSearchResult(m *VectorMatch) *SearchResult {
	d := m.Document
	return &SearchResult{
		ID:         d.ID,
		SourceID:   d.SourceID,
		URL:        d.URL,
		Title:      d.Title,
		Content:    d.Content,
		Metadata:   d.Metadata,
		Similarity: m.Similarity,
		RankScore:  m.Similarity,
	}
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	Dimension int             `json:"dimension"`
	QueryTime int64           `json:"query_time_ms"`
	// DimensionInferred is set when the dimension was derived from the
	// embedding length instead of being given by the caller.
	DimensionInferred bool `json:"dimension_inferred,omitempty"`
}
