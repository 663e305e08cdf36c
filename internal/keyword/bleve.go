package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/kensaku/internal/models"
)

// DefaultTitleBoost is applied when SearchOptions leaves TitleBoost unset.
const DefaultTitleBoost = 2.0

// indexedDocument is the subset of a document that is full-text indexed.
type indexedDocument struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// standard = unicode tokens, lowercased, English stop words removed
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("source_id", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates
// an in-memory index. If you change the index mapping in code, remove the
// index directory to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces a document. Underscores in the title are indexed as
// spaces so file names like "company_profile_2021.pptx" match word queries.
func (b *BleveIndex) Index(ctx context.Context, doc *models.Document) error {
	return b.index.Index(doc.ID, indexedDocument{
		SourceID: doc.SourceID,
		Title:    strings.ReplaceAll(doc.Title, "_", " "),
		Content:  doc.Content,
	})
}

// Search scores documents matching at least one analyzed query token. The
// score is the sum of the title match (times TitleBoost) and the body match.
// A query with no indexable tokens returns no hits and no error.
func (b *BleveIndex) Search(ctx context.Context, query string, opts *SearchOptions) ([]*KeywordResult, error) {
	titleBoost := DefaultTitleBoost
	var sources map[string]struct{}
	limit := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		if len(opts.SourceIDs) > 0 {
			sources = make(map[string]struct{}, len(opts.SourceIDs))
			for _, s := range opts.SourceIDs {
				sources[s] = struct{}{}
			}
		}
		limit = opts.Limit
	}

	total, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("Bleve doc count failed: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	tq := bleve.NewMatchQuery(query)
	tq.SetField("title")
	tq.SetBoost(titleBoost)
	cq := bleve.NewMatchQuery(query)
	cq.SetField("content")
	var q blevequery.Query = bleve.NewDisjunctionQuery(tq, cq)

	// Source filtering happens after scoring so the filter adds nothing to the
	// relevance score; the request therefore covers the whole index.
	req := bleve.NewSearchRequest(q)
	req.Size = int(total)
	req.Fields = []string{"source_id"}
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]*KeywordResult, 0, len(results.Hits))
	for _, hit := range results.Hits {
		src, _ := hit.Fields["source_id"].(string)
		if sources != nil {
			if _, ok := sources[src]; !ok {
				continue
			}
		}
		out = append(out, &KeywordResult{ID: hit.ID, SourceID: src, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
