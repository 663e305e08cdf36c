// Package cli formats command output for the kensaku CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats are written as text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	dim := strconv.Itoa(response.Dimension)
	if response.DimensionInferred {
		dim += ", inferred"
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (dimension %s)\n\n", response.Total, response.QueryTime, dim)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Similarity: %.4f)\n", i+1, result.RankScore, result.Similarity)
		fmt.Fprintf(w, "ID: %s\n", result.ID)
		if result.SourceID != "" {
			fmt.Fprintf(w, "Source: %s\n", result.SourceID)
		}
		if result.Title != "" {
			fmt.Fprintf(w, "Title: %s\n", result.Title)
		}
		if result.URL != "" {
			fmt.Fprintf(w, "URL: %s\n", result.URL)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Content, 200))
	}
	return nil
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	Status              string         `json:"status"`
	Backend             string         `json:"backend"`
	SupportedDimensions []int          `json:"supported_dimensions"`
	Ingestion           bool           `json:"ingestion"`
	EmbeddingDimensions int            `json:"embedding_dimensions,omitempty"`
	Details             *StatusDetails `json:"details,omitempty"`
}

// StatusDetails holds backend-specific status. Local backends fill the
// counts; PostgreSQL fills the server fields.
type StatusDetails struct {
	Documents      int64            `json:"documents"`
	ByDimension    map[string]int64 `json:"documents_by_dimension,omitempty"`
	VectorIndexes  map[string]int   `json:"vector_index_sizes,omitempty"`
	LexicalDocs    uint64           `json:"lexical_documents,omitempty"`
	DiskUsageBytes *int64           `json:"disk_usage_bytes,omitempty"`
	ServerVersion  string           `json:"server_version,omitempty"`
	Database       string           `json:"database,omitempty"`
	User           string           `json:"user,omitempty"`
}

// WriteStatus writes status to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "backend:               %s\n", status.Backend)
	fmt.Fprintf(w, "ingestion:             %t\n", status.Ingestion)
	fmt.Fprintf(w, "supported_dimensions:  %v\n", status.SupportedDimensions)
	if status.EmbeddingDimensions > 0 {
		fmt.Fprintf(w, "embedding_dimensions:  %d\n", status.EmbeddingDimensions)
	}
	d := status.Details
	if d == nil {
		return nil
	}
	if d.ServerVersion != "" {
		fmt.Fprintf(w, "server_version:        %s\n", d.ServerVersion)
		fmt.Fprintf(w, "database:              %s\n", d.Database)
		fmt.Fprintf(w, "user:                  %s\n", d.User)
		return nil
	}
	fmt.Fprintf(w, "documents:             %d\n", d.Documents)
	fmt.Fprintf(w, "lexical_documents:     %d\n", d.LexicalDocs)
	if d.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:      %d\n", *d.DiskUsageBytes)
	}
	if len(d.ByDimension) > 0 {
		fmt.Fprintln(w, "\n# documents by dimension")
		for _, k := range sortedKeys(d.ByDimension) {
			fmt.Fprintf(w, "%-6s %d (index %d)\n", k, d.ByDimension[k], d.VectorIndexes[k])
		}
	}
	return nil
}

// sortedKeys orders dimension names numerically.
func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	return keys
}
