package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Results: []*models.SearchResult{
			{ID: "doc-1", SourceID: "wiki", Title: "Rate limiting", Content: "Token buckets", Similarity: 0.9, RankScore: 0.93},
			{ID: "doc-2", Content: "Second", Similarity: 0.5, RankScore: 0.5},
		},
		Total:             2,
		Dimension:         768,
		QueryTime:         12,
		DimensionInferred: true,
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"json", OutputJSON, false},
		{"compact", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Total != 2 || decoded.Dimension != 768 || decoded.Results[0].ID != "doc-1" {
		t.Errorf("unexpected decoded response %+v", decoded)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Found 2 results", "12ms", "dimension 768, inferred", "Rank: 1", "Score: 0.9300", "ID: doc-1", "Source: wiki", "Rate limiting", "Rank: 2"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
	if strings.Count(out, "Title:") != 1 {
		t.Errorf("untitled results should have no Title line:\n%s", out)
	}
}

func TestWriteSearchResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{Dimension: 384}, OutputFormat("other")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Found 0 results") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	disk := int64(2048)
	local := &Status{
		Backend:             "local",
		SupportedDimensions: []int{384, 768, 1024, 1536, 3072},
		Ingestion:           true,
		Details: &StatusDetails{
			Documents:      3,
			ByDimension:    map[string]int64{"1536": 1, "384": 2},
			VectorIndexes:  map[string]int{"1536": 1, "384": 2},
			DiskUsageBytes: &disk,
		},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, local, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "documents:             3") || !strings.Contains(out, "2048") {
		t.Errorf("missing counts:\n%s", out)
	}
	if strings.Index(out, "\n384 ") > strings.Index(out, "\n1536 ") {
		t.Errorf("dimensions should be listed in numeric order:\n%s", out)
	}

	buf.Reset()
	pg := &Status{Backend: "postgres", Details: &StatusDetails{ServerVersion: "PostgreSQL 16.2", Database: "kensaku", User: "app"}}
	if err := WriteStatus(&buf, pg, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "PostgreSQL 16.2") || strings.Contains(buf.String(), "documents:") {
		t.Errorf("unexpected postgres status:\n%s", buf.String())
	}
}
