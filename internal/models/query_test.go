package models

import (
	"errors"
	"testing"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *SearchQuery
		wantErr bool
	}{
		{"empty embedding", &SearchQuery{Text: "hello"}, true},
		{"valid query", &SearchQuery{Embedding: []float32{1, 0}}, false},
		{"zero limit allowed", &SearchQuery{Embedding: []float32{1}, Limit: intPtr(0)}, false},
		{"negative limit", &SearchQuery{Embedding: []float32{1}, Limit: intPtr(-1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSearchQuery_Defaults(t *testing.T) {
	q := &SearchQuery{}
	if q.LimitOr(10) != 10 {
		t.Errorf("LimitOr default = %d", q.LimitOr(10))
	}
	if q.SemanticWeightOr(0.7) != 0.7 || q.LexicalWeightOr(0.3) != 0.3 {
		t.Error("expected default weights")
	}

	q = &SearchQuery{Limit: intPtr(0), SemanticWeight: floatPtr(0), LexicalWeight: floatPtr(0)}
	if q.LimitOr(10) != 0 {
		t.Errorf("explicit zero limit replaced by default: %d", q.LimitOr(10))
	}
	if q.SemanticWeightOr(0.7) != 0 || q.LexicalWeightOr(0.3) != 0 {
		t.Error("explicit zero weights replaced by defaults")
	}
}
