package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello, world!", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("unexpected lengths %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsToken || ids[3] != sepToken {
		t.Errorf("expected [CLS] w w [SEP], got %v", ids[:4])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask should cover 4 tokens, got %v", attn)
	}
	again, _, _ := tok.Tokenize("hello world", 10)
	if !reflect.DeepEqual(ids, again) {
		t.Error("tokenization should ignore case and punctuation")
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	ids, attn, _ := (&SimpleTokenizer{}).Tokenize("a b c d e f g h", 4)
	if ids[3] != sepToken {
		t.Errorf("last slot should be [SEP], got %v", ids)
	}
	for i, v := range attn {
		if v != 1 {
			t.Errorf("attention[%d] = %d, want 1", i, v)
		}
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"  a  b  c  ", []string{"a", "b", "c"}},
		{"Rate-Limiting v2", []string{"rate", "limiting", "v2"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := SplitWords(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitWords(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
