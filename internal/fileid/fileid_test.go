package fileid

import (
	"testing"

	"github.com/google/uuid"
)

func TestFileDocID(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"same path", "/foo/bar.txt", "/foo/bar.txt", true},
		{"cleaned path", "/foo/./baz/../bar.txt", "/foo/bar.txt", true},
		{"different file", "/foo/bar.txt", "/foo/baz.txt", false},
		{"case sensitive", "/foo/Bar.txt", "/foo/bar.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := FileDocID(tt.a), FileDocID(tt.b)
			if (a == b) != tt.same {
				t.Errorf("FileDocID(%q)=%s, FileDocID(%q)=%s, same=%v", tt.a, a, tt.b, b, tt.same)
			}
		})
	}
}

func TestFileDocID_IsUUIDv5(t *testing.T) {
	u, err := uuid.Parse(FileDocID("/srv/docs/readme.md"))
	if err != nil {
		t.Fatalf("not a UUID: %v", err)
	}
	if u.Version() != 5 {
		t.Errorf("version = %d, want 5", u.Version())
	}
}
