package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.db")
	if err := os.WriteFile(file, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	index := filepath.Join(dir, "index.bleve")
	if err := os.Mkdir(index, 0755); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(index, "a"), []byte("ab"), 0644)
	_ = os.WriteFile(filepath.Join(index, "b"), []byte("c"), 0644)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"file", []string{file}, 5},
		{"directory", []string{index}, 3},
		{"file and directory", []string{file, index}, 8},
		{"missing path skipped", []string{file, filepath.Join(dir, "nope"), index}, 8},
		{"empty and memory paths skipped", []string{"", ":memory:", file}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
