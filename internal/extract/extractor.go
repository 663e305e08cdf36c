// Package extract pulls plain text out of document files for ingestion.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Content is the text of a document and, when the format carries one, its title.
type Content struct {
	Title string
	Text  string
}

type extractFunc func(data []byte) (*Content, error)

// Extractor maps file extensions to format readers.
type Extractor struct {
	formats map[string]extractFunc
}

// NewExtractor returns an Extractor for plain text, Markdown, PDF, XLSX,
// DOCX, PPTX and OpenDocument files.
func NewExtractor() *Extractor {
	return &Extractor{formats: map[string]extractFunc{
		".txt":  extractPlain,
		".rst":  extractPlain,
		".md":   extractMarkdown,
		".pdf":  extractPDF,
		".xlsx": extractXLSX,
		".docx": extractDOCX,
		".pptx": extractPPTX,
		".odt":  extractODF,
		".odp":  extractODF,
		".ods":  extractODF,
	}}
}

// Supports reports whether ext (with or without the leading dot) has a reader.
func (e *Extractor) Supports(ext string) bool {
	_, ok := e.formats[normalizeExt(ext)]
	return ok
}

// Extensions lists the supported extensions in sorted order.
func (e *Extractor) Extensions() []string {
	out := make([]string, 0, len(e.formats))
	for ext := range e.formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract reads the file at path. Unknown extensions are read as plain text.
func (e *Extractor) Extract(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(data, filepath.Ext(path))
}

// ExtractBytes extracts data in the format named by ext.
func (e *Extractor) ExtractBytes(data []byte, ext string) (*Content, error) {
	fn, ok := e.formats[normalizeExt(ext)]
	if !ok {
		fn = extractPlain
	}
	c, err := fn(data)
	if err != nil {
		return nil, err
	}
	c.Title = strings.TrimSpace(c.Title)
	c.Text = strings.TrimSpace(c.Text)
	return c, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
