package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPart  = "[Content_Types].xml"
	defaultDocxPart   = "word/document.xml"
	docxMainType      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	corePropsPart     = "docProps/core.xml"
	odfContentPart    = "content.xml"
	odfMetaPart       = "meta.xml"
	pptxSlidePrefix   = "ppt/slides/slide"
	odfTextNamespace  = "urn:oasis:names:tc:opendocument:xmlns:text:1.0"
	odfTextPrefix     = "text"
	ooxmlTextElement  = "t"
	paragraphElement  = "p"
	odfHeadingElement = "h"
)

type zipPackage struct {
	files map[string]*zip.File
}

func openPackage(data []byte, format string) (*zipPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	p := &zipPackage{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	return p, nil
}

func (p *zipPackage) open(name string) (io.ReadCloser, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found", name)
	}
	return f.Open()
}

// text walks the XML part name and collects character data.
func (p *zipPackage) text(name string, isText, isBlock func(xml.Name) bool) (string, error) {
	rc, err := p.open(name)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return xmlText(rc, isText, isBlock)
}

// xmlText concatenates character data inside elements accepted by isText.
// The end of an element accepted by isBlock starts a new line.
func xmlText(r io.Reader, isText, isBlock func(xml.Name) bool) (string, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	var b strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth > 0 || isText(t.Name) {
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
			if isBlock(t.Name) && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\n')
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func localIs(local string) func(xml.Name) bool {
	return func(n xml.Name) bool { return n.Local == local }
}

func odfText(n xml.Name) bool {
	if n.Space != odfTextNamespace && n.Space != odfTextPrefix {
		return false
	}
	return n.Local == paragraphElement || n.Local == odfHeadingElement
}

// docxMainPart finds the main document part in [Content_Types].xml.
func (p *zipPackage) docxMainPart() string {
	rc, err := p.open(contentTypesPart)
	if err != nil {
		return defaultDocxPart
	}
	defer rc.Close()
	var types struct {
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	if err := xml.NewDecoder(rc).Decode(&types); err != nil {
		return defaultDocxPart
	}
	for _, o := range types.Overrides {
		if o.ContentType == docxMainType {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return defaultDocxPart
}

// coreTitle reads dc:title from the OOXML core properties.
func (p *zipPackage) coreTitle(part string) string {
	rc, err := p.open(part)
	if err != nil {
		return ""
	}
	defer rc.Close()
	title, _ := xmlText(rc, localIs("title"), func(xml.Name) bool { return false })
	return title
}

func extractDOCX(data []byte) (*Content, error) {
	pkg, err := openPackage(data, "DOCX")
	if err != nil {
		return nil, err
	}
	text, err := pkg.text(pkg.docxMainPart(), localIs(ooxmlTextElement), localIs(paragraphElement))
	if err != nil {
		return nil, fmt.Errorf("extract DOCX: %w", err)
	}
	return &Content{Title: pkg.coreTitle(corePropsPart), Text: text}, nil
}

// extractPPTX reads slides in slide-number order.
func extractPPTX(data []byte) (*Content, error) {
	pkg, err := openPackage(data, "PPTX")
	if err != nil {
		return nil, err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for name := range pkg.files {
		if !strings.HasPrefix(name, pptxSlidePrefix) || path.Ext(name) != ".xml" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, pptxSlidePrefix), ".xml"))
		if err != nil {
			continue
		}
		slides = append(slides, slide{n: n, name: name})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var b strings.Builder
	for _, s := range slides {
		text, err := pkg.text(s.name, localIs(ooxmlTextElement), localIs(paragraphElement))
		if err != nil {
			return nil, fmt.Errorf("extract PPTX: %s: %w", s.name, err)
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return &Content{Title: pkg.coreTitle(corePropsPart), Text: b.String()}, nil
}

// extractODF reads the text paragraphs and headings of an OpenDocument
// text, presentation or spreadsheet.
func extractODF(data []byte) (*Content, error) {
	pkg, err := openPackage(data, "OpenDocument")
	if err != nil {
		return nil, err
	}
	text, err := pkg.text(odfContentPart, odfText, odfText)
	if err != nil {
		return nil, fmt.Errorf("extract OpenDocument: %w", err)
	}
	return &Content{Title: pkg.coreTitle(odfMetaPart), Text: text}, nil
}
