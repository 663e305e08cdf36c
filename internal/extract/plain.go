package extract

import (
	"bufio"
	"bytes"
	"strings"
)

// extractPlain replaces invalid UTF-8 with U+FFFD.
func extractPlain(data []byte) (*Content, error) {
	return &Content{Text: strings.ToValidUTF8(string(data), "�")}, nil
}

// extractMarkdown uses the first ATX heading as the title.
func extractMarkdown(data []byte) (*Content, error) {
	c, _ := extractPlain(data)
	sc := bufio.NewScanner(bytes.NewReader([]byte(c.Text)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "#") {
			c.Title = strings.TrimSpace(strings.TrimLeft(line, "#"))
			break
		}
	}
	return c, nil
}
