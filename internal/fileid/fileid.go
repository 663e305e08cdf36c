// Package fileid derives stable document IDs from file paths.
package fileid

import (
	"net/url"
	"path/filepath"

	"github.com/google/uuid"
)

// FileDocID returns a name-based (version 5) UUID for the cleaned absolute
// path, so re-indexing a file updates the same document.
func FileDocID(absolutePath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Clean(absolutePath))}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(u.String())).String()
}
