// Package testutil writes small document projects to disk for tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Project maps a root-relative file path to its content.
type Project map[string]string

// Write materializes p under a fresh temporary directory and returns it.
func (p Project) Write(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(p[name]), 0o644))
	}
	return root
}

// Doc builds an HTML document that imports the given hrefs and carries a
// marker paragraph naming itself. Hrefs prefixed with "~" are lazy imports.
func Doc(name string, hrefs ...string) string {
	var b strings.Builder
	for _, href := range hrefs {
		rel := "import"
		if strings.HasPrefix(href, "~") {
			rel = "lazy-import"
			href = strings.TrimPrefix(href, "~")
		}
		fmt.Fprintf(&b, "<link rel=%q href=%q>\n", rel, href)
	}
	fmt.Fprintf(&b, "<p data-test=\"\">%s</p>\n", name)
	return b.String()
}

// Marker is the paragraph Doc emits for name.
func Marker(name string) string {
	return fmt.Sprintf("<p data-test=\"\">%s</p>", name)
}

// Abs joins root with a slash-separated relative path.
func Abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
