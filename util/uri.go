package util

import (
	"path/filepath"
	"strings"
)

func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "file://" + path
	}
	return "file://" + filepath.ToSlash(abs)
}

func URIToPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		return filepath.FromSlash(uri[7:])
	}
	return uri
}

// Within returns path relative to base and whether path lies at or below base.
// Names that merely start with two dots, like "..foo.html", are inside.
func Within(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// RelOrAbs returns path relative to base when it lives below base, and path
// unchanged otherwise.
func RelOrAbs(base, path string) string {
	rel, ok := Within(base, path)
	if !ok {
		return path
	}
	return filepath.ToSlash(rel)
}
