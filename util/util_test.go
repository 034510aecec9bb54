package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "src", "elements")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindGitRoot(nested)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestFindGitRootWithoutRepository(t *testing.T) {
	dir := t.TempDir()
	got, err := FindGitRoot(dir)
	require.NoError(t, err)
	// TempDir normally has no .git above it; either the dir itself or an enclosing repo is fine.
	assert.NotEmpty(t, got)
}

func TestGenerateBuildID(t *testing.T) {
	at := time.Unix(1700000000, 0)
	a := GenerateBuildID("/p/index.html", at)
	b := GenerateBuildID("/p/index.html", at)
	c := GenerateBuildID("/p/index.html", at.Add(time.Nanosecond))

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestURIRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	uri := PathToURI(path)
	assert.Contains(t, uri, "file://")
	assert.Equal(t, path, URIToPath(uri))
	assert.Equal(t, "plain", URIToPath("plain"))
}

func TestRelOrAbs(t *testing.T) {
	assert.Equal(t, "elements/a.html", RelOrAbs("/p", "/p/elements/a.html"))
	assert.Equal(t, "/other/a.html", RelOrAbs("/p", "/other/a.html"))
	assert.Equal(t, "..foo.html", RelOrAbs("/p", "/p/..foo.html"))
	assert.Equal(t, "/", RelOrAbs("/p", "/"))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		path string
		rel  string
		ok   bool
	}{
		{"/p/a.html", "a.html", true},
		{"/p/..foo.html", "..foo.html", true},
		{"/p/..d/x.html", filepath.Join("..d", "x.html"), true},
		{"/p", ".", true},
		{"/x.html", "", false},
		{"/", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rel, ok := Within("/p", tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.rel, rel)
		})
	}
}
