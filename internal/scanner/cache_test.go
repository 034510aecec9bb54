package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shards/internal/errutil"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func countingExtractor(calls *atomic.Int32) Extractor {
	return ExtractorFunc(func(path string, content []byte) ([]Import, error) {
		calls.Add(1)
		return HTMLExtractor{}.Extract(path, content)
	})
}

func TestCacheReturnsEqualIndependentCopies(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	doc := `<link rel="import" href="a.html"><link rel="lazy-import" href="b.html">`
	writeFile(t, index, doc)

	var calls atomic.Int32
	cache := NewCache(countingExtractor(&calls))
	ctx := context.Background()

	first, err := cache.Imports(ctx, index)
	require.NoError(t, err)
	second, err := cache.Imports(ctx, index)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, len(doc), first.Size)
	assert.EqualValues(t, 1, calls.Load())

	first.Imports[0].Href = "mutated.html"
	third, err := cache.Imports(ctx, index)
	require.NoError(t, err)
	assert.Equal(t, "a.html", third.Imports[0].Href)

	hits, misses := cache.Stats()
	assert.EqualValues(t, 2, hits)
	assert.EqualValues(t, 1, misses)
}

func TestCacheNoCacheForcesReread(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	writeFile(t, index, `<link rel="import" href="a.html">`)

	var calls atomic.Int32
	cache := NewCache(countingExtractor(&calls))
	ctx := context.Background()

	_, err := cache.Imports(ctx, index)
	require.NoError(t, err)

	writeFile(t, index, `<link rel="import" href="b.html">`)

	cached, err := cache.Imports(ctx, index)
	require.NoError(t, err)
	assert.Equal(t, "a.html", cached.Imports[0].Href)

	fresh, err := cache.Imports(ctx, index, NoCache())
	require.NoError(t, err)
	assert.Equal(t, "b.html", fresh.Imports[0].Href)
	assert.EqualValues(t, 2, calls.Load())

	// The bypass does not overwrite the memoized entry.
	again, err := cache.Imports(ctx, index)
	require.NoError(t, err)
	assert.Equal(t, "a.html", again.Imports[0].Href)
}

func TestCacheUnreadableFileHasNoImports(t *testing.T) {
	cache := NewCache(nil)
	entry, err := cache.Imports(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	require.NoError(t, err)
	assert.Empty(t, entry.Imports)
	assert.Zero(t, entry.Size)
}

func TestCacheExtractorFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	writeFile(t, index, "x")

	boom := ExtractorFunc(func(string, []byte) ([]Import, error) {
		return nil, errors.New("boom")
	})
	_, err := NewCache(boom).Imports(context.Background(), index)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errutil.ErrExtractFailed))
}

func TestCacheEvictionRereads(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.html")
	b := filepath.Join(dir, "b.html")
	writeFile(t, a, "")
	writeFile(t, b, "")

	var calls atomic.Int32
	cache := NewCache(countingExtractor(&calls), WithSize(1))
	ctx := context.Background()

	for _, p := range []string{a, b, a} {
		_, err := cache.Imports(ctx, p)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, calls.Load())
}

func TestCacheHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reads := 0
	cache := NewCache(nil, WithConcurrency(1), WithReadFile(func(string) ([]byte, error) {
		reads++
		return nil, nil
	}))
	// Hold the only slot so Acquire must observe the cancelled context.
	require.NoError(t, cache.sem.Acquire(context.Background(), 1))
	_, err := cache.Imports(ctx, "index.html")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reads)
}
