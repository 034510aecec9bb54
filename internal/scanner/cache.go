package scanner

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"shards/internal/errutil"
)

const (
	DefaultCacheSize   = 4096
	DefaultConcurrency = 16
)

// Cache memoizes the one-level import list of each file. A Cache is meant to
// live for a single build; construct a fresh one per build so edits between
// builds are always picked up.
type Cache struct {
	extractor Extractor
	entries   *lru.Cache[string, Entry]
	sem       *semaphore.Weighted
	readFile  func(string) ([]byte, error)

	hits   atomic.Int64
	misses atomic.Int64
}

type Option func(*Cache)

// WithSize bounds the number of memoized files. Evicted files are simply
// re-read on their next lookup.
func WithSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.entries, _ = lru.New[string, Entry](n)
		}
	}
}

// WithConcurrency bounds how many files are read and extracted at once.
func WithConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithReadFile replaces os.ReadFile, mostly for tests.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(c *Cache) {
		if fn != nil {
			c.readFile = fn
		}
	}
}

func NewCache(extractor Extractor, opts ...Option) *Cache {
	if extractor == nil {
		extractor = DefaultDispatch()
	}
	entries, _ := lru.New[string, Entry](DefaultCacheSize)
	c := &Cache{
		extractor: extractor,
		entries:   entries,
		sem:       semaphore.NewWeighted(DefaultConcurrency),
		readFile:  os.ReadFile,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resolveOptions struct {
	noCache bool
}

type ResolveOption func(*resolveOptions)

// NoCache forces a fresh read of the file. The result is not stored.
func NoCache() ResolveOption {
	return func(o *resolveOptions) { o.noCache = true }
}

// Imports returns the imports declared by path. Every call returns an
// independent copy that callers may modify freely. A file that cannot be read
// is reported and treated as declaring no imports.
func (c *Cache) Imports(ctx context.Context, path string, opts ...ResolveOption) (Entry, error) {
	var o resolveOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !o.noCache {
		if entry, ok := c.entries.Get(path); ok {
			c.hits.Add(1)
			return entry.clone(), nil
		}
	}
	c.misses.Add(1)

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return Entry{}, err
	}
	content, err := c.readFile(path)
	if err != nil {
		c.sem.Release(1)
		log.Warn("Could not read file", "path", path, "err", err)
		return Entry{}, nil
	}
	imports, err := c.extractor.Extract(path, content)
	c.sem.Release(1)
	if err != nil {
		return Entry{}, errors.Mark(errors.Wrapf(err, "failed to extract imports from %s", path), errutil.ErrExtractFailed)
	}

	entry := Entry{Size: len(content), Imports: imports}
	if !o.noCache {
		c.entries.Add(path, entry.clone())
	}
	return entry, nil
}

// Stats reports cache hits and misses since construction.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
