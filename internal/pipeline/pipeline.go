// Package pipeline runs a complete build: expand the entry's import tree,
// assign files to bundles, write the bundles and record the result.
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	"shards/internal/config"
	"shards/internal/graph"
	"shards/internal/materialize"
	"shards/internal/scanner"
	"shards/internal/shards"
	"shards/internal/store"
	"shards/util"
)

// Result describes a finished build.
type Result struct {
	BuildID  string
	Tree     *graph.Tree
	Plan     *shards.Plan
	Outputs  []string
	Manifest string
	Duration time.Duration
}

type Pipeline struct {
	cfg       *config.Config
	store     *store.Store
	extractor scanner.Extractor
	now       func() time.Time
}

type Option func(*Pipeline)

// WithStore records every successful build in st.
func WithStore(st *store.Store) Option {
	return func(p *Pipeline) { p.store = st }
}

// WithExtractor replaces the default per-extension extractor.
func WithExtractor(e scanner.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		extractor: scanner.DefaultDispatch(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tree expands the configured entry. Each call starts with an empty import
// cache so edits between calls are picked up.
func (p *Pipeline) Tree(ctx context.Context) (*graph.Tree, error) {
	if err := p.cfg.RequireEntry(); err != nil {
		return nil, err
	}
	cache := scanner.NewCache(p.extractor,
		scanner.WithSize(p.cfg.CacheSize),
		scanner.WithConcurrency(p.cfg.Concurrency),
	)
	tree, err := graph.NewBuilder(cache, p.cfg.Root).Build(ctx, p.cfg.Entry)
	if err != nil {
		return nil, err
	}
	hits, misses := cache.Stats()
	log.Debug("Expanded import tree", "files", len(tree.Paths(tree.Root())), "cache_hits", hits, "cache_misses", misses)
	return tree, nil
}

// Plan expands the entry and assigns every file to a bundle.
func (p *Pipeline) Plan(ctx context.Context) (*graph.Tree, *shards.Plan, error) {
	tree, err := p.Tree(ctx)
	if err != nil {
		return nil, nil, err
	}
	// Assignment detaches nodes; keep the caller's tree intact.
	plan, err := shards.Assign(tree.Clone())
	if err != nil {
		return nil, nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, nil, err
	}
	if p.cfg.Debug {
		log.Debug("Bundle plan\n" + plan.Describe(p.cfg.Root))
	}
	return tree, plan, nil
}

// Run performs a full build. Any failure aborts the build; nothing is recorded
// for a failed build.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := p.now()
	tree, plan, err := p.Plan(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{
		BuildID: util.GenerateBuildID(p.cfg.Entry, started),
		Tree:    tree,
		Plan:    plan,
	}

	if !p.cfg.DryRun {
		m := materialize.New(p.cfg.Root, p.cfg.Dest)
		res.Outputs, err = m.Write(ctx, plan)
		if err != nil {
			return nil, err
		}
		res.Manifest, err = m.WriteManifest(plan, res.Outputs)
		if err != nil {
			return nil, err
		}
	}

	if p.store != nil {
		if err := p.store.SaveBuild(ctx, &store.Build{
			ID:        res.BuildID,
			Entry:     p.cfg.Entry,
			Root:      p.cfg.Root,
			CreatedAt: started,
			Plan:      plan,
			Outputs:   res.Outputs,
		}); err != nil {
			return nil, errors.Wrap(err, "failed to record build")
		}
		if n, err := p.store.PruneBuilds(ctx, store.KeepBuilds); err != nil {
			log.Warn("Failed to prune old builds", "err", err)
		} else if n > 0 {
			log.Debug("Pruned old builds", "count", n)
		}
	}

	res.Duration = p.now().Sub(started)
	log.Info("Build finished",
		"entry", util.RelOrAbs(p.cfg.Root, p.cfg.Entry),
		"bundles", len(plan.Bundles),
		"files", len(plan.Files()),
		"dry_run", p.cfg.DryRun,
		"duration", res.Duration,
	)
	return res, nil
}
