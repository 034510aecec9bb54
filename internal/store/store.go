// Package store keeps a history of build manifests in SQLite.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"shards/internal/errutil"
	"shards/internal/shards"
)

const schema = `
CREATE TABLE IF NOT EXISTS builds (
	id         TEXT PRIMARY KEY,
	entry      TEXT NOT NULL,
	root       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_builds_entry ON builds(entry, created_at);
CREATE TABLE IF NOT EXISTS bundles (
	build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	root     TEXT NOT NULL,
	lazy     INTEGER NOT NULL,
	output   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (build_id, root)
);
CREATE TABLE IF NOT EXISTS members (
	build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	bundle   TEXT NOT NULL,
	position INTEGER NOT NULL,
	path     TEXT NOT NULL,
	size     INTEGER NOT NULL,
	PRIMARY KEY (build_id, path)
);
`

// KeepBuilds is how many builds per entry survive pruning.
const KeepBuilds = 20

// Build is one recorded build.
type Build struct {
	ID        string
	Entry     string
	Root      string
	CreatedAt time.Time
	Plan      *shards.Plan
	Outputs   []string
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the manifest database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := EnsureDir(path); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBuild stores b and its plan in one transaction.
func (s *Store) SaveBuild(ctx context.Context, b *Build) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, entry, root, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Entry, b.Root, b.CreatedAt.UnixNano(),
	); err != nil {
		return errors.Wrapf(err, "failed to insert build %s", b.ID)
	}

	for i, bundle := range b.Plan.Bundles {
		output := ""
		if i < len(b.Outputs) {
			output = b.Outputs[i]
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bundles (build_id, position, root, lazy, output) VALUES (?, ?, ?, ?, ?)`,
			b.ID, i, bundle.Root, bundle.Lazy, output,
		); err != nil {
			return errors.Wrapf(err, "failed to insert bundle %s", bundle.Root)
		}
		for j, m := range bundle.Members {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO members (build_id, bundle, position, path, size) VALUES (?, ?, ?, ?, ?)`,
				b.ID, bundle.Root, j, m.Path, m.Size,
			); err != nil {
				return errors.Wrapf(err, "failed to insert member %s", m.Path)
			}
		}
	}

	return tx.Commit()
}

// LatestBuild returns the most recent build of entry, or of any entry when
// entry is empty.
func (s *Store) LatestBuild(ctx context.Context, entry string) (*Build, error) {
	query := `SELECT id, entry, root, created_at FROM builds ORDER BY created_at DESC LIMIT 1`
	args := []any{}
	if entry != "" {
		query = `SELECT id, entry, root, created_at FROM builds WHERE entry = ? ORDER BY created_at DESC LIMIT 1`
		args = append(args, entry)
	}

	var (
		b       Build
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&b.ID, &b.Entry, &b.Root, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errutil.ErrNoBuildRecorded, "entry %q", entry)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to query builds")
	}
	b.CreatedAt = time.Unix(0, created)

	if err := s.loadPlan(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) loadPlan(ctx context.Context, b *Build) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT root, lazy, output FROM bundles WHERE build_id = ? ORDER BY position`, b.ID)
	if err != nil {
		return errors.Wrap(err, "failed to query bundles")
	}
	plan := &shards.Plan{Entry: b.Entry}
	for rows.Next() {
		bundle := &shards.Bundle{Members: []shards.Member{}}
		var output string
		if err := rows.Scan(&bundle.Root, &bundle.Lazy, &output); err != nil {
			rows.Close()
			return errors.Wrap(err, "failed to scan bundle")
		}
		plan.Bundles = append(plan.Bundles, bundle)
		b.Outputs = append(b.Outputs, output)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "failed to read bundles")
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT bundle, path, size FROM members WHERE build_id = ? ORDER BY bundle, position`, b.ID)
	if err != nil {
		return errors.Wrap(err, "failed to query members")
	}
	defer mrows.Close()
	for mrows.Next() {
		var (
			root string
			m    shards.Member
		)
		if err := mrows.Scan(&root, &m.Path, &m.Size); err != nil {
			return errors.Wrap(err, "failed to scan member")
		}
		if bundle := plan.Bundle(root); bundle != nil {
			bundle.Members = append(bundle.Members, m)
		}
	}
	if err := mrows.Err(); err != nil {
		return errors.Wrap(err, "failed to read members")
	}

	b.Plan = plan
	return nil
}

// BundleOf returns the root of the bundle that materializes path in build.
func (s *Store) BundleOf(ctx context.Context, buildID, path string) (string, bool, error) {
	var root string
	err := s.db.QueryRowContext(ctx,
		`SELECT bundle FROM members WHERE build_id = ? AND path = ?
		 UNION ALL
		 SELECT root FROM bundles WHERE build_id = ? AND root = ?
		 LIMIT 1`,
		buildID, path, buildID, path,
	).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to query bundle owner")
	}
	return root, true, nil
}

// PruneBuilds keeps the newest keep builds per entry and deletes the rest.
func (s *Store) PruneBuilds(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM builds WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY entry ORDER BY created_at DESC) AS rn
				FROM builds
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "failed to prune builds")
	}
	return res.RowsAffected()
}
