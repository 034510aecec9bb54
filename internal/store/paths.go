package store

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/cockroachdb/errors"
)

const DatabaseName = "manifests.db"

// GetShardsHome returns the directory holding persistent state.
// Priority: $SHARDS_HOME -> $XDG_CACHE_HOME/shards -> platform cache dir.
func GetShardsHome() string {
	if home := os.Getenv("SHARDS_HOME"); home != "" {
		return home
	}
	return filepath.Join(xdg.CacheHome, "shards")
}

// GetDatabasePath returns the default manifest database location.
func GetDatabasePath() string {
	return filepath.Join(GetShardsHome(), DatabaseName)
}

// EnsureDir creates the parent directory of path if it does not exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory %s", dir)
	}
	return nil
}
