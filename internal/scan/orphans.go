// Package scan reports project files that no bundle materializes.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	ignore "github.com/sabhiram/go-gitignore"

	"shards/internal/errutil"
	"shards/internal/shards"
)

// DefaultInclude is used when no include globs are configured.
var DefaultInclude = []string{"**/*.html", "**/*.js"}

// Files walks root and returns the absolute paths of files matching any of
// include. It skips .git, node_modules, the directories in exclude (typically
// the build output) and anything matched by the root .gitignore.
func Files(root string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.WithHint(
				errors.Mark(errors.Newf("invalid include glob %q", pattern), errutil.ErrInvalidConfig),
				"Globs use doublestar syntax, e.g. **/*.html",
			)
		}
	}

	gi := ignore.CompileIgnoreLines()
	if compiled, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		gi = compiled
	} else if !os.IsNotExist(err) {
		log.Warn("Failed to read .gitignore", "root", root, "err", err)
	}

	skip := make(map[string]bool, len(exclude))
	for _, dir := range exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			skip[abs] = true
		}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || skip[path] || gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if gi.MatchesPath(rel) {
			return nil
		}
		for _, pattern := range include {
			if ok, _ := doublestar.Match(pattern, rel); ok {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}
	slices.Sort(files)
	return files, nil
}

// Orphans returns the files under root that match include but are neither a
// member nor the root of any bundle in plan. Directories in exclude are not
// searched.
func Orphans(root string, plan *shards.Plan, include, exclude []string) ([]string, error) {
	files, err := Files(root, include, exclude)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool)
	for _, f := range plan.Files() {
		used[f] = true
	}

	orphans := []string{}
	for _, f := range files {
		if !used[f] {
			orphans = append(orphans, f)
		}
	}
	return orphans, nil
}
