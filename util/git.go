package util

import (
	"os"
	"path/filepath"
)

// FindGitRoot finds the root of the git repository starting from dir.
// Returns dir itself if no .git entry is found on the way up.
func FindGitRoot(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		dir = cwd
	}
	start, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	dir = start
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return start, nil
		}
		dir = parent
	}
}
