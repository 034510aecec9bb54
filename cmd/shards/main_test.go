package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shards/internal/errutil"
	"shards/internal/graph"
	"shards/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SHARDS_HOME", t.TempDir())
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fixture(t *testing.T) string {
	return testutil.Project{
		"index.html":  testutil.Doc("index", "a.html", "~lazy.html"),
		"a.html":      testutil.Doc("a"),
		"lazy.html":   testutil.Doc("lazy", "b.html"),
		"b.html":      testutil.Doc("b"),
		"orphan.html": testutil.Doc("orphan"),
	}.Write(t)
}

func TestTreeCommand(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "tree", "--root", root, "--entry", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "index.html\n├── a.html\n└── lazy.html (lazy)\n    └── b.html\n", out)

	out, err = execute(t, "tree", "--root", root, "--entry", "index.html", "--json")
	require.NoError(t, err)
	var flat []graph.FlatNode
	require.NoError(t, json.Unmarshal([]byte(out), &flat))
	assert.Len(t, flat, 4)
}

func TestBuildCommand(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "build", "--root", root, "--entry", "index.html", "--no-record")
	require.NoError(t, err)
	assert.Equal(t, "dist/index.html\ndist/lazy.html\n", out)
	assert.FileExists(t, filepath.Join(root, "dist", "bundles.json"))
}

func TestBuildCommandDryRun(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "build", "--root", root, "--entry", "index.html", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "index.html\n\t|a.html\nlazy.html (lazy)\n\t|b.html\n", out)
	assert.NoDirExists(t, filepath.Join(root, "dist"))
}

func TestOrphansCommand(t *testing.T) {
	root := fixture(t)
	out, err := execute(t, "orphans", "--root", root, "--entry", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "orphan.html\n", out)
}

func TestOrphansCommandAfterBuild(t *testing.T) {
	root := fixture(t)
	_, err := execute(t, "build", "--root", root, "--entry", "index.html", "--no-record")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, "dist", "index.html"))

	out, err := execute(t, "orphans", "--root", root, "--entry", "index.html")
	require.NoError(t, err)
	assert.Equal(t, "orphan.html\n", out)
}

func TestMissingEntryExitCode(t *testing.T) {
	root := fixture(t)
	_, err := execute(t, "build", "--root", root, "--entry", "missing.html", "--dry-run")
	require.Error(t, err)
	assert.Equal(t, errutil.ExitUsage, errutil.ExitCode(err))

	_, err = execute(t, "tree", "--root", root)
	require.Error(t, err)
	assert.Equal(t, errutil.ExitUsage, errutil.ExitCode(err))
}

func TestUnknownFlag(t *testing.T) {
	_, err := execute(t, "build", "--bogus")
	require.Error(t, err)
	assert.Equal(t, errutil.ExitUsage, errutil.ExitCode(err))
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shards dev")
}
