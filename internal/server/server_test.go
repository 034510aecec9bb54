package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shards/internal/config"
	"shards/internal/store"
	"shards/internal/testutil"
	"shards/util"
)

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	clientT, serverT := mcp.NewInMemoryTransports()
	_, err := s.Connect(ctx, serverT)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func newServer(t *testing.T, withStore bool) (*Server, string) {
	t.Helper()
	root := testutil.Project{
		"index.html": testutil.Doc("index", "a.html", "~lazy.html"),
		"a.html":     testutil.Doc("a"),
		"lazy.html":  testutil.Doc("lazy", "b.html"),
		"b.html":     testutil.Doc("b"),
	}.Write(t)
	cfg := &config.Config{
		Root:        root,
		Entry:       filepath.Join(root, "index.html"),
		Dest:        filepath.Join(root, "dist"),
		Concurrency: 2,
		CacheSize:   16,
		LogLevel:    "info",
	}
	var st *store.Store
	if withStore {
		var err error
		st, err = store.Open(filepath.Join(t.TempDir(), store.DatabaseName))
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() })
	}
	return New(cfg, st, "test"), root
}

func call(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestBuildAndQuery(t *testing.T) {
	for _, withStore := range []bool{true, false} {
		s, root := newServer(t, withStore)
		session := connect(t, s)

		text, isErr := call(t, session, "bundle_of", map[string]any{"path": "b.html"})
		assert.True(t, isErr, text)

		text, isErr = call(t, session, "build", map[string]any{"dry_run": true})
		require.False(t, isErr, text)
		var info buildInfo
		require.NoError(t, json.Unmarshal([]byte(text), &info))
		assert.True(t, info.DryRun)
		require.Len(t, info.Bundles, 2)
		assert.Equal(t, "index.html", info.Bundles[0].Root)
		assert.Equal(t, []string{"a.html"}, info.Bundles[0].Members)
		assert.Equal(t, "lazy.html", info.Bundles[1].Root)
		assert.True(t, info.Bundles[1].Lazy)
		assert.NoDirExists(t, filepath.Join(root, "dist"))

		text, isErr = call(t, session, "bundle_of", map[string]any{"path": "b.html"})
		assert.False(t, isErr)
		assert.Equal(t, "lazy.html", text)

		text, isErr = call(t, session, "bundle_of", map[string]any{"path": filepath.Join(root, "lazy.html")})
		assert.False(t, isErr)
		assert.Equal(t, "lazy.html", text)

		text, isErr = call(t, session, "bundle_of", map[string]any{"path": util.PathToURI(filepath.Join(root, "a.html"))})
		assert.False(t, isErr)
		assert.Equal(t, "index.html", text)

		text, _ = call(t, session, "bundle_of", map[string]any{"path": "nope.html"})
		assert.Equal(t, "nope.html is not part of any bundle.", text)

		text, isErr = call(t, session, "build_status", map[string]any{})
		assert.False(t, isErr)
		var status map[string]any
		require.NoError(t, json.Unmarshal([]byte(text), &status))
		assert.Equal(t, string(BuildStatusReady), status["status"])
		assert.Equal(t, info.BuildID, status["build_id"])
	}
}

func TestBuildFailureIsReported(t *testing.T) {
	s, _ := newServer(t, false)
	s.cfg.Entry = filepath.Join(s.cfg.Root, "missing.html")
	session := connect(t, s)

	text, isErr := call(t, session, "build", map[string]any{"dry_run": true})
	assert.True(t, isErr)
	assert.Contains(t, text, "entry document not found")

	status, err, _ := s.GetBuildStatus()
	assert.Equal(t, BuildStatusFailed, status)
	assert.Error(t, err)
}

func TestDepTree(t *testing.T) {
	s, _ := newServer(t, false)
	session := connect(t, s)

	text, isErr := call(t, session, "dep_tree", map[string]any{})
	require.False(t, isErr, text)
	assert.Contains(t, text, "index.html")
	assert.Contains(t, text, "lazy.html (lazy)")

	text, isErr = call(t, session, "dep_tree", map[string]any{"format": "json"})
	require.False(t, isErr, text)
	var flat []map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &flat))
	assert.Len(t, flat, 4)

	_, isErr = call(t, session, "dep_tree", map[string]any{"format": "xml"})
	assert.True(t, isErr)
}

func TestResources(t *testing.T) {
	s, _ := newServer(t, false)
	session := connect(t, s)
	ctx := context.Background()

	res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: guidelinesURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "bundle_of")

	res, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: schemaURIPrefix + "bundle_of"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, `"path"`)

	_, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: schemaURIPrefix + "nope"})
	assert.Error(t, err)
}

func TestLatestBuildResource(t *testing.T) {
	for _, withStore := range []bool{true, false} {
		s, _ := newServer(t, withStore)
		session := connect(t, s)
		ctx := context.Background()

		_, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: latestBuildURI})
		assert.Error(t, err)

		text, isErr := call(t, session, "build", map[string]any{"dry_run": true})
		require.False(t, isErr, text)
		var info buildInfo
		require.NoError(t, json.Unmarshal([]byte(text), &info))

		res, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: latestBuildURI})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		var latest latestBuild
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &latest))
		assert.Equal(t, info.BuildID, latest.BuildID)
		assert.Equal(t, "index.html", latest.Entry)
		assert.Equal(t, info.Bundles, latest.Bundles)
	}
}
