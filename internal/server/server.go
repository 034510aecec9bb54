// Package server exposes builds over the Model Context Protocol on stdio.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shards/internal/config"
	"shards/internal/pipeline"
	"shards/internal/store"
)

type BuildStatus string

const (
	BuildStatusIdle       BuildStatus = "idle"
	BuildStatusInProgress BuildStatus = "in_progress"
	BuildStatusReady      BuildStatus = "ready"
	BuildStatusFailed     BuildStatus = "failed"
)

type Server struct {
	mcpServer    *mcp.Server
	cfg          *config.Config
	store        *store.Store
	systemPrompt string

	buildMu       sync.RWMutex
	buildStatus   BuildStatus
	buildErr      error
	buildDuration time.Duration
	lastBuild     *pipeline.Result
}

// New creates a server for cfg. st may be nil, in which case builds are not
// recorded and bundle_of answers from the last build run by this server.
func New(cfg *config.Config, st *store.Store, version string) *Server {
	s := &Server{
		cfg:          cfg,
		store:        st,
		systemPrompt: usageGuidelines,
		buildStatus:  BuildStatusIdle,
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "shards",
		Version: version,
	}, &mcp.ServerOptions{
		Instructions: usageGuidelines,
	})
	s.registerTools()
	s.registerResources()
	return s
}

// Run serves on stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves a single session over t.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

// GetBuildStatus returns the status of the latest build, its error if it
// failed and how long it took.
func (s *Server) GetBuildStatus() (BuildStatus, error, time.Duration) {
	s.buildMu.RLock()
	defer s.buildMu.RUnlock()
	return s.buildStatus, s.buildErr, s.buildDuration
}

// beginBuild moves the server into the in-progress state. It reports false
// when a build is already running.
func (s *Server) beginBuild() bool {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	if s.buildStatus == BuildStatusInProgress {
		return false
	}
	s.buildStatus = BuildStatusInProgress
	s.buildErr = nil
	s.buildDuration = 0
	return true
}

func (s *Server) finishBuild(res *pipeline.Result, err error, took time.Duration) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()
	s.buildDuration = took
	if err != nil {
		s.buildStatus = BuildStatusFailed
		s.buildErr = err
		return
	}
	s.buildStatus = BuildStatusReady
	s.lastBuild = res
}

func (s *Server) latest() *pipeline.Result {
	s.buildMu.RLock()
	defer s.buildMu.RUnlock()
	return s.lastBuild
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
