package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shards/internal/errutil"
	"shards/internal/pipeline"
	"shards/internal/shards"
	"shards/util"
)

// Arguments structs

type BuildArgs struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"Compute the bundle plan without writing any files"`
}

type BuildStatusArgs struct{}

type BundleOfArgs struct {
	Path string `json:"path" jsonschema:"The file to look up: a file:// URI, an absolute path or a path relative to the project root"`
}

type DepTreeArgs struct {
	Format string `json:"format,omitempty" jsonschema:"Output format: ascii (default) or json"`
}

// bundleInfo is the JSON shape of one bundle in tool responses.
type bundleInfo struct {
	Root    string   `json:"root"`
	Lazy    bool     `json:"lazy"`
	Output  string   `json:"output,omitempty"`
	Members []string `json:"members"`
}

type buildInfo struct {
	BuildID         string       `json:"build_id"`
	DryRun          bool         `json:"dry_run"`
	DurationSeconds float64      `json:"duration_seconds"`
	Bundles         []bundleInfo `json:"bundles"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "build",
		Description: "Builds the configured entry document into bundles",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args BuildArgs) (*mcp.CallToolResult, any, error) {
		if !s.beginBuild() {
			return errorResult("Build already in progress"), nil, nil
		}

		cfg := *s.cfg
		cfg.DryRun = cfg.DryRun || args.DryRun
		opts := []pipeline.Option{}
		if s.store != nil {
			opts = append(opts, pipeline.WithStore(s.store))
		}

		startTime := time.Now()
		res, err := pipeline.New(&cfg, opts...).Run(ctx)
		s.finishBuild(res, err, time.Since(startTime))
		if err != nil {
			log.Error("Build failed", "err", err)
			return errorResult(fmt.Sprintf("Build failed: %s", errutil.Format(err))), nil, nil
		}

		info := buildInfo{
			BuildID:         res.BuildID,
			DryRun:          cfg.DryRun,
			DurationSeconds: res.Duration.Seconds(),
			Bundles:         s.bundleInfos(res.Plan, res.Outputs),
		}

		jsonBytes, _ := json.MarshalIndent(info, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "build_status",
		Description: "Returns the status of the most recent build",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args BuildStatusArgs) (*mcp.CallToolResult, any, error) {
		status, err, duration := s.GetBuildStatus()

		result := map[string]any{
			"status": string(status),
		}
		if duration > 0 {
			result["duration_seconds"] = duration.Seconds()
		}
		if err != nil {
			result["error"] = err.Error()
		}
		if last := s.latest(); last != nil {
			result["build_id"] = last.BuildID
		}

		jsonBytes, _ := json.MarshalIndent(result, "", "  ")
		return textResult(string(jsonBytes)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "bundle_of",
		Description: "Returns the bundle that materializes a file in the latest build",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args BundleOfArgs) (*mcp.CallToolResult, any, error) {
		if args.Path == "" {
			return errorResult("path is required"), nil, nil
		}
		path := s.abs(util.URIToPath(args.Path))

		var (
			root string
			ok   bool
		)
		if s.store != nil {
			build, err := s.store.LatestBuild(ctx, s.cfg.Entry)
			if err != nil {
				return errorResult(errutil.Format(err)), nil, nil
			}
			root, ok, err = s.store.BundleOf(ctx, build.ID, path)
			if err != nil {
				return errorResult(fmt.Sprintf("Query failed: %v", err)), nil, nil
			}
		} else {
			last := s.latest()
			if last == nil {
				return errorResult("No build has run yet; call the build tool first"), nil, nil
			}
			root, ok = last.Plan.Owner(path)
		}

		if !ok {
			return textResult(fmt.Sprintf("%s is not part of any bundle.", s.rel(path))), nil, nil
		}
		return textResult(s.rel(root)), nil, nil
	})

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "dep_tree",
		Description: "Returns the import tree of the entry document",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args DepTreeArgs) (*mcp.CallToolResult, any, error) {
		tree, err := pipeline.New(s.cfg).Tree(ctx)
		if err != nil {
			return errorResult(fmt.Sprintf("Failed to build tree: %s", errutil.Format(err))), nil, nil
		}

		switch args.Format {
		case "", "ascii":
			return textResult(tree.Render(tree.Root(), s.cfg.Root)), nil, nil
		case "json":
			jsonBytes, _ := json.MarshalIndent(tree.Flatten(tree.Root()), "", "  ")
			return textResult(string(jsonBytes)), nil, nil
		default:
			return errorResult(fmt.Sprintf("Unknown format %q, expected ascii or json", args.Format)), nil, nil
		}
	})
}

func (s *Server) bundleInfos(plan *shards.Plan, outputs []string) []bundleInfo {
	infos := make([]bundleInfo, 0, len(plan.Bundles))
	for i, b := range plan.Bundles {
		bi := bundleInfo{
			Root:    s.rel(b.Root),
			Lazy:    b.Lazy,
			Members: []string{},
		}
		if i < len(outputs) {
			bi.Output = outputs[i]
		}
		for _, p := range b.Paths() {
			bi.Members = append(bi.Members, s.rel(p))
		}
		infos = append(infos, bi)
	}
	return infos
}

func (s *Server) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(s.cfg.Root, path)
}

func (s *Server) rel(path string) string {
	return util.RelOrAbs(s.cfg.Root, path)
}
