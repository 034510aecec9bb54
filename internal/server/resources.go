package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"shards/internal/errutil"
	"shards/internal/shards"
)

const (
	guidelinesURI     = "shards://usage-guidelines"
	latestBuildURI    = "shards://builds/latest"
	schemaURIPrefix   = "shards://schemas/"
	schemaURITemplate = schemaURIPrefix + "{tool_name}"
)

const usageGuidelines = `# shards

shards splits an HTML-imports application into bundles: one for the entry
document and one per lazily imported document. Every file lands in exactly one
bundle, hoisted to the nearest bundle that all of its importers share.

Tools:
- build: run a build of the configured entry (set dry_run to skip writing files)
- build_status: state of the most recent build started by this server
- bundle_of: which bundle materializes a file in the latest recorded build
- dep_tree: the import tree of the entry, as ascii or json

Resources:
- shards://builds/latest: bundles of the latest recorded build
- shards://schemas/{tool_name}: argument schema of a tool

Paths may be file:// URIs, absolute, or relative to the project root.
`

// toolArgs maps every tool to the schema of its arguments struct.
var toolArgs = map[string]func() (*jsonschema.Schema, error){
	"build":        func() (*jsonschema.Schema, error) { return jsonschema.For[BuildArgs](nil) },
	"build_status": func() (*jsonschema.Schema, error) { return jsonschema.For[BuildStatusArgs](nil) },
	"bundle_of":    func() (*jsonschema.Schema, error) { return jsonschema.For[BundleOfArgs](nil) },
	"dep_tree":     func() (*jsonschema.Schema, error) { return jsonschema.For[DepTreeArgs](nil) },
}

type latestBuild struct {
	BuildID string       `json:"build_id"`
	Entry   string       `json:"entry"`
	Bundles []bundleInfo `json:"bundles"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         guidelinesURI,
		Name:        "Usage Guidelines",
		Description: "How to drive the shards MCP server",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return textResource(guidelinesURI, "text/markdown", s.systemPrompt), nil
	})

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         latestBuildURI,
		Name:        "Latest Build",
		Description: "Bundles and members of the latest build of the configured entry",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		build, err := s.latestBuild(ctx)
		if err != nil {
			return nil, err
		}
		if build == nil {
			return nil, mcp.ResourceNotFoundError(latestBuildURI)
		}
		data, err := json.MarshalIndent(build, "", "  ")
		if err != nil {
			return nil, err
		}
		return textResource(latestBuildURI, "application/json", string(data)), nil
	})

	schemaMap := buildSchemaMap()

	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaURITemplate,
		Name:        "Tool Schema",
		Description: "JSON schema for the named tool's arguments",
		MIMEType:    "application/schema+json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		schemaJSON, ok := schemaMap[strings.TrimPrefix(uri, schemaURIPrefix)]
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return textResource(uri, "application/schema+json", schemaJSON), nil
	})
}

// latestBuild prefers the store so builds from the CLI are visible too. It
// returns nil when nothing has been built.
func (s *Server) latestBuild(ctx context.Context) (*latestBuild, error) {
	var (
		id      string
		plan    *shards.Plan
		outputs []string
	)
	if s.store != nil {
		b, err := s.store.LatestBuild(ctx, s.cfg.Entry)
		if errors.Is(err, errutil.ErrNoBuildRecorded) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		id, plan, outputs = b.ID, b.Plan, b.Outputs
	} else if last := s.latest(); last != nil {
		id, plan, outputs = last.BuildID, last.Plan, last.Outputs
	} else {
		return nil, nil
	}
	return &latestBuild{
		BuildID: id,
		Entry:   s.rel(plan.Entry),
		Bundles: s.bundleInfos(plan, outputs),
	}, nil
}

// buildSchemaMap maps each tool name to the JSON schema of its arguments.
func buildSchemaMap() map[string]string {
	m := make(map[string]string, len(toolArgs))
	for name, schemaFor := range toolArgs {
		schema, err := schemaFor()
		if err != nil {
			continue
		}
		schemaJSON, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			continue
		}
		m[name] = string(schemaJSON)
	}
	return m
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: mimeType, Text: text},
		},
	}
}
