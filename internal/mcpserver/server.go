// Package mcpserver exposes a flattened tree as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentic-research/flattree/api"
	"github.com/agentic-research/flattree/internal/graph"
	"github.com/agentic-research/flattree/internal/index"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// Server answers tool calls against whatever snapshot g currently serves.
type Server struct {
	g   graph.Graph
	mcp *server.MCPServer
	log logrus.FieldLogger
}

func New(g graph.Graph, version string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		g:   g,
		mcp: server.NewMCPServer("flattree", version, server.WithToolCapabilities(false)),
		log: log,
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("get_node",
		mcp.WithDescription("Look up one node by key"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Node key")),
	), s.handleGetNode)

	s.mcp.AddTool(mcp.NewTool("get_children",
		mcp.WithDescription("List the direct children of a node in source order"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Parent key")),
	), s.handleChildren)

	s.mcp.AddTool(mcp.NewTool("get_ancestors",
		mcp.WithDescription("List the ancestors of a node from its parent up to the root"),
		mcp.WithString("key", mcp.Required(), mcp.Description("Node key")),
	), s.handleAncestors)

	s.mcp.AddTool(mcp.NewTool("search",
		mcp.WithDescription("Find node keys whose searchable field matches a query (case-insensitive)"),
		mcp.WithString("field", mcp.Required(), mcp.Description("Searchable field name")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to match")),
		mcp.WithString("mode", mcp.Description("exact or substring (default exact)"), mcp.Enum("exact", "substring")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("roots",
		mcp.WithDescription("List root node keys"),
	), s.handleRoots)
}

func (s *Server) handleGetNode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, ok := s.g.GetNode(key)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("node %q not found", key)), nil
	}
	return s.result(n.API())
}

func (s *Server) handleChildren(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(graph.APINodes(s.g.Children(key)))
}

func (s *Server) handleAncestors(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key, err := req.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.result(graph.APINodes(s.g.Ancestors(key)))
}

func (s *Server) handleSearch(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	field, err := req.RequireString("field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, err := index.ParseMode(req.GetString("mode", "exact"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	keys := s.g.Search(field, query, mode)
	if keys == nil {
		keys = []string{}
	}
	s.log.WithFields(logrus.Fields{"field": field, "mode": mode, "hits": len(keys)}).Debug("mcp search")
	return s.result(api.SearchResult{Field: field, Query: query, Mode: mode.String(), Keys: keys})
}

func (s *Server) handleRoots(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roots := s.g.Roots()
	if roots == nil {
		roots = []string{}
	}
	return s.result(roots)
}

func (s *Server) result(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
