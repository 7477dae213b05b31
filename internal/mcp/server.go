// Package mcp exposes the engine over the Model Context Protocol: a thin
// tool layer on stdio, with all ranking and enrichment left to the search
// engine.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chris-bluera/bluera-knowledge/internal/search"
	"github.com/chris-bluera/bluera-knowledge/internal/store"
)

// Server wraps the MCP server lifecycle over a search engine and store
// service.
type Server struct {
	engine *search.Engine
	stores *store.Service
	mcp    *server.MCPServer
}

// NewServer builds the MCP server and registers the knowledge tools.
func NewServer(engine *search.Engine, stores *store.Service) *Server {
	s := &Server{
		engine: engine,
		stores: stores,
		mcp: server.NewMCPServer(
			"bluera-knowledge",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
	}
	s.registerSearchTool()
	s.registerContextTool()
	s.registerStoresTool()
	return s
}

// Serve runs the server on stdio until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerSearchTool() {
	tool := mcp.NewTool(
		"knowledge_search",
		mcp.WithDescription("Search indexed code and documentation stores. Returns relevance-ranked results with summaries; pass detail=contextual or detail=full for progressive enrichment."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language or keyword query")),
		mcp.WithArray("stores",
			mcp.Required(),
			mcp.Description("Store names or ids to search")),
		mcp.WithString("mode",
			mcp.Description("Retrieval mode: vector, fts, or hybrid (default hybrid)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 10)")),
		mcp.WithString("detail",
			mcp.Description("Enrichment level: minimal, contextual, or full (default minimal)")),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		query, ok := argsMap["query"].(string)
		if !ok || query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		var storeIDs []string
		if names, ok := argsMap["stores"].([]interface{}); ok {
			for _, n := range names {
				name, ok := n.(string)
				if !ok {
					continue
				}
				st, err := s.stores.GetByIDOrName(name)
				if err != nil {
					return mcp.NewToolResultError(err.Error()), nil
				}
				storeIDs = append(storeIDs, st.ID)
			}
		}
		if len(storeIDs) == 0 {
			return mcp.NewToolResultError("at least one store is required"), nil
		}

		q := search.Query{Query: query, Stores: storeIDs}
		if mode, ok := argsMap["mode"].(string); ok {
			q.Mode = search.Mode(mode)
		}
		if limit, ok := argsMap["limit"].(float64); ok {
			q.Limit = int(limit)
		}
		if detail, ok := argsMap["detail"].(string); ok {
			q.Detail = search.Detail(detail)
		}

		resp, err := s.engine.Search(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		jsonData, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	})
}

func (s *Server) registerContextTool() {
	tool := mcp.NewTool(
		"knowledge_context",
		mcp.WithDescription("Fetch the full code context for a result id returned by knowledge_search: the complete code unit, related code from the graph, and any leading doc comment."),
		mcp.WithString("resultId",
			mcp.Required(),
			mcp.Description("A result id from a previous knowledge_search call")),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		resultID, ok := argsMap["resultId"].(string)
		if !ok || resultID == "" {
			return mcp.NewToolResultError("resultId parameter is required"), nil
		}
		r, err := s.engine.FullContext(ctx, resultID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		jsonData, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	})
}

func (s *Server) registerStoresTool() {
	tool := mcp.NewTool(
		"knowledge_stores",
		mcp.WithDescription("List the registered knowledge stores with their kind, status, and document counts."),
	)
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonData, err := json.Marshal(s.stores.Registry.List())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stores: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	})
}
