// Package mcpserver exposes the memory store and the Airis agent as Model
// Context Protocol tool servers over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agiletec-inc/mindbase/internal/domain"
	"github.com/agiletec-inc/mindbase/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// MemoryStore is the subset of the memory service the tools need.
type MemoryStore interface {
	Store(ctx context.Context, input service.StoreInput) (*domain.Memory, error)
	List(ctx context.Context, input service.ListMemoriesInput) (*service.ListMemoriesOutput, error)
	Delete(ctx context.Context, id string) error
}

// MemorySearcher runs hybrid search requests.
type MemorySearcher interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

// MindBaseServer wraps the memory services and exposes them via MCP.
type MindBaseServer struct {
	memories MemoryStore
	searcher MemorySearcher
	server   *server.MCPServer
}

// NewMindBaseServer creates the MCP server and registers the memory tools.
func NewMindBaseServer(memories MemoryStore, searcher MemorySearcher) *MindBaseServer {
	s := &MindBaseServer{
		memories: memories,
		searcher: searcher,
	}

	s.server = server.NewMCPServer(
		"mindbase",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.registerTools()
	return s
}

func (s *MindBaseServer) registerTools() {
	storeTool := mcp.NewTool("store_memory",
		mcp.WithDescription("Store a memory for a project and queue it for embedding"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project the memory belongs to"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Memory content"),
		),
		mcp.WithString("kind",
			mcp.Description("Memory kind: note, solution, mistake, decision or research (default: note)"),
		),
		mcp.WithArray("tags",
			mcp.Description("Tags attached to the memory"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Arbitrary string key/value metadata"),
		),
	)
	s.server.AddTool(storeTool, s.handleStoreMemory)

	searchTool := mcp.NewTool("search_memories",
		mcp.WithDescription("Search project memories with hybrid semantic and full-text retrieval"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project to search in"),
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
		mcp.WithString("mode",
			mcp.Description("Search mode: hybrid, semantic or lexical (default: hybrid)"),
		),
	)
	s.server.AddTool(searchTool, s.handleSearchMemories)

	listTool := mcp.NewTool("list_memories",
		mcp.WithDescription("List project memories, newest first, with cursor pagination"),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project to list"),
		),
		mcp.WithString("kind",
			mcp.Description("Filter by memory kind"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Page size (default: 20)"),
		),
		mcp.WithString("cursor",
			mcp.Description("Opaque cursor from a previous page"),
		),
	)
	s.server.AddTool(listTool, s.handleListMemories)

	deleteTool := mcp.NewTool("delete_memory",
		mcp.WithDescription("Delete a memory and its chunks"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Memory id"),
		),
	)
	s.server.AddTool(deleteTool, s.handleDeleteMemory)
}

func (s *MindBaseServer) handleStoreMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	input := service.StoreInput{
		Project:  project,
		Content:  content,
		Kind:     request.GetString("kind", ""),
		Tags:     request.GetStringSlice("tags", nil),
		Metadata: stringMap(request.GetArguments()["metadata"]),
	}

	memory, err := s.memories.Store(ctx, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store memory: %v", err)), nil
	}

	return jsonResult(map[string]any{
		"id":         memory.ID,
		"kind":       memory.Kind,
		"created_at": memory.CreatedAt,
	})
}

func (s *MindBaseServer) handleSearchMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output, err := s.searcher.Search(ctx, service.SearchInput{
		Query: query,
		Mode:  service.SearchMode(request.GetString("mode", "")),
		Limit: request.GetInt("limit", 0),
		Filters: service.SearchFilters{
			Project: project,
		},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	return jsonResult(output)
}

func (s *MindBaseServer) handleListMemories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project, err := request.RequireString("project")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	output, err := s.memories.List(ctx, service.ListMemoriesInput{
		Project: project,
		Kind:    request.GetString("kind", ""),
		Limit:   request.GetInt("limit", 0),
		Cursor:  request.GetString("cursor", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list memories: %v", err)), nil
	}

	return jsonResult(output)
}

func (s *MindBaseServer) handleDeleteMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.memories.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete memory: %v", err)), nil
	}

	return jsonResult(map[string]any{"deleted": id})
}

// Serve runs the server over stdio until the client disconnects.
func (s *MindBaseServer) Serve() error {
	return server.ServeStdio(s.server)
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringMap coerces a JSON object argument into string key/value pairs,
// stringifying non-string values.
func stringMap(raw any) map[string]string {
	obj, ok := raw.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}
