package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - test/placeholder
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Remember tool - store a revision and enqueue extraction
	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a text revision, embed it, and enqueue asynchronous event extraction",
	}, NewRememberHandler(deps))

	// Search tool - hybrid fulltext + vector search with graph expansion
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Search stored content with hybrid fulltext + vector retrieval, optionally expanding to related events through shared entities",
	}, NewSearchHandler(deps))

	// Job status tool - inspect the extraction queue
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_status",
		Description: "Look up an extraction job by id or list recent jobs, with server metrics",
	}, NewStatusHandler(deps))

	// Reextract tool - re-run extraction for a stored revision
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reextract",
		Description: "Enqueue a fresh extraction run for an already stored revision",
	}, NewReextractHandler(deps))
}
