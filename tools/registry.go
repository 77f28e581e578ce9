// registry.go
// -----------
// Tool registry for the Method CRM MCP server. Every tool implements the
// Tool interface; All returns the full surface wired to a shared client,
// and Register attaches them to an MCP server instance.

package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	methodmcp "github.com/methodcrm/method-mcp"
)

// Tool is a single MCP tool: its schema and its handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// All returns every tool exposed by the server, bound to client.
// A nil logger is replaced with a no-op logger.
func All(client *methodmcp.Client, logger *zap.Logger) []Tool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []Tool{
		// Table records
		&TablesQueryTool{client: client, log: logger},
		&TablesGetTool{client: client, log: logger},
		&TablesCreateTool{client: client, log: logger},
		&TablesUpdateTool{client: client, log: logger},
		&TablesDeleteTool{client: client, log: logger},

		// File attachments
		&FilesUploadTool{client: client, log: logger},
		&FilesListTool{client: client, log: logger},
		&FilesDownloadTool{client: client, log: logger},
		&FilesGetURLTool{client: client, log: logger},
		&FilesUpdateLinkTool{client: client, log: logger},
		&FilesDeleteTool{client: client, log: logger},

		// Event-driven automation
		&EventsCreateRoutineTool{client: client, log: logger},
		&EventsListRoutinesTool{client: client, log: logger},
		&EventsGetRoutineTool{client: client, log: logger},
		&EventsDeleteRoutineTool{client: client, log: logger},

		// Account
		&UserInfoTool{client: client, log: logger},

		// API key management
		&APIKeysCreateTool{client: client, log: logger},
		&APIKeysListTool{client: client, log: logger},
		&APIKeysUpdateTool{client: client, log: logger},
		&APIKeysDeleteTool{client: client, log: logger},
	}
}

// Register adds every tool to s.
func Register(s *server.MCPServer, ts []Tool) {
	for _, t := range ts {
		s.AddTool(t.Definition(), t.Handle)
	}
}
