package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Aegis tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("aegis", "1.0.0")
	client := NewAegisClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanWallet, h.HandleScanWallet)
	s.AddTool(ToolExecuteResponses, h.HandleExecuteResponses)
	s.AddTool(ToolScorePoolRisk, h.HandleScorePoolRisk)
	s.AddTool(ToolGetProof, h.HandleGetProof)
	s.AddTool(ToolVerifyProof, h.HandleVerifyProof)
	s.AddTool(ToolListProofs, h.HandleListProofs)
	s.AddTool(ToolGetPermissions, h.HandleGetPermissions)

	return s
}
