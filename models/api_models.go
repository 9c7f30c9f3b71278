package models

import "encoding/json"

// Upstream_Tool_Spec describes one tool advertised by the MCP server.
type Upstream_Tool_Spec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolsListingResponse is returned by GET /api/tools.
type ToolsListingResponse struct {
	Success      bool                 `json:"success"`
	FreeTools    []Upstream_Tool_Spec `json:"free_tools"`
	PremiumTools []Upstream_Tool_Spec `json:"premium_tools"`
	Error        string               `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/mcp-health.
type HealthResponse struct {
	Success   bool            `json:"success"`
	MCPServer json.RawMessage `json:"mcpServer,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// StreamEvent is the payload of one turn event on either transport.
type StreamEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}
