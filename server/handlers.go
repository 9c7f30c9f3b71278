package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Desarso/terrachat/models"
	"github.com/Desarso/terrachat/sessions"
	"github.com/Desarso/terrachat/stores"
)

// isoMillis matches the timestamps the web client already parses.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func timestamp() string {
	return time.Now().UTC().Format(isoMillis)
}

// handleChat streams one turn as Server-Sent Events.
func (s *Server) handleChat(c *gin.Context) {
	var req models.Chat_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}
	if err := sessions.ValidateRequest(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if s.Agent == nil || s.Agent.Model == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request", "message": "no language model is configured"})
		return
	}

	turnID := uuid.NewString()
	turn := s.newTurn(turnID)
	c.Header("X-Turn-ID", turnID)
	writer := sessions.NewSSEWriter(c)
	c.Status(http.StatusOK)

	if err := turn.Run(c.Request.Context(), req, writer); err != nil {
		s.Logger.Printf("Turn %s failed: %v", turnID, err)
	}
}

func (s *Server) handleChatWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewWebSocketSession(uuid.NewString(), conn, s.newTurn)
	if err := session.Serve(c.Request.Context()); err != nil {
		s.Logger.Printf("WebSocket session %s ended: %v", session.SessionID, err)
	}
}

// handleProxy relays {tool_name, params} to the MCP server, passing upstream
// failures through with their status code.
func (s *Server) handleProxy(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err == nil && !json.Valid(body) {
		err = errInvalidJSON
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to proxy MCP request", "message": err.Error()})
		return
	}

	resp, err := s.Upstream.CallFunction(c.Request.Context(), body)
	if err != nil {
		s.Logger.Printf("Error proxying MCP request: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to proxy MCP request", "message": err.Error()})
		return
	}
	if resp.Status < 200 || resp.Status > 299 {
		s.Logger.Printf("MCP Server error: %s", resp.StatusText)
		c.JSON(resp.Status, gin.H{"error": "MCP Server error: " + resp.StatusText, "details": string(resp.Body)})
		return
	}
	if !json.Valid(resp.Body) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to proxy MCP request", "message": "MCP server returned invalid JSON"})
		return
	}
	c.Data(http.StatusOK, "application/json", resp.Body)
}

func (s *Server) handleTools(c *gin.Context) {
	free, premium, err := s.Upstream.ListAllTools(c.Request.Context())
	if err != nil {
		s.Logger.Printf("Error fetching tools: %v", err)
		c.JSON(http.StatusInternalServerError, models.ToolsListingResponse{
			Success:      false,
			Error:        err.Error(),
			FreeTools:    []models.Upstream_Tool_Spec{},
			PremiumTools: []models.Upstream_Tool_Spec{},
		})
		return
	}
	if free == nil {
		free = []models.Upstream_Tool_Spec{}
	}
	if premium == nil {
		premium = []models.Upstream_Tool_Spec{}
	}
	c.JSON(http.StatusOK, models.ToolsListingResponse{Success: true, FreeTools: free, PremiumTools: premium})
}

func (s *Server) handleHealth(c *gin.Context) {
	var payload json.RawMessage
	var err error
	if s.Monitor != nil {
		status := s.Monitor.Check(c.Request.Context())
		if !status.Up {
			err = errString(status.Error)
		}
		payload = status.MCPServer
	} else {
		payload, err = s.Upstream.Health(c.Request.Context())
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, models.HealthResponse{Success: false, Error: err.Error(), Timestamp: timestamp()})
		return
	}
	c.JSON(http.StatusOK, models.HealthResponse{Success: true, MCPServer: payload, Timestamp: timestamp()})
}

type catalogEntry struct {
	models.FunctionDeclaration
	Disabled bool `json:"disabled"`
}

// handleCatalog lists the tools the model can call on this server.
func (s *Server) handleCatalog(c *gin.Context) {
	entries := make([]catalogEntry, 0, len(s.Agent.Tools))
	for _, tool := range s.Agent.Tools {
		disabled := s.Agent.Approver != nil && s.Agent.Approver.Disabled(tool.Name)
		entries = append(entries, catalogEntry{FunctionDeclaration: tool, Disabled: disabled})
	}
	c.JSON(http.StatusOK, gin.H{"tools": entries})
}

func (s *Server) handleTraces(c *gin.Context) {
	if s.Traces == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "tool tracing is not enabled"})
		return
	}
	turnID := c.Param("turn_id")
	traces, err := s.Traces.GetTracesByTurn(c.Request.Context(), turnID)
	if err != nil {
		s.Logger.Printf("Error loading traces for %s: %v", turnID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load traces", "message": err.Error()})
		return
	}
	if traces == nil {
		traces = []*stores.ToolTrace{}
	}
	c.JSON(http.StatusOK, gin.H{"turn_id": turnID, "traces": traces})
}

type errString string

func (e errString) Error() string { return string(e) }

const errInvalidJSON = errString("request body is not valid JSON")
