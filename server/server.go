// Package server exposes the chat turn, the MCP relay and the supporting
// endpoints over gin.
package server

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	terrachat "github.com/Desarso/terrachat"
	"github.com/Desarso/terrachat/health"
	"github.com/Desarso/terrachat/location"
	"github.com/Desarso/terrachat/metrics"
	"github.com/Desarso/terrachat/relay"
	"github.com/Desarso/terrachat/sessions"
	"github.com/Desarso/terrachat/stores"
)

type Server struct {
	Config   *terrachat.Config
	Agent    *terrachat.Agent
	Resolver *location.Resolver
	Upstream *relay.Upstream
	Monitor  *health.Monitor   // Optional: probes are run inline without it
	Traces   stores.TraceStore // Optional
	Logger   *log.Logger

	upgrader websocket.Upgrader
}

func New(cfg *terrachat.Config, agent *terrachat.Agent, resolver *location.Resolver, upstream *relay.Upstream) *Server {
	return &Server{
		Config:   cfg,
		Agent:    agent,
		Resolver: resolver,
		Upstream: upstream,
		Logger:   log.New(os.Stdout, "[HTTP] ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())

	api := engine.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/chat/ws", s.handleChatWebSocket)

		proxy := api.Group("/mcp-proxy", cors())
		proxy.POST("", s.handleProxy)
		proxy.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusOK) })

		api.GET("/tools", s.handleTools)
		api.GET("/mcp-health", s.handleHealth)
		api.GET("/catalog", s.handleCatalog)
		api.GET("/traces/:turn_id", s.handleTraces)
	}
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	return engine
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Next()
	}
}

// newTurn builds the session for one chat turn.
func (s *Server) newTurn(turnID string) *sessions.TurnSession {
	turn := s.Config.NewTurnSession(turnID, s.Agent, s.Resolver)
	turn.Logger = log.New(os.Stdout, fmt.Sprintf("[TURN %s] ", turnID), log.LstdFlags)
	if s.Traces != nil {
		turn.Traces = s.Traces
	}
	return turn
}
