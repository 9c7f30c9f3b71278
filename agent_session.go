package terrachat

import (
	"github.com/Desarso/terrachat/location"
	"github.com/Desarso/terrachat/sessions"
	"github.com/gorilla/websocket"
)

// Re-export session types so callers only need the root package
type TurnSession = sessions.TurnSession
type WebSocketSession = sessions.WebSocketSession
type WebSocketWriter = sessions.WebSocketWriter
type SSEWriter = sessions.SSEWriter
type EventWriter = sessions.EventWriter
type AgentError = sessions.AgentError
type AgentInterface = sessions.AgentInterface

var _ AgentInterface = (*Agent)(nil)

// NewTurnSession creates a turn session using cfg's turn timeout and tool round limit.
func (cfg *Config) NewTurnSession(turnID string, agent *Agent, resolver *location.Resolver) *TurnSession {
	turn := sessions.NewTurnSession(turnID, agent, resolver)
	turn.TurnTimeout = cfg.TurnTimeout
	turn.MaxIterations = cfg.MaxToolIterations
	return turn
}

func NewWebSocketSession(sessionID string, conn *websocket.Conn, newTurn func(turnID string) *TurnSession) *WebSocketSession {
	return sessions.NewWebSocketSession(sessionID, conn, newTurn)
}
