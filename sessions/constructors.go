package sessions

import (
	"fmt"
	"log"
	"os"

	"github.com/gorilla/websocket"

	"github.com/Desarso/terrachat/location"
)

// NewTurnSession creates a session for one turn with default limits
func NewTurnSession(turnID string, agent AgentInterface, resolver *location.Resolver) *TurnSession {
	if resolver == nil {
		resolver = location.NewResolver(location.Bengaluru)
	}
	return &TurnSession{
		Agent:         agent,
		Resolver:      resolver,
		TurnID:        turnID,
		TurnTimeout:   DefaultTurnTimeout,
		MaxIterations: DefaultMaxIterations,
		Logger:        log.New(os.Stdout, fmt.Sprintf("[TURN %s] ", turnID), log.LstdFlags),
	}
}

// NewWebSocketSession creates a WebSocket session; newTurn builds each turn
func NewWebSocketSession(sessionID string, conn *websocket.Conn, newTurn func(turnID string) *TurnSession) *WebSocketSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	return &WebSocketSession{
		SessionID: sessionID,
		Conn:      conn,
		Writer:    &WebSocketWriter{Conn: conn, Logger: logger},
		Logger:    logger,
		NewTurn:   newTurn,
	}
}
