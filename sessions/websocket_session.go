package sessions

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Desarso/terrachat/models"
)

// WebSocketSession runs turns over one WebSocket connection. Each text frame
// is a chat request; turns on a connection run one at a time.
type WebSocketSession struct {
	SessionID string
	Conn      *websocket.Conn
	Writer    *WebSocketWriter
	Logger    *log.Logger
	// NewTurn builds the session for one turn.
	NewTurn func(turnID string) *TurnSession
}

// Serve reads requests until the client closes the connection or ctx ends.
func (ws *WebSocketSession) Serve(ctx context.Context) error {
	ws.Logger.Printf("WebSocket session started")
	defer ws.Logger.Printf("WebSocket session closed")

	stop := context.AfterFunc(ctx, func() { ws.Conn.Close() })
	defer stop()

	for {
		_, data, err := ws.Conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}

		var req models.Chat_Request
		if err := json.Unmarshal(data, &req); err != nil {
			ws.Logger.Printf("Invalid request frame: %v", err)
			if err := ws.Writer.WriteEvent(EventError, ErrorEvent{Message: "invalid request: " + err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := ValidateRequest(req); err != nil {
			if err := ws.Writer.WriteEvent(EventError, ErrorEvent{Message: err.Error()}); err != nil {
				return err
			}
			continue
		}

		ws.Writer.reset()
		turn := ws.NewTurn(uuid.NewString())
		if err := turn.Run(ctx, req, ws.Writer); err != nil {
			ws.Logger.Printf("Turn %s ended with error: %v", turn.TurnID, err)
		}
	}
}
