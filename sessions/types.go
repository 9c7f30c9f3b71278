package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Desarso/terrachat/models"
	"github.com/gorilla/websocket"
)

// AgentError represents errors that can occur during agent operations
type AgentError struct {
	Message string
	Fatal   bool
}

func (e *AgentError) Error() string {
	return e.Message
}

// AgentInterface defines the interface that agents must implement
type AgentInterface interface {
	Run_Stream(ctx context.Context, request models.Model_Request) (<-chan models.Model_Response, <-chan error)
	ExecuteTool(ctx context.Context, call models.FunctionCall, loc models.Location) models.Tool_Invocation_Result
	ApproveTool(name string, args map[string]interface{}) (bool, error)
	Declarations() []models.FunctionDeclaration
}

// EventWriter delivers turn events to one client. WriteEvent is only called
// from the goroutine running the turn.
type EventWriter interface {
	WriteEvent(event string, data interface{}) error
	Flush()
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

// WriteEvent sends one {type, data} frame.
func (w *WebSocketWriter) WriteEvent(event string, data interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if event == EventText && !w.FirstTokenLogged && !w.StartTime.IsZero() {
		w.Logger.Printf("Time to first token: %v", time.Since(w.StartTime))
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(models.StreamEvent{Type: event, Data: data})
}

func (w *WebSocketWriter) Flush() {}

// reset prepares the writer for the next turn on the same connection.
func (w *WebSocketWriter) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.StartTime = time.Now()
	w.FirstTokenLogged = false
}
