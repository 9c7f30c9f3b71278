package sessions

import "github.com/Desarso/terrachat/models"

// Turn event names, in the order a client sees them.
const (
	EventTurn       = "turn"
	EventText       = "text"
	EventToolCall   = "tool_call"
	EventToolResult = "tool_result"
	EventError      = "error"
	EventDone       = "done"
)

type TurnEvent struct {
	TurnID   string          `json:"turn_id"`
	Location models.Location `json:"location"`
	Source   string          `json:"source"`
}

type TextEvent struct {
	Delta string `json:"delta"`
}

type ToolCallEvent struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type ToolResultEvent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

type DoneEvent struct {
	TurnID    string `json:"turn_id"`
	ToolCalls int    `json:"tool_calls"`
}
