package sessions

import (
	"fmt"
	"strings"

	"github.com/Desarso/terrachat/models"
)

// ValidateRequest rejects chat requests that cannot start a turn.
func ValidateRequest(req models.Chat_Request) error {
	if len(req.Messages) == 0 {
		return &AgentError{Message: "messages must not be empty"}
	}
	for i, msg := range req.Messages {
		switch msg.Role {
		case "user", "assistant":
		default:
			return &AgentError{Message: fmt.Sprintf("messages[%d]: unsupported role %q", i, msg.Role)}
		}
	}
	if last := req.Messages[len(req.Messages)-1]; last.Role != "user" {
		return &AgentError{Message: "the last message must come from the user"}
	}
	return nil
}

// ToModelMessages flattens client history into provider-agnostic messages.
// An assistant message carrying earlier tool invocations becomes an
// assistant tool-call message, one tool message per result, then the
// assistant's text. Invocations without a result are dropped since providers
// reject unanswered calls.
func ToModelMessages(history []models.Chat_Message) []models.Message {
	out := make([]models.Message, 0, len(history))
	for i, msg := range history {
		if msg.Role == "assistant" {
			out = append(out, invocationMessages(i, msg.Tool_Invocations)...)
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		out = append(out, models.Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

func invocationMessages(index int, invocations []models.Tool_Invocation) []models.Message {
	var calls []models.FunctionCall
	var results []models.Message
	for j, inv := range invocations {
		if inv.Tool_Name == "" || inv.Result == "" {
			continue
		}
		id := inv.Tool_Call_ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%d", index, j)
		}
		args := inv.Args
		if args == nil {
			args = map[string]interface{}{}
		}
		calls = append(calls, models.FunctionCall{ID: id, Name: inv.Tool_Name, Args: args})
		results = append(results, models.Message{
			Role:         "tool",
			Content:      inv.Result,
			Tool_Call_ID: id,
			Tool_Name:    inv.Tool_Name,
		})
	}
	if len(calls) == 0 {
		return nil
	}
	return append([]models.Message{{Role: "assistant", Tool_Calls: calls}}, results...)
}
