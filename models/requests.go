package models

// Chat_Request is the body of POST /api/chat and of each WebSocket turn frame.
type Chat_Request struct {
	Messages []Chat_Message `json:"messages"`
	Location *Location_Input `json:"location,omitempty"`
}

type Chat_Message struct {
	Role    string `json:"role"` // "user", "assistant"
	Content string `json:"content"`
	// Location is the structured side-channel the client may attach to a message.
	Location         *Location_Input   `json:"location,omitempty"`
	Tool_Invocations []Tool_Invocation `json:"toolInvocations,omitempty"`
}

// Tool_Invocation records a tool call made in an earlier turn.
type Tool_Invocation struct {
	Tool_Call_ID string                 `json:"toolCallId,omitempty"`
	Tool_Name    string                 `json:"toolName"`
	Args         map[string]interface{} `json:"args,omitempty"`
	Result       string                 `json:"result,omitempty"`
}

// Message is the provider-agnostic history entry handed to a Model.
type Message struct {
	Role       string         `json:"role"` // "user", "assistant", "tool"
	Content    string         `json:"content,omitempty"`
	Tool_Calls []FunctionCall `json:"tool_calls,omitempty"`
	// Tool_Call_ID and Tool_Name are set on "tool" messages.
	Tool_Call_ID string `json:"tool_call_id,omitempty"`
	Tool_Name    string `json:"tool_name,omitempty"`
}

type Model_Request struct {
	System_Prompt string    `json:"system_prompt"`
	Messages      []Message `json:"messages"`
}

type Tool_Result struct {
	Tool_ID     string `json:"tool_id"` // The tool call ID to match with the tool call
	Tool_Name   string `json:"tool_name"`
	Tool_Output string `json:"tool_output"`
}
