package models

import (
	"context"
	"encoding/json"
)

type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

//may be a string or a function call and it will be parts

type FunctionCall struct {
	ID   string                 `json:"id,omitempty"` // Unique ID for this specific call instance
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
	// ArgsError is set when the provider sent arguments that did not decode.
	ArgsError string `json:"-"`
}

type Model_Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// Tool_Invocation_Result is what a catalog tool hands back to the orchestrator.
// Formatted_Text is always set; on failure it is the one-line error text and
// Error_Message carries the bare cause.
type Tool_Invocation_Result struct {
	Tool_Name      string          `json:"tool_name"`
	Raw_Payload    json.RawMessage `json:"raw_payload,omitempty"`
	Formatted_Text string          `json:"formatted_text"`
	Error_Message  string          `json:"error_message,omitempty"`
}

func (r Tool_Invocation_Result) Failed() bool {
	return r.Error_Message != ""
}

func Text_Response(text string) Model_Response {
	return Model_Response{Parts: []Model_Part{{Text: &text}}}
}

func Calls_Response(calls []FunctionCall) Model_Response {
	parts := make([]Model_Part, len(calls))
	for i := range calls {
		call := calls[i]
		parts[i] = Model_Part{FunctionCall: &call}
	}
	return Model_Response{Parts: parts}
}

// Emit sends resp unless ctx is cancelled first.
func Emit(ctx context.Context, ch chan<- Model_Response, resp Model_Response) bool {
	select {
	case ch <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}

// ParseArgs decodes a JSON arguments string; empty or invalid input yields an
// empty map and the decode error.
func ParseArgs(raw string) (map[string]interface{}, error) {
	args := map[string]interface{}{}
	if raw == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]interface{}{}, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// ArgsJSON is the inverse of ParseArgs.
func ArgsJSON(args map[string]interface{}) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
