package models

import "context"

// ToolFunc executes one catalog tool for a resolved location. Failures are
// reported inside the returned result, never as a Go error.
type ToolFunc func(ctx context.Context, loc Location, args map[string]interface{}) Tool_Invocation_Result

type FunctionDeclaration struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  Parameters `json:"parameters"`
	// Guidance is folded into the system prompt so the model knows when to pick this tool.
	Guidance string   `json:"-"`
	Callable ToolFunc `json:"-"`
}

// Parameters defines the JSON Schema for function parameters
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// Schema returns the parameters as a plain JSON-schema map for provider SDKs.
func (p Parameters) Schema() map[string]interface{} {
	properties := p.Properties
	if properties == nil {
		properties = map[string]interface{}{}
	}
	required := p.Required
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
