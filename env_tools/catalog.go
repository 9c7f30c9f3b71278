// Package env_tools is the fixed catalog of environmental data tools the
// assistant can call. Each tool is a thin proxy to one upstream API on the
// MCP server.
package env_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Desarso/terrachat/models"
)

// Caller is satisfied by *relay.Client.
type Caller interface {
	Call(ctx context.Context, toolName string, params map[string]interface{}) (json.RawMessage, error)
}

// call is one prepared upstream request.
type call struct {
	loc    models.Location
	lat    float64
	lon    float64
	params map[string]interface{}
}

// errNoData marks a successful response that carried nothing to render.
var errNoData = errors.New("no data available from the API")

type toolSpec struct {
	name        string
	description string
	guidance    string
	upstream    string
	properties  map[string]interface{}
	required    []string
	// subject completes "❌ Error getting <subject>: ..."
	subject string
	prepare func(loc models.Location, a args) (call, error)
	render  func(doc map[string]interface{}, c call) (string, error)
}

func (t toolSpec) declaration(caller Caller) models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        t.name,
		Description: t.description,
		Parameters: models.Parameters{
			Type:       "object",
			Properties: t.properties,
			Required:   t.required,
		},
		Guidance: t.guidance,
		Callable: func(ctx context.Context, loc models.Location, raw map[string]interface{}) models.Tool_Invocation_Result {
			return t.run(ctx, caller, loc, raw)
		},
	}
}

func (t toolSpec) run(ctx context.Context, caller Caller, loc models.Location, raw map[string]interface{}) models.Tool_Invocation_Result {
	c, err := t.prepare(loc, args(raw))
	if err != nil {
		return t.fail(err, nil)
	}
	payload, err := caller.Call(ctx, t.upstream, c.params)
	if err != nil {
		return t.fail(err, nil)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return t.fail(fmt.Errorf("unexpected response from %s: %w", t.upstream, err), payload)
	}
	text, err := t.render(doc, c)
	if err != nil {
		return t.fail(err, payload)
	}
	return models.Tool_Invocation_Result{
		Tool_Name:      t.name,
		Raw_Payload:    payload,
		Formatted_Text: text,
	}
}

func (t toolSpec) fail(err error, payload json.RawMessage) models.Tool_Invocation_Result {
	return models.Tool_Invocation_Result{
		Tool_Name:      t.name,
		Raw_Payload:    payload,
		Formatted_Text: fmt.Sprintf("❌ Error getting %s: %s", t.subject, err.Error()),
		Error_Message:  err.Error(),
	}
}

// Catalog is read-only after NewCatalog returns.
type Catalog struct {
	tools  []models.FunctionDeclaration
	byName map[string]int
}

func specs() []toolSpec {
	return []toolSpec{
		weatherSpec(),
		precipitationSpec(),
		groundwaterSpec(),
		soilMoistureSpec(),
		soilPropertiesSpec(),
		cropPriceSpec(),
		cropIdentificationSpec(),
		earthquakeSpec(),
		comprehensiveSpec(),
	}
}

// NewCatalog builds every tool against the given caller.
func NewCatalog(caller Caller) *Catalog {
	c := &Catalog{byName: map[string]int{}}
	for _, spec := range specs() {
		c.byName[spec.name] = len(c.tools)
		c.tools = append(c.tools, spec.declaration(caller))
	}
	return c
}

// Declarations returns a copy of the tool list in catalog order.
func (c *Catalog) Declarations() []models.FunctionDeclaration {
	out := make([]models.FunctionDeclaration, len(c.tools))
	copy(out, c.tools)
	return out
}

func (c *Catalog) Lookup(name string) (models.FunctionDeclaration, bool) {
	i, ok := c.byName[name]
	if !ok {
		return models.FunctionDeclaration{}, false
	}
	return c.tools[i], true
}

func (c *Catalog) Names() []string {
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

// Execute runs a tool by name. Unknown names produce a failure result.
func (c *Catalog) Execute(ctx context.Context, name string, loc models.Location, raw map[string]interface{}) models.Tool_Invocation_Result {
	tool, ok := c.Lookup(name)
	if !ok {
		msg := fmt.Sprintf("unknown or unavailable tool: %s", name)
		return models.Tool_Invocation_Result{Tool_Name: name, Formatted_Text: "❌ " + msg, Error_Message: msg}
	}
	return tool.Callable(ctx, loc, raw)
}
