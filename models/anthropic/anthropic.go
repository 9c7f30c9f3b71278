package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/Desarso/terrachat/models"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

type Anthropic_Model struct {
	Model     string
	MaxTokens int64
	client    anthropic.Client
}

func New(apiKey, model string) *Anthropic_Model {
	if model == "" {
		model = DefaultModel
	}
	return &Anthropic_Model{
		Model:     model,
		MaxTokens: DefaultMaxTokens,
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (a *Anthropic_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration) (<-chan models.Model_Response, <-chan error) {
	responseChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(responseChan)
		defer close(errChan)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(a.Model),
			MaxTokens: a.MaxTokens,
			Messages:  toAnthropicMessages(request.Messages),
		}
		if request.System_Prompt != "" {
			params.System = []anthropic.TextBlockParam{{Text: request.System_Prompt}}
		}
		if len(tools) > 0 {
			params.Tools = toAnthropicTools(tools)
		}

		stream := a.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		message := anthropic.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				errChan <- fmt.Errorf("anthropic accumulate: %w", err)
				return
			}
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !models.Emit(ctx, responseChan, models.Text_Response(delta.Text)) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			errChan <- fmt.Errorf("anthropic stream: %w", err)
			return
		}
		if calls := fromToolUses(message.Content); len(calls) > 0 {
			models.Emit(ctx, responseChan, models.Calls_Response(calls))
		}
	}()

	return responseChan, errChan
}

func toAnthropicTools(tools []models.FunctionDeclaration) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		props := t.Parameters.Properties
		if props == nil {
			props = map[string]interface{}{}
		}
		out[i] = anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: props,
					Required:   t.Parameters.Required,
				},
			},
		}
	}
	return out
}

// toAnthropicMessages folds tool results into user turns, since the API has
// no tool role. Consecutive results share one user message.
func toAnthropicMessages(messages []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	pendingResults := []anthropic.ContentBlockParamUnion{}
	flush := func() {
		if len(pendingResults) > 0 {
			out = append(out, anthropic.NewUserMessage(pendingResults...))
			pendingResults = []anthropic.ContentBlockParamUnion{}
		}
	}
	for _, m := range messages {
		switch m.Role {
		case "tool":
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.Tool_Call_ID, m.Content, false))
		case "user":
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case "assistant":
			flush()
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Tool_Calls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.Tool_Calls {
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: json.RawMessage(models.ArgsJSON(tc.Args)),
					},
				})
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

func fromToolUses(blocks []anthropic.ContentBlockUnion) []models.FunctionCall {
	var calls []models.FunctionCall
	for _, block := range blocks {
		if block.Type != "tool_use" {
			continue
		}
		tu := block.AsToolUse()
		call := models.FunctionCall{ID: tu.ID, Name: tu.Name}
		args, err := models.ParseArgs(string(tu.Input))
		if err != nil {
			log.Printf("Malformed input for %s (%s): %v", tu.Name, tu.ID, err)
			call.ArgsError = err.Error()
		}
		call.Args = args
		calls = append(calls, call)
	}
	return calls
}
