// Package openaicompat streams chat completions from any endpoint that speaks
// the OpenAI protocol (OpenAI, OpenRouter, Groq, Cerebras).
package openaicompat

import (
	"context"
	"fmt"
	"log"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/Desarso/terrachat/models"
)

const DefaultModel = "gpt-4o"

// BaseURLs maps provider names to their OpenAI-compatible API roots.
var BaseURLs = map[string]string{
	"openai":     "https://api.openai.com/v1/",
	"openrouter": "https://openrouter.ai/api/v1/",
	"groq":       "https://api.groq.com/openai/v1/",
	"cerebras":   "https://api.cerebras.ai/v1/",
}

// DefaultModels is the model used per provider when none is configured.
var DefaultModels = map[string]string{
	"openai":     DefaultModel,
	"openrouter": "openai/gpt-4o-mini",
	"groq":       "llama-3.3-70b-versatile",
	"cerebras":   "llama-3.3-70b",
}

type OpenAI_Model struct {
	Model  string
	client openai.Client
}

// New creates a streaming model. An empty baseURL uses the SDK default.
func New(apiKey, baseURL, model string) *OpenAI_Model {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAI_Model{Model: model, client: openai.NewClient(opts...)}
}

// Stream_Model_Request forwards text deltas as they arrive and emits the
// accumulated tool calls once the stream ends.
func (o *OpenAI_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration) (<-chan models.Model_Response, <-chan error) {
	responseChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(responseChan)
		defer close(errChan)

		stream := o.client.Chat.Completions.NewStreaming(ctx, o.params(request, tools))
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)
			if len(chunk.Choices) == 0 {
				continue
			}
			if text := chunk.Choices[0].Delta.Content; text != "" {
				if !models.Emit(ctx, responseChan, models.Text_Response(text)) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			errChan <- fmt.Errorf("openai stream: %w", err)
			return
		}
		if len(acc.Choices) == 0 {
			return
		}
		if calls := fromToolCalls(acc.Choices[0].Message.ToolCalls); len(calls) > 0 {
			models.Emit(ctx, responseChan, models.Calls_Response(calls))
		}
	}()

	return responseChan, errChan
}

func (o *OpenAI_Model) params(request models.Model_Request, tools []models.FunctionDeclaration) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages)+1)
	if request.System_Prompt != "" {
		msgs = append(msgs, openai.SystemMessage(request.System_Prompt))
	}
	for _, m := range request.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.Model),
		Messages: msgs,
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}
	return params
}

func toOpenAITools(tools []models.FunctionDeclaration) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters.Schema()),
			},
		}
	}
	return out
}

func toOpenAIMessage(m models.Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case "tool":
		return openai.ToolMessage(m.Content, m.Tool_Call_ID)
	case "user":
		return openai.UserMessage(m.Content)
	default: // "assistant"
		asst := openai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = openai.String(m.Content)
		}
		if len(m.Tool_Calls) > 0 {
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.Tool_Calls))
			for i, tc := range m.Tool_Calls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: models.ArgsJSON(tc.Args),
					},
				}
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
	}
}

func fromToolCalls(calls []openai.ChatCompletionMessageToolCall) []models.FunctionCall {
	out := make([]models.FunctionCall, 0, len(calls))
	for _, tc := range calls {
		if tc.Function.Name == "" {
			continue
		}
		call := models.FunctionCall{ID: tc.ID, Name: tc.Function.Name}
		args, err := models.ParseArgs(tc.Function.Arguments)
		if err != nil {
			log.Printf("Malformed arguments for %s (%s): %v", tc.Function.Name, tc.ID, err)
			call.ArgsError = err.Error()
		}
		call.Args = args
		out = append(out, call)
	}
	return out
}
