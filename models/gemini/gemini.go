package gemini

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/Desarso/terrachat/models"
)

const DefaultModel = "gemini-2.0-flash"

type Gemini_Model struct {
	Model  string
	client *genai.Client
}

func New(ctx context.Context, apiKey, model string) (*Gemini_Model, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini_Model{Model: model, client: client}, nil
}

func (g *Gemini_Model) Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration) (<-chan models.Model_Response, <-chan error) {
	responseChan := make(chan models.Model_Response)
	errChan := make(chan error, 1)

	go func() {
		defer close(responseChan)
		defer close(errChan)

		config := &genai.GenerateContentConfig{}
		if request.System_Prompt != "" {
			config.SystemInstruction = genai.NewContentFromText(request.System_Prompt, genai.RoleUser)
		}
		if len(tools) > 0 {
			config.Tools = toGeminiTools(tools)
		}

		var calls []models.FunctionCall
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.Model, toContents(request.Messages), config) {
			if err != nil {
				errChan <- fmt.Errorf("gemini stream: %w", err)
				return
			}
			for _, candidate := range resp.Candidates {
				if candidate.Content == nil {
					continue
				}
				for _, part := range candidate.Content.Parts {
					if part.Text != "" && !part.Thought {
						if !models.Emit(ctx, responseChan, models.Text_Response(part.Text)) {
							return
						}
					}
					if part.FunctionCall != nil {
						calls = append(calls, fromFunctionCall(part.FunctionCall))
					}
				}
			}
		}
		if len(calls) > 0 {
			models.Emit(ctx, responseChan, models.Calls_Response(calls))
		}
	}()

	return responseChan, errChan
}

func fromFunctionCall(fc *genai.FunctionCall) models.FunctionCall {
	id := fc.ID
	if id == "" {
		// Gemini often omits call IDs; results are matched back by this one.
		id = uuid.New().String()
	}
	args := fc.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return models.FunctionCall{ID: id, Name: fc.Name, Args: args}
}

func toGeminiTools(tools []models.FunctionDeclaration) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = &genai.FunctionDeclaration{
			Name:                 t.Name,
			Description:          t.Description,
			ParametersJsonSchema: t.Parameters.Schema(),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toContents maps history onto Gemini's user/model roles. Tool results travel
// as function responses in a user turn; consecutive results share one turn.
func toContents(messages []models.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case "assistant":
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.Tool_Calls {
				part := genai.NewPartFromFunctionCall(tc.Name, tc.Args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case "tool":
			part := genai.NewPartFromFunctionResponse(m.Tool_Name, map[string]any{"result": m.Content})
			part.FunctionResponse.ID = m.Tool_Call_ID
			if n := len(contents); n > 0 && isFunctionResponseTurn(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		}
	}
	return contents
}

func isFunctionResponseTurn(c *genai.Content) bool {
	if c.Role != string(genai.RoleUser) || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}
