package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Desarso/terrachat/location"
	"github.com/Desarso/terrachat/metrics"
	"github.com/Desarso/terrachat/models"
	"github.com/Desarso/terrachat/stores"
)

const (
	DefaultTurnTimeout   = 30 * time.Second
	DefaultMaxIterations = 5
)

// TurnSession runs one chat turn: resolve the location, stream the model,
// dispatch the tools it asks for and feed the results back until it answers
// in plain text.
type TurnSession struct {
	Agent         AgentInterface
	Resolver      *location.Resolver
	TurnID        string
	TurnTimeout   time.Duration
	MaxIterations int
	Traces        stores.TraceStore // Optional
	Logger        *log.Logger
}

// dispatched is one tool call with its result, kept in call order.
type dispatched struct {
	call   models.FunctionCall
	result models.Tool_Invocation_Result
}

// Run drives the turn and writes every event to w. It always ends with a done
// event; failures are reported as an error event before it. The returned
// error is for the caller's logs only.
func (s *TurnSession) Run(ctx context.Context, req models.Chat_Request, w EventWriter) (err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.TurnTimeout)
	defer cancel()

	toolCalls := 0
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				status = "timeout"
			}
			s.Logger.Printf("Turn failed: %v", err)
			if writeErr := w.WriteEvent(EventError, ErrorEvent{Message: s.describe(ctx, err)}); writeErr != nil {
				s.Logger.Printf("Error writing error event: %v", writeErr)
			}
		}
		if writeErr := w.WriteEvent(EventDone, DoneEvent{TurnID: s.TurnID, ToolCalls: toolCalls}); writeErr != nil {
			s.Logger.Printf("Error writing done event: %v", writeErr)
		}
		w.Flush()
		metrics.ObserveTurn(status, time.Since(start))
		s.Logger.Printf("Turn finished in %v (%s, %d tool calls)", time.Since(start), status, toolCalls)
	}()

	resolved := s.Resolver.Resolve(req.Location, req.Messages)
	loc := resolved.Location
	s.Logger.Printf("Using location %s (%s)", loc, resolved.Source)
	if err := w.WriteEvent(EventTurn, TurnEvent{TurnID: s.TurnID, Location: loc, Source: string(resolved.Source)}); err != nil {
		return fmt.Errorf("writing turn event: %w", err)
	}
	w.Flush()

	request := models.Model_Request{
		System_Prompt: BuildSystemPrompt(loc, s.Agent.Declarations()),
		Messages:      ToModelMessages(req.Messages),
	}

	for iteration := 1; ; iteration++ {
		s.Logger.Printf("=== Iteration %d ===", iteration)
		text, calls, err := s.streamRound(ctx, request, w)
		if err != nil {
			return err
		}
		if len(calls) == 0 {
			return nil
		}
		if iteration > s.MaxIterations {
			return &AgentError{Message: fmt.Sprintf("stopped after %d tool rounds without a final answer", s.MaxIterations)}
		}

		results, err := s.dispatch(ctx, calls, loc, w)
		toolCalls += len(results)
		if err != nil {
			return err
		}

		request.Messages = append(request.Messages, models.Message{Role: "assistant", Content: text, Tool_Calls: calls})
		for _, d := range results {
			request.Messages = append(request.Messages, models.Message{
				Role:         "tool",
				Content:      d.result.Formatted_Text,
				Tool_Call_ID: d.call.ID,
				Tool_Name:    d.call.Name,
			})
		}
	}
}

// streamRound forwards text deltas as they arrive and collects the tool calls
// of one model response.
func (s *TurnSession) streamRound(ctx context.Context, request models.Model_Request, w EventWriter) (string, []models.FunctionCall, error) {
	respChan, errChan := s.Agent.Run_Stream(ctx, request)

	var text strings.Builder
	var calls []models.FunctionCall
	for respChan != nil || errChan != nil {
		select {
		case resp, ok := <-respChan:
			if !ok {
				respChan = nil
				continue
			}
			for _, part := range resp.Parts {
				if part.Text != nil && *part.Text != "" {
					text.WriteString(*part.Text)
					if err := w.WriteEvent(EventText, TextEvent{Delta: *part.Text}); err != nil {
						return "", nil, fmt.Errorf("writing text event: %w", err)
					}
					w.Flush()
				}
				if part.FunctionCall != nil {
					calls = append(calls, *part.FunctionCall)
				}
			}
		case err, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}
			if err != nil {
				return "", nil, fmt.Errorf("model stream: %w", err)
			}
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
	return text.String(), normalizeCalls(calls), nil
}

// normalizeCalls gives every call an ID and drops repeats of the same ID.
func normalizeCalls(calls []models.FunctionCall) []models.FunctionCall {
	seen := make(map[string]bool, len(calls))
	out := make([]models.FunctionCall, 0, len(calls))
	for _, call := range calls {
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if seen[call.ID] {
			continue
		}
		seen[call.ID] = true
		if call.Args == nil {
			call.Args = map[string]interface{}{}
		}
		out = append(out, call)
	}
	return out
}

// dispatch runs one round of tool calls concurrently. Results are stored by
// call index so they are reported and fed back in the order the model asked.
func (s *TurnSession) dispatch(ctx context.Context, calls []models.FunctionCall, loc models.Location, w EventWriter) ([]dispatched, error) {
	for _, call := range calls {
		if err := w.WriteEvent(EventToolCall, ToolCallEvent{ID: call.ID, Name: call.Name, Args: call.Args}); err != nil {
			return nil, fmt.Errorf("writing tool_call event: %w", err)
		}
	}
	w.Flush()

	results := make([]dispatched, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = dispatched{call: call, result: s.execute(ctx, call, loc)}
			// Tool failures are results; only a cancelled turn fails the round.
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for _, d := range results {
		event := ToolResultEvent{ID: d.call.ID, Name: d.call.Name, Text: d.result.Formatted_Text, Error: d.result.Error_Message}
		if err := w.WriteEvent(EventToolResult, event); err != nil {
			return results, fmt.Errorf("writing tool_result event: %w", err)
		}
	}
	w.Flush()
	return results, nil
}

func (s *TurnSession) execute(ctx context.Context, call models.FunctionCall, loc models.Location) models.Tool_Invocation_Result {
	start := time.Now()
	status := stores.StatusOK

	var result models.Tool_Invocation_Result
	approved, err := s.Agent.ApproveTool(call.Name, call.Args)
	if err != nil || !approved {
		status = stores.StatusDenied
		msg := fmt.Sprintf("tool '%s' is disabled on this server", call.Name)
		if err != nil {
			msg = fmt.Sprintf("tool '%s' was not approved: %v", call.Name, err)
		}
		result = models.Tool_Invocation_Result{Tool_Name: call.Name, Formatted_Text: "❌ " + msg, Error_Message: msg}
	} else {
		s.Logger.Printf("Executing tool %s (%s)", call.Name, call.ID)
		result = s.Agent.ExecuteTool(ctx, call, loc)
		if result.Failed() {
			status = stores.StatusError
		}
	}
	s.Logger.Printf("Tool %s finished in %v: %s", call.Name, time.Since(start), status)

	if s.Traces != nil {
		trace := &stores.ToolTrace{
			TurnID:       s.TurnID,
			ToolCallID:   call.ID,
			Tool:         call.Name,
			Status:       status,
			LocationName: loc.Name,
			Latitude:     loc.Latitude,
			Longitude:    loc.Longitude,
			Args:         call.Args,
			ErrorMessage: result.Error_Message,
			Timestamp:    start.UnixMilli(),
			DurationMS:   time.Since(start).Milliseconds(),
		}
		// The trace outlives a cancelled turn.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := s.Traces.SaveTrace(saveCtx, trace); err != nil {
			s.Logger.Printf("Error saving trace for %s: %v", call.ID, err)
		}
	}
	return result
}

// describe turns a turn failure into the message shown to the user.
func (s *TurnSession) describe(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Sprintf("The response took longer than %v and was stopped. Please try again.", s.TurnTimeout)
	}
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Message
	}
	return fmt.Sprintf("Failed to generate a response: %v", err)
}
