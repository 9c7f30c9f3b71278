package terrachat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Desarso/terrachat/metrics"
	models "github.com/Desarso/terrachat/models"
)

// DefaultToolTimeout bounds one tool execution.
const DefaultToolTimeout = 8 * time.Second

type Model interface {
	Stream_Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration) (<-chan models.Model_Response, <-chan error)
}

type Agent struct {
	Model       Model
	Tools       []models.FunctionDeclaration
	Approver    *ToolApprover
	ToolTimeout time.Duration
}

func Create_Agent(model Model, tools []models.FunctionDeclaration) *Agent {
	return &Agent{
		Model:       model,
		Tools:       tools,
		Approver:    NewToolApprover(),
		ToolTimeout: DefaultToolTimeout,
	}
}

func (agent *Agent) Run_Stream(ctx context.Context, request models.Model_Request) (<-chan models.Model_Response, <-chan error) {
	return agent.Model.Stream_Model_Request(ctx, request, agent.Declarations())
}

// Declarations lists the tools the model may call, minus any the approver
// has disabled.
func (agent *Agent) Declarations() []models.FunctionDeclaration {
	out := make([]models.FunctionDeclaration, 0, len(agent.Tools))
	for _, tool := range agent.Tools {
		if agent.Approver != nil && agent.Approver.Disabled(tool.Name) {
			continue
		}
		out = append(out, tool)
	}
	return out
}

// ExecuteTool runs one tool call against the resolved location. It never
// returns an error: every failure, including a panic inside the tool, comes
// back as a failed result.
func (agent *Agent) ExecuteTool(ctx context.Context, call models.FunctionCall, loc models.Location) (result models.Tool_Invocation_Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Tool %s panicked: %v", call.Name, r)
			result = failedResult(call.Name, fmt.Sprintf("tool '%s' crashed", call.Name))
		}
		status := "ok"
		if result.Failed() {
			status = "error"
		}
		metrics.ObserveTool(call.Name, status, time.Since(start))
	}()

	var tool *models.FunctionDeclaration
	for i := range agent.Tools {
		if agent.Tools[i].Name == call.Name {
			tool = &agent.Tools[i]
			break
		}
	}
	if tool == nil || tool.Callable == nil {
		return failedResult(call.Name, fmt.Sprintf("unknown or unavailable tool: %s", call.Name))
	}
	if call.ArgsError != "" {
		return failedResult(call.Name, "invalid arguments: "+call.ArgsError)
	}

	timeout := agent.ToolTimeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := call.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return tool.Callable(ctx, loc, args)
}

// ApproveTool checks if a tool may run
func (agent *Agent) ApproveTool(name string, args map[string]interface{}) (bool, error) {
	if agent.Approver == nil {
		return true, nil
	}
	return agent.Approver.Approve(name, args)
}

func failedResult(tool, msg string) models.Tool_Invocation_Result {
	return models.Tool_Invocation_Result{
		Tool_Name:      tool,
		Formatted_Text: "❌ " + msg,
		Error_Message:  msg,
	}
}
