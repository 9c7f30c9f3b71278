package terrachat

import (
	"log"
	"sync"
)

// ToolApprover decides whether a model-requested tool call may run.
// Operators can switch tools off at runtime, e.g. while an upstream is down.
type ToolApprover struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

func NewToolApprover(disabled ...string) *ToolApprover {
	a := &ToolApprover{disabled: map[string]bool{}}
	for _, name := range disabled {
		if name != "" {
			a.disabled[name] = true
		}
	}
	return a
}

func (a *ToolApprover) Disable(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disabled[name] = true
}

func (a *ToolApprover) Enable(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.disabled, name)
}

func (a *ToolApprover) Disabled(name string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.disabled[name]
}

// Approve returns false for disabled tools; everything else is auto-approved.
func (a *ToolApprover) Approve(toolName string, toolArgs map[string]interface{}) (bool, error) {
	if a.Disabled(toolName) {
		log.Printf("Denying disabled tool: %s", toolName)
		return false, nil
	}
	return true, nil
}
