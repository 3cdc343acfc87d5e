package agentflow

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// Scripted Agent
// =============================================================================

// ScriptedAgent is an Agent driven by canned responses, for tests and dry
// runs. Completions and task results are consumed in FIFO order; when a
// queue runs dry the last response repeats.
type ScriptedAgent struct {
	mu          sync.Mutex
	completions []string
	taskResults []*ToolResult

	// Err, when set, is returned by every call.
	Err error

	// Prompts records every completion prompt received, in order.
	Prompts []string
	// Tasks records every task description received, in order.
	Tasks []string
}

var _ Agent = (*ScriptedAgent)(nil)

// NewScriptedAgent creates an agent that replies with the given
// completions in order.
func NewScriptedAgent(completions ...string) *ScriptedAgent {
	return &ScriptedAgent{completions: completions}
}

// WithTaskResults queues results for ExecuteTask calls.
func (a *ScriptedAgent) WithTaskResults(results ...*ToolResult) *ScriptedAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.taskResults = append(a.taskResults, results...)
	return a
}

// QueueCompletion appends further completion responses.
func (a *ScriptedAgent) QueueCompletion(responses ...string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.completions = append(a.completions, responses...)
}

// GenerateResponse implements Completer.
func (a *ScriptedAgent) GenerateResponse(ctx context.Context, req CompletionRequest, stream StreamFunc) (*Completion, error) {
	a.mu.Lock()
	if a.Err != nil {
		err := a.Err
		a.mu.Unlock()
		return nil, err
	}

	a.Prompts = append(a.Prompts, req.Prompt)
	if len(a.completions) == 0 {
		a.mu.Unlock()
		return nil, fmt.Errorf("scripted agent: no completion queued for prompt %q", truncate(req.Prompt, 60))
	}

	text := a.completions[0]
	if len(a.completions) > 1 {
		a.completions = a.completions[1:]
	}
	a.mu.Unlock()

	if stream != nil {
		stream(text)
	}
	return &Completion{Text: text, TokensIn: len(req.Prompt) / 4, TokensOut: len(text) / 4}, nil
}

// ExecuteTask implements ToolExecutor.
func (a *ScriptedAgent) ExecuteTask(ctx context.Context, description string) (*ToolResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Err != nil {
		return nil, a.Err
	}

	a.Tasks = append(a.Tasks, description)
	if len(a.taskResults) == 0 {
		return &ToolResult{Response: "Task completed: " + truncate(description, 60)}, nil
	}

	result := a.taskResults[0]
	if len(a.taskResults) > 1 {
		a.taskResults = a.taskResults[1:]
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
