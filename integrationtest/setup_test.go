package integrationtest

import (
	"context"
	"sync"

	"github.com/randalmurphal/agentflow"
	"github.com/randalmurphal/agentflow/notify"
	llm "github.com/randalmurphal/llmkit/claude"
)

// mockResponses creates a MockClient with sequential responses.
func mockResponses(responses ...string) *llm.MockClient {
	return llm.NewMockClient("").WithResponses(responses...)
}

// composedAgent pairs the flowgraph-backed completer with a canned tool
// executor, giving the engine a full Agent without any external process.
type composedAgent struct {
	*agentflow.LLMCompleter

	mu      sync.Mutex
	results []*agentflow.ToolResult
	Tasks   []string
}

var _ agentflow.Agent = (*composedAgent)(nil)

// newComposedAgent wraps the mock client and queues tool results.
func newComposedAgent(client llm.Client, results ...*agentflow.ToolResult) *composedAgent {
	return &composedAgent{
		LLMCompleter: agentflow.WrapLLMClient(client),
		results:      results,
	}
}

func (a *composedAgent) ExecuteTask(ctx context.Context, description string) (*agentflow.ToolResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Tasks = append(a.Tasks, description)
	if len(a.results) == 0 {
		return &agentflow.ToolResult{Response: "Task completed."}, nil
	}

	result := a.results[0]
	if len(a.results) > 1 {
		a.results = a.results[1:]
	}
	return result, nil
}

// notificationCapture records notifications for assertions.
type notificationCapture struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *notificationCapture) Notify(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *notificationCapture) Events() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func (n *notificationCapture) Types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	types := make([]notify.EventType, len(n.events))
	for i, e := range n.events {
		types[i] = e.Type
	}
	return types
}
