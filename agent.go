package agentflow

import (
	"context"

	"github.com/randalmurphal/agentflow/task"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================
// The engine composes with two external, higher-latency collaborators: a
// language-model completion service and a tool-invocation service. Both are
// treated as stateless request/response services; the engine never holds a
// connection open across turns.

// StreamFunc receives partial output tokens as a completion is produced.
// A nil StreamFunc disables streaming.
type StreamFunc func(token string)

// CompletionRequest describes one completion call.
type CompletionRequest struct {
	// Task selects the model tier appropriate for this call.
	Task task.Type

	// System is an optional system prompt.
	System string

	// Prompt is the user-role prompt text.
	Prompt string
}

// Completion is the result of one completion call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// ToolResult is the outcome of executing a task through the tool service.
type ToolResult struct {
	Response  string
	UsedTools []string
}

// Completer is the language-model completion collaborator.
type Completer interface {
	// GenerateResponse produces a completion, optionally streaming partial
	// tokens through stream when it is non-nil.
	GenerateResponse(ctx context.Context, req CompletionRequest, stream StreamFunc) (*Completion, error)
}

// ToolExecutor is the tool-invocation collaborator. The engine treats the
// execution as opaque: it hands over a task description and records the
// response.
type ToolExecutor interface {
	ExecuteTask(ctx context.Context, description string) (*ToolResult, error)
}

// Agent bundles the two collaborator capabilities the engine needs.
type Agent interface {
	Completer
	ToolExecutor
}
