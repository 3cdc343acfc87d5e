package agentflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/randalmurphal/agentflow/task"
)

// =============================================================================
// Tool Agent
// =============================================================================

// ToolInvoker is the surface of an MCP hub the tool agent needs: the tool
// catalog and the ability to invoke one tool.
type ToolInvoker interface {
	Tools() []mcp.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// DefaultMaxToolCalls bounds the decide/call/observe loop per task.
const DefaultMaxToolCalls = 5

// ToolAgent composes a completion collaborator with an MCP tool hub to form
// a full Agent. Completions pass straight through; task execution runs a
// bounded loop where the model decides between calling a tool and finishing.
type ToolAgent struct {
	completer Completer
	invoker   ToolInvoker
	logger    *slog.Logger
	maxCalls  int
}

var _ Agent = (*ToolAgent)(nil)

// ToolAgentOption configures a ToolAgent.
type ToolAgentOption func(*ToolAgent)

// WithToolAgentLogger sets the structured logger.
func WithToolAgentLogger(logger *slog.Logger) ToolAgentOption {
	return func(a *ToolAgent) { a.logger = logger }
}

// WithMaxToolCalls bounds tool invocations per task. Values below 1 keep
// the default.
func WithMaxToolCalls(n int) ToolAgentOption {
	return func(a *ToolAgent) {
		if n >= 1 {
			a.maxCalls = n
		}
	}
}

// NewToolAgent creates an agent that answers completions through completer
// and executes tasks through the invoker's tools.
func NewToolAgent(completer Completer, invoker ToolInvoker, opts ...ToolAgentOption) *ToolAgent {
	a := &ToolAgent{
		completer: completer,
		invoker:   invoker,
		logger:    slog.Default(),
		maxCalls:  DefaultMaxToolCalls,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GenerateResponse implements Completer by delegation.
func (a *ToolAgent) GenerateResponse(ctx context.Context, req CompletionRequest, stream StreamFunc) (*Completion, error) {
	return a.completer.GenerateResponse(ctx, req, stream)
}

// toolDecision is the JSON verdict the model returns each loop iteration.
type toolDecision struct {
	Action    string         `json:"action"` // "call_tool" or "finish"
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Response  string         `json:"response,omitempty"`
}

// ExecuteTask implements ToolExecutor. Each iteration the model either picks
// a tool to call or finishes with a final response; observations from tool
// calls feed the next iteration. The loop is bounded by maxCalls, after
// which the model is asked to wrap up from what it has.
func (a *ToolAgent) ExecuteTask(ctx context.Context, description string) (*ToolResult, error) {
	catalog := a.renderCatalog()
	if catalog == "" {
		// No tools available; answer the task as a plain completion.
		result, err := a.completer.GenerateResponse(ctx, CompletionRequest{
			Task:   task.Execute,
			Prompt: description,
		}, nil)
		if err != nil {
			return nil, err
		}
		return &ToolResult{Response: result.Text}, nil
	}

	var observations []string
	var usedTools []string

	for call := 0; call < a.maxCalls; call++ {
		result, err := a.completer.GenerateResponse(ctx, CompletionRequest{
			Task:   task.Execute,
			Prompt: a.renderLoopPrompt(description, catalog, observations),
		}, nil)
		if err != nil {
			return nil, err
		}

		decision := parseToolDecision(result.Text)
		if decision == nil || decision.Action != "call_tool" || decision.Tool == "" {
			// Anything that is not a well-formed tool call ends the loop.
			response := strings.TrimSpace(result.Text)
			if decision != nil && decision.Response != "" {
				response = decision.Response
			}
			return &ToolResult{Response: response, UsedTools: usedTools}, nil
		}

		a.logger.Debug("tool call requested", "tool", decision.Tool)
		output, err := a.invoker.CallTool(ctx, decision.Tool, decision.Arguments)
		if err != nil {
			// The model sees the failure and can route around it.
			output = fmt.Sprintf("error: %v", err)
		} else {
			usedTools = append(usedTools, decision.Tool)
		}
		observations = append(observations,
			fmt.Sprintf("Tool %s returned:\n%s", decision.Tool, output))
	}

	// Budget exhausted; ask for a final answer from the observations.
	result, err := a.completer.GenerateResponse(ctx, CompletionRequest{
		Task: task.Summarize,
		Prompt: fmt.Sprintf(
			"Task:\n%s\n\nObservations so far:\n%s\n\nNo more tool calls are available. Give the final result now.",
			description, strings.Join(observations, "\n\n")),
	}, nil)
	if err != nil {
		return nil, err
	}
	return &ToolResult{Response: result.Text, UsedTools: usedTools}, nil
}

// renderCatalog lists the available tools, one per line.
func (a *ToolAgent) renderCatalog() string {
	tools := a.invoker.Tools()
	if len(tools) == 0 {
		return ""
	}

	var b strings.Builder
	for _, tool := range tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", tool.Name, tool.Description))
	}
	return strings.TrimSpace(b.String())
}

func (a *ToolAgent) renderLoopPrompt(description, catalog string, observations []string) string {
	var b strings.Builder
	b.WriteString("Carry out this task:\n")
	b.WriteString(description)
	b.WriteString("\n\nAvailable tools:\n")
	b.WriteString(catalog)
	if len(observations) > 0 {
		b.WriteString("\n\nObservations from previous tool calls:\n")
		b.WriteString(strings.Join(observations, "\n\n"))
	}
	b.WriteString("\n\nRespond with a JSON object only. To call a tool:\n")
	b.WriteString(`{"action": "call_tool", "tool": "<name>", "arguments": {...}}`)
	b.WriteString("\nWhen the task is done:\n")
	b.WriteString(`{"action": "finish", "response": "<final result>"}`)
	return b.String()
}

// parseToolDecision extracts the decision JSON from model output. Returns
// nil when no decision can be decoded.
func parseToolDecision(text string) *toolDecision {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}

	var decision toolDecision
	if err := json.Unmarshal([]byte(text[start:end+1]), &decision); err != nil {
		return nil
	}
	if decision.Action == "" {
		return nil
	}
	return &decision
}
