package agentflow

import (
	"context"
	"strings"

	llm "github.com/randalmurphal/llmkit/claude"
	"github.com/randalmurphal/llmkit/model"

	"github.com/randalmurphal/agentflow/task"
)

// =============================================================================
// Flowgraph LLM Adapter
// =============================================================================

// LLMCompleter adapts flowgraph llm clients to the Completer interface,
// routing each call to the client for the task's model.
type LLMCompleter struct {
	clients  map[model.ModelName]llm.Client
	fallback llm.Client
}

var _ Completer = (*LLMCompleter)(nil)

// NewLLMCompleter builds one claude CLI client per model named in the
// default task mapping, all rooted at workdir.
func NewLLMCompleter(workdir string) *LLMCompleter {
	c := &LLMCompleter{
		clients: make(map[model.ModelName]llm.Client),
	}

	for _, name := range task.DefaultModelMap {
		if _, ok := c.clients[name]; ok {
			continue
		}
		c.clients[name] = llm.NewClaudeCLI(
			llm.WithModel(string(name)),
			llm.WithWorkdir(workdir),
			llm.WithDangerouslySkipPermissions(), // Non-interactive mode for automation
		)
	}

	c.fallback = c.clients[model.ModelSonnet]
	return c
}

// WrapLLMClient adapts a single pre-built llm.Client; every task uses it
// regardless of tier. Useful for tests and fixed-model deployments.
func WrapLLMClient(client llm.Client) *LLMCompleter {
	return &LLMCompleter{fallback: client}
}

// GenerateResponse implements Completer. The flowgraph client does not
// stream, so a non-nil stream receives the full text once.
func (c *LLMCompleter) GenerateResponse(ctx context.Context, req CompletionRequest, stream StreamFunc) (*Completion, error) {
	client := c.clientFor(req.Task)

	result, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: req.System,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: req.Prompt}},
	})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(result.Content)
	if stream != nil && text != "" {
		stream(text)
	}

	return &Completion{
		Text:      text,
		TokensIn:  result.Usage.InputTokens,
		TokensOut: result.Usage.OutputTokens,
	}, nil
}

func (c *LLMCompleter) clientFor(t task.Type) llm.Client {
	if client, ok := c.clients[task.SelectModel(t)]; ok {
		return client
	}
	return c.fallback
}
