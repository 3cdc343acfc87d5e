package agentflow

import (
	"context"

	"github.com/randalmurphal/agentflow/prompt"
	"github.com/randalmurphal/agentflow/transcript"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// These helpers inject engine services into context.Context so graph nodes
// can reach them without package-level state.

// serviceContextKey is a private type for context keys to avoid collisions
type serviceContextKey string

// Context keys for engine services
const (
	agentServiceKey      serviceContextKey = "agentflow.agent"
	promptServiceKey     serviceContextKey = "agentflow.prompts"
	transcriptServiceKey serviceContextKey = "agentflow.transcripts"
)

// WithAgent adds an Agent to the context.
func WithAgent(ctx context.Context, agent Agent) context.Context {
	return context.WithValue(ctx, agentServiceKey, agent)
}

// AgentFromContext extracts the Agent from context.
// Returns nil if no agent is configured.
func AgentFromContext(ctx context.Context) Agent {
	if agent, ok := ctx.Value(agentServiceKey).(Agent); ok {
		return agent
	}
	return nil
}

// MustAgentFromContext extracts the Agent or panics.
func MustAgentFromContext(ctx context.Context) Agent {
	agent := AgentFromContext(ctx)
	if agent == nil {
		panic("agentflow: Agent not found in context")
	}
	return agent
}

// WithPromptLoader adds a prompt loader to the context.
func WithPromptLoader(ctx context.Context, loader *prompt.Loader) context.Context {
	return context.WithValue(ctx, promptServiceKey, loader)
}

// PromptLoaderFromContext extracts the prompt loader from context.
// Returns nil if no loader is configured.
func PromptLoaderFromContext(ctx context.Context) *prompt.Loader {
	if loader, ok := ctx.Value(promptServiceKey).(*prompt.Loader); ok {
		return loader
	}
	return nil
}

// WithTranscriptManager adds a transcript manager to the context.
func WithTranscriptManager(ctx context.Context, mgr transcript.Manager) context.Context {
	return context.WithValue(ctx, transcriptServiceKey, mgr)
}

// TranscriptManagerFromContext extracts the transcript manager from context.
// Returns nil if no manager is configured.
func TranscriptManagerFromContext(ctx context.Context) transcript.Manager {
	if mgr, ok := ctx.Value(transcriptServiceKey).(transcript.Manager); ok {
		return mgr
	}
	return nil
}
