package agentflow

import (
	"context"
	"testing"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/agentflow/task"
)

func TestWrapLLMClient(t *testing.T) {
	mock := llm.NewMockClient("  padded response  ")
	completer := WrapLLMClient(mock)

	result, err := completer.GenerateResponse(context.Background(), CompletionRequest{
		Task:   task.Analyze,
		Prompt: "analyze this",
	}, nil)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if result.Text != "padded response" {
		t.Errorf("Text = %q, want trimmed response", result.Text)
	}
}

func TestWrapLLMClientPassesPrompt(t *testing.T) {
	var captured llm.CompletionRequest
	mock := llm.NewMockClient("").WithCompleteFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		captured = req
		return &llm.CompletionResponse{Content: "ok"}, nil
	})

	completer := WrapLLMClient(mock)
	_, err := completer.GenerateResponse(context.Background(), CompletionRequest{
		Task:   task.Plan,
		System: "be brief",
		Prompt: "plan the work",
	}, nil)
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}

	if captured.SystemPrompt != "be brief" {
		t.Errorf("SystemPrompt = %q", captured.SystemPrompt)
	}
	if len(captured.Messages) != 1 || captured.Messages[0].Content != "plan the work" {
		t.Errorf("Messages = %+v", captured.Messages)
	}
	if captured.Messages[0].Role != llm.RoleUser {
		t.Errorf("Role = %v, want user", captured.Messages[0].Role)
	}
}

func TestWrapLLMClientStreamsOnce(t *testing.T) {
	mock := llm.NewMockClient("chunked text")
	completer := WrapLLMClient(mock)

	var chunks []string
	_, err := completer.GenerateResponse(context.Background(), CompletionRequest{
		Task:   task.Gather,
		Prompt: "gather",
	}, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("GenerateResponse: %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "chunked text" {
		t.Errorf("chunks = %v", chunks)
	}
}
