package mcptool

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestEmptyHub(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	if got := hub.Servers(); len(got) != 0 {
		t.Errorf("Servers = %v, want empty", got)
	}
	if got := hub.Tools(); len(got) != 0 {
		t.Errorf("Tools = %v, want empty", got)
	}
	if _, ok := hub.FindTool("anything"); ok {
		t.Error("FindTool on empty hub should report not found")
	}
}

func TestCallToolUnknown(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	_, err := hub.CallTool(context.Background(), "missing", nil)
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRemoveServerUnknown(t *testing.T) {
	hub := NewHub()

	if err := hub.RemoveServer("ghost"); !errors.Is(err, ErrServerNotFound) {
		t.Errorf("err = %v, want ErrServerNotFound", err)
	}
}

func TestAddServerBadCommand(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	err := hub.AddServer(context.Background(), "bad", ServerConfig{
		Command: "/nonexistent/mcp-server",
	})
	if err == nil {
		t.Error("expected error for nonexistent server binary")
	}
	if len(hub.Servers()) != 0 {
		t.Error("failed AddServer must not register a connection")
	}
}

func TestTextContent(t *testing.T) {
	tests := []struct {
		name   string
		result *mcp.CallToolResult
		want   string
	}{
		{"nil result", nil, ""},
		{
			"single text part",
			&mcp.CallToolResult{Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "hello"},
			}},
			"hello",
		},
		{
			"multiple text parts joined",
			&mcp.CallToolResult{Content: []mcp.Content{
				mcp.TextContent{Type: "text", Text: "one"},
				mcp.TextContent{Type: "text", Text: "two"},
			}},
			"one\ntwo",
		},
		{
			"pointer text part",
			&mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Type: "text", Text: "ptr"},
			}},
			"ptr",
		},
		{
			"non-text parts ignored",
			&mcp.CallToolResult{Content: []mcp.Content{
				mcp.ImageContent{Type: "image"},
				mcp.TextContent{Type: "text", Text: "kept"},
			}},
			"kept",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textContent(tt.result); got != tt.want {
				t.Errorf("textContent = %q, want %q", got, tt.want)
			}
		})
	}
}
