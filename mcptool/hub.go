package mcptool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Hub errors
var (
	// ErrServerExists indicates a server with that name is already connected.
	ErrServerExists = errors.New("mcp server already connected")

	// ErrServerNotFound indicates no connected server has that name.
	ErrServerNotFound = errors.New("mcp server not found")

	// ErrToolNotFound indicates no connected server exposes that tool.
	ErrToolNotFound = errors.New("tool not found")
)

// protocolVersion is the MCP protocol revision spoken during initialize.
const protocolVersion = "2024-11-05"

// ServerConfig describes how to launch one stdio MCP server.
type ServerConfig struct {
	Command string
	Args    []string
}

// connection is one live MCP server with its advertised tools.
type connection struct {
	name   string
	client *client.Client
	tools  []mcp.Tool
}

// Hub manages connections to multiple MCP servers and routes tool calls to
// whichever server advertises the requested tool.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*connection
	logger      *slog.Logger
	callTimeout time.Duration
	listTimeout time.Duration
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithCallTimeout bounds each tool invocation.
func WithCallTimeout(d time.Duration) HubOption {
	return func(h *Hub) { h.callTimeout = d }
}

// NewHub creates an empty hub. Servers are attached with AddServer.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		connections: make(map[string]*connection),
		logger:      slog.Default(),
		callTimeout: 60 * time.Second,
		listTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddServer launches the server process, performs the MCP handshake, and
// records the tools it advertises.
func (h *Hub) AddServer(ctx context.Context, name string, cfg ServerConfig) error {
	h.mu.RLock()
	_, exists := h.connections[name]
	h.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", ErrServerExists, name)
	}

	mcpClient, err := client.NewStdioMCPClient(cfg.Command, cfg.Args)
	if err != nil {
		return fmt.Errorf("create client for %s: %w", name, err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.Capabilities = mcp.ClientCapabilities{}
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentflow",
		Version: "1.0.0",
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initialize %s: %w", name, err)
	}

	listCtx, cancel := context.WithTimeout(ctx, h.listTimeout)
	defer cancel()

	var tools []mcp.Tool
	listResult, err := mcpClient.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		h.logger.Warn("tool listing failed", "server", name, "error", err)
	} else if listResult != nil {
		tools = listResult.Tools
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.connections[name]; exists {
		mcpClient.Close()
		return fmt.Errorf("%w: %s", ErrServerExists, name)
	}
	h.connections[name] = &connection{
		name:   name,
		client: mcpClient,
		tools:  tools,
	}

	h.logger.Info("mcp server connected", "server", name, "tools", len(tools))
	return nil
}

// RemoveServer disconnects and forgets the named server.
func (h *Hub) RemoveServer(name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.connections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrServerNotFound, name)
	}

	conn.client.Close()
	delete(h.connections, name)
	h.logger.Info("mcp server removed", "server", name)
	return nil
}

// Servers returns the names of all connected servers.
func (h *Hub) Servers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.connections))
	for name := range h.connections {
		names = append(names, name)
	}
	return names
}

// Tools returns a flat list of every tool advertised by every server.
func (h *Hub) Tools() []mcp.Tool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var all []mcp.Tool
	for _, conn := range h.connections {
		all = append(all, conn.tools...)
	}
	return all
}

// FindTool reports whether any server advertises the named tool.
func (h *Hub) FindTool(name string) (mcp.Tool, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections {
		for _, tool := range conn.tools {
			if tool.Name == name {
				return tool, true
			}
		}
	}
	return mcp.Tool{}, false
}

// CallTool invokes the named tool on whichever server advertises it and
// returns the concatenated text content of the result.
func (h *Hub) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	h.mu.RLock()
	var target *connection
	for _, conn := range h.connections {
		for _, tool := range conn.tools {
			if tool.Name == name {
				target = conn
				break
			}
		}
		if target != nil {
			break
		}
	}
	h.mu.RUnlock()

	if target == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	result, err := target.client.CallTool(callCtx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("call %s on %s: %w", name, target.name, err)
	}

	text := textContent(result)
	if result.IsError {
		return "", fmt.Errorf("tool %s reported an error: %s", name, text)
	}
	return text, nil
}

// textContent flattens the text parts of a tool result.
func textContent(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}

	var parts []string
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Close disconnects every server.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, conn := range h.connections {
		conn.client.Close()
		delete(h.connections, name)
	}
	return nil
}
