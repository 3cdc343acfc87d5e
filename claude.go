package agentflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/agentflow/task"
)

// Claude CLI errors
var (
	// ErrClaudeNotFound indicates the claude CLI binary was not found.
	ErrClaudeNotFound = errors.New("claude CLI not found")

	// ErrClaudeTimeout indicates the claude CLI execution timed out.
	ErrClaudeTimeout = errors.New("claude CLI timed out")

	// ErrClaudeFailed indicates the claude CLI exited with an error.
	ErrClaudeFailed = errors.New("claude CLI failed")
)

// DefaultAllowedTools is the tool set granted to ExecuteTask when the
// config does not name one.
var DefaultAllowedTools = []string{"Read", "Write", "Edit", "Bash", "Grep", "Glob"}

// ClaudeCLI wraps the claude CLI binary as the engine's agent: completions
// run with tools disabled, task execution runs with the configured tool set.
type ClaudeCLI struct {
	binaryPath   string
	workDir      string
	timeout      time.Duration
	maxTurns     int
	allowedTools []string
}

// ClaudeConfig configures the Claude CLI wrapper. Zero values take the
// defaults noted per field.
type ClaudeConfig struct {
	BinaryPath   string        // claude binary ("claude")
	WorkDir      string        // working directory (process cwd)
	Timeout      time.Duration // per-run timeout (5m)
	MaxTurns     int           // conversation turn cap (10)
	AllowedTools []string      // ExecuteTask tool set (DefaultAllowedTools)
}

// NewClaudeCLI creates the wrapper, verifying the binary is on PATH.
func NewClaudeCLI(cfg ClaudeConfig) (*ClaudeCLI, error) {
	c := &ClaudeCLI{
		binaryPath:   cfg.BinaryPath,
		workDir:      cfg.WorkDir,
		timeout:      cfg.Timeout,
		maxTurns:     cfg.MaxTurns,
		allowedTools: cfg.AllowedTools,
	}
	if c.binaryPath == "" {
		c.binaryPath = "claude"
	}
	if c.timeout == 0 {
		c.timeout = 5 * time.Minute
	}
	if c.maxTurns == 0 {
		c.maxTurns = 10
	}
	if len(c.allowedTools) == 0 {
		c.allowedTools = DefaultAllowedTools
	}

	if _, err := exec.LookPath(c.binaryPath); err != nil {
		return nil, ErrClaudeNotFound
	}
	return c, nil
}

var _ Agent = (*ClaudeCLI)(nil)

// GenerateResponse implements Completer. The model is selected from the
// request's task type. The CLI's JSON output mode is not incremental, so a
// non-nil stream receives the full text once.
func (c *ClaudeCLI) GenerateResponse(ctx context.Context, req CompletionRequest, stream StreamFunc) (*Completion, error) {
	opts := []RunOption{
		WithModel(string(task.SelectModel(req.Task))),
		WithMaxTurns(1),
	}
	if req.System != "" {
		opts = append(opts, WithSystemPrompt(req.System))
	}

	result, err := c.Run(ctx, req.Prompt, opts...)
	if err != nil {
		return nil, err
	}

	if stream != nil && result.Output != "" {
		stream(result.Output)
	}

	return &Completion{
		Text:      result.Output,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
	}, nil
}

// ExecuteTask implements ToolExecutor. The description is handed to the CLI
// with the configured tool set enabled.
func (c *ClaudeCLI) ExecuteTask(ctx context.Context, description string) (*ToolResult, error) {
	result, err := c.Run(ctx, description,
		WithModel(string(task.SelectModel(task.Execute))),
		WithAllowedTools(c.allowedTools...))
	if err != nil {
		return nil, err
	}

	return &ToolResult{
		Response:  result.Output,
		UsedTools: result.ToolsUsed,
	}, nil
}

// RunResult is the outcome of one CLI invocation.
type RunResult struct {
	Output    string
	TokensIn  int
	TokensOut int
	SessionID string
	ToolsUsed []string
	Duration  time.Duration
	ExitCode  int
}

// runConfig holds per-invocation settings assembled from RunOptions.
type runConfig struct {
	systemPrompt    string
	workDir         string
	maxTurns        int
	timeout         time.Duration
	model           string
	allowedTools    []string
	disallowedTools []string
	sessionID       string
}

// RunOption configures a Run invocation.
type RunOption func(*runConfig)

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) RunOption {
	return func(cfg *runConfig) { cfg.systemPrompt = prompt }
}

// WithWorkDir sets the working directory for this run.
func WithWorkDir(dir string) RunOption {
	return func(cfg *runConfig) { cfg.workDir = dir }
}

// WithMaxTurns limits the number of conversation turns.
func WithMaxTurns(n int) RunOption {
	return func(cfg *runConfig) { cfg.maxTurns = n }
}

// WithClaudeTimeout overrides the wrapper's default timeout.
func WithClaudeTimeout(d time.Duration) RunOption {
	return func(cfg *runConfig) { cfg.timeout = d }
}

// WithModel names the model for this run.
func WithModel(model string) RunOption {
	return func(cfg *runConfig) { cfg.model = model }
}

// WithAllowedTools grants tools for this run.
func WithAllowedTools(tools ...string) RunOption {
	return func(cfg *runConfig) { cfg.allowedTools = append(cfg.allowedTools, tools...) }
}

// WithDisallowedTools blocks tools for this run.
func WithDisallowedTools(tools ...string) RunOption {
	return func(cfg *runConfig) { cfg.disallowedTools = append(cfg.disallowedTools, tools...) }
}

// WithSession resumes a previous CLI session.
func WithSession(sessionID string) RunOption {
	return func(cfg *runConfig) { cfg.sessionID = sessionID }
}

// Run invokes the claude CLI once with the prompt and options, parsing its
// JSON output. Raw output is returned as-is when parsing fails, since the
// CLI can emit plain text for some failure modes.
func (c *ClaudeCLI) Run(ctx context.Context, prompt string, opts ...RunOption) (*RunResult, error) {
	cfg := &runConfig{
		timeout:  c.timeout,
		maxTurns: c.maxTurns,
		workDir:  c.workDir,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binaryPath, c.buildArgs(cfg, prompt)...)
	if cfg.workDir != "" {
		cmd.Dir = cfg.workDir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if runErr != nil {
		return nil, c.classifyRunError(ctx, cfg, stderr.String(), runErr)
	}

	result, err := parseClaudeOutput(stdout.Bytes())
	if err != nil {
		result = &RunResult{Output: strings.TrimSpace(stdout.String())}
	}
	result.Duration = elapsed
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result, nil
}

func (c *ClaudeCLI) classifyRunError(ctx context.Context, cfg *runConfig, stderr string, runErr error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: after %v", ErrClaudeTimeout, cfg.timeout)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if msg := strings.TrimSpace(stderr); msg != "" {
		return fmt.Errorf("%w: %s", ErrClaudeFailed, msg)
	}
	return fmt.Errorf("%w: %v", ErrClaudeFailed, runErr)
}

// buildArgs assembles the CLI argument list. The prompt goes last via -p.
func (c *ClaudeCLI) buildArgs(cfg *runConfig, prompt string) []string {
	args := []string{"--print", "--output-format", "json"}

	if cfg.model != "" {
		args = append(args, "--model", cfg.model)
	}
	if cfg.systemPrompt != "" {
		args = append(args, "--system-prompt", cfg.systemPrompt)
	}
	if cfg.maxTurns > 0 {
		args = append(args, "--max-turns", strconv.Itoa(cfg.maxTurns))
	}
	if cfg.sessionID != "" {
		args = append(args, "--resume", cfg.sessionID)
	}
	for _, tool := range cfg.allowedTools {
		args = append(args, "--allowedTools", tool)
	}
	for _, tool := range cfg.disallowedTools {
		args = append(args, "--disallowedTools", tool)
	}

	return append(args, "-p", prompt)
}

// claudeJSONOutput mirrors the CLI's --output-format json shape. Token
// fields appear under two naming schemes depending on CLI version.
type claudeJSONOutput struct {
	Result       string   `json:"result"`
	TokensIn     int      `json:"tokens_in"`
	TokensOut    int      `json:"tokens_out"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	SessionID    string   `json:"session_id"`
	ToolsUsed    []string `json:"tools_used"`
}

// parseClaudeOutput extracts the JSON result, tolerating surrounding log
// noise by falling back to the outermost brace pair.
func parseClaudeOutput(data []byte) (*RunResult, error) {
	data = bytes.TrimSpace(data)

	var output claudeJSONOutput
	if err := json.Unmarshal(data, &output); err != nil {
		start := bytes.IndexByte(data, '{')
		end := bytes.LastIndexByte(data, '}')
		if start < 0 || end <= start {
			return nil, errors.New("no json found in output")
		}
		if err := json.Unmarshal(data[start:end+1], &output); err != nil {
			return nil, fmt.Errorf("parse json output: %w", err)
		}
	}

	result := &RunResult{
		Output:    output.Result,
		TokensIn:  output.TokensIn,
		TokensOut: output.TokensOut,
		SessionID: output.SessionID,
		ToolsUsed: output.ToolsUsed,
	}
	if result.TokensIn == 0 {
		result.TokensIn = output.InputTokens
	}
	if result.TokensOut == 0 {
		result.TokensOut = output.OutputTokens
	}
	return result, nil
}

// BinaryPath returns the path to the claude binary.
func (c *ClaudeCLI) BinaryPath() string { return c.binaryPath }

// DefaultTimeout returns the default per-run timeout.
func (c *ClaudeCLI) DefaultTimeout() time.Duration { return c.timeout }

// DefaultMaxTurns returns the default conversation turn cap.
func (c *ClaudeCLI) DefaultMaxTurns() int { return c.maxTurns }
