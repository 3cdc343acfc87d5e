package config

import (
	"strconv"
	"time"
)

// =============================================================================
// Workflow Engine Settings
// =============================================================================
// Typed view over the generic resolver for the workflow engine. Every key can
// be set in ~/.config/agentflow/config.yaml, .agentflow.yaml in the git root,
// or an AGENTFLOW_-prefixed environment variable.

// Configuration keys.
const (
	KeyClaudeBinary  = "claude_binary"
	KeyWorkDir       = "work_dir"
	KeyMaxIterations = "max_iterations"
	KeyMaxToolCalls  = "max_tool_calls"
	KeyTimeout       = "timeout"
	KeyTranscriptDir = "transcript_dir"
	KeyPromptDir     = "prompt_dir"
	KeySlackWebhook  = "slack_webhook"
	KeySlackChannel  = "slack_channel"
	KeyWebhookURL    = "webhook_url"
	KeyLogLevel      = "log_level"
	KeyNoColor       = "no_color"
)

// settingsKeys lists every key the engine understands, used for config
// file validation.
var settingsKeys = []string{
	KeyClaudeBinary,
	KeyWorkDir,
	KeyMaxIterations,
	KeyMaxToolCalls,
	KeyTimeout,
	KeyTranscriptDir,
	KeyPromptDir,
	KeySlackWebhook,
	KeySlackChannel,
	KeyWebhookURL,
	KeyLogLevel,
	KeyNoColor,
}

// defaultSettings provides built-in defaults for every key.
func defaultSettings() map[string]string {
	return map[string]string{
		KeyClaudeBinary:  "claude",
		KeyMaxIterations: "10",
		KeyMaxToolCalls:  "5",
		KeyTimeout:       "5m",
		KeyTranscriptDir: ".agentflow",
		KeyLogLevel:      "info",
	}
}

// Settings is the typed form of the resolved engine configuration.
type Settings struct {
	ClaudeBinary  string
	WorkDir       string
	MaxIterations int
	MaxToolCalls  int
	Timeout       time.Duration
	TranscriptDir string
	PromptDir     string
	SlackWebhook  string
	SlackChannel  string
	WebhookURL    string
	LogLevel      string
	NoColor       bool
}

// EngineSettings converts resolved values into typed settings. Values that
// fail to parse fall back to the built-in defaults.
func EngineSettings(resolved *Resolved) Settings {
	s := Settings{
		ClaudeBinary:  resolved.Get(KeyClaudeBinary),
		WorkDir:       resolved.Get(KeyWorkDir),
		MaxIterations: parseInt(resolved.Get(KeyMaxIterations), 10),
		MaxToolCalls:  parseInt(resolved.Get(KeyMaxToolCalls), 5),
		Timeout:       parseDuration(resolved.Get(KeyTimeout), 5*time.Minute),
		TranscriptDir: resolved.Get(KeyTranscriptDir),
		PromptDir:     resolved.Get(KeyPromptDir),
		SlackWebhook:  resolved.Get(KeySlackWebhook),
		SlackChannel:  resolved.Get(KeySlackChannel),
		WebhookURL:    resolved.Get(KeyWebhookURL),
		LogLevel:      resolved.Get(KeyLogLevel),
		NoColor:       resolved.Get(KeyNoColor) == "true",
	}
	return s
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
