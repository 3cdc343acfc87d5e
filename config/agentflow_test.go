package config

import (
	"testing"
	"time"
)

func TestDefaultSettings(t *testing.T) {
	t.Setenv("HOME", t.TempDir()) // ignore any real user config
	resolver := NewEngineResolver()
	settings := EngineSettings(resolver.Resolve())

	if settings.ClaudeBinary != "claude" {
		t.Errorf("ClaudeBinary = %q, want claude", settings.ClaudeBinary)
	}
	if settings.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want 10", settings.MaxIterations)
	}
	if settings.MaxToolCalls != 5 {
		t.Errorf("MaxToolCalls = %d, want 5", settings.MaxToolCalls)
	}
	if settings.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", settings.Timeout)
	}
	if settings.TranscriptDir != ".agentflow" {
		t.Errorf("TranscriptDir = %q, want .agentflow", settings.TranscriptDir)
	}
	if settings.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", settings.LogLevel)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGENTFLOW_MAX_ITERATIONS", "25")
	t.Setenv("AGENTFLOW_TIMEOUT", "90s")
	t.Setenv("AGENTFLOW_NO_COLOR", "true")

	settings := EngineSettings(NewEngineResolver().Resolve())

	if settings.MaxIterations != 25 {
		t.Errorf("MaxIterations = %d, want 25", settings.MaxIterations)
	}
	if settings.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", settings.Timeout)
	}
	if !settings.NoColor {
		t.Error("NoColor should be true")
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGENTFLOW_MAX_ITERATIONS", "not-a-number")
	t.Setenv("AGENTFLOW_MAX_TOOL_CALLS", "-3")
	t.Setenv("AGENTFLOW_TIMEOUT", "soon")

	settings := EngineSettings(NewEngineResolver().Resolve())

	if settings.MaxIterations != 10 {
		t.Errorf("MaxIterations = %d, want default 10", settings.MaxIterations)
	}
	if settings.MaxToolCalls != 5 {
		t.Errorf("MaxToolCalls = %d, want default 5", settings.MaxToolCalls)
	}
	if settings.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want default 5m", settings.Timeout)
	}
}

func TestParseHelpers(t *testing.T) {
	if got := parseInt("", 7); got != 7 {
		t.Errorf("parseInt(empty) = %d, want 7", got)
	}
	if got := parseInt("0", 7); got != 7 {
		t.Errorf("parseInt(0) = %d, want fallback (minimum is 1)", got)
	}
	if got := parseInt("12", 7); got != 12 {
		t.Errorf("parseInt(12) = %d, want 12", got)
	}

	if got := parseDuration("", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(empty) = %v, want 1m", got)
	}
	if got := parseDuration("-5s", time.Minute); got != time.Minute {
		t.Errorf("parseDuration(-5s) = %v, want fallback", got)
	}
	if got := parseDuration("30s", time.Minute); got != 30*time.Second {
		t.Errorf("parseDuration(30s) = %v, want 30s", got)
	}
}
