// Package config resolves the workflow engine's layered configuration.
//
// Values merge with clear precedence, lowest to highest:
//  1. Built-in defaults
//  2. Global config (~/.config/agentflow/config.yaml)
//  3. Local config (.agentflow.yaml in the git root)
//  4. Environment variables (AGENTFLOW_MAX_ITERATIONS, ...)
//
// Command-line flags can be layered on top with ResolveWithFlags.
//
// # Basic Usage
//
//	settings := config.EngineSettings(config.NewEngineResolver().Resolve())
//	fmt.Println(settings.ClaudeBinary)  // "claude"
//	fmt.Println(settings.MaxIterations) // 10
//
// Each resolved value tracks its source:
//
//	cfg := config.NewEngineResolver().Resolve()
//	value, source := cfg.GetWithSource(config.KeyTimeout)
//
// SaveGlobal and SaveLocal persist individual keys back to the config
// files; unknown keys are rejected with the list of valid ones.
//
// The standard NO_COLOR environment variable is honored regardless of the
// AGENTFLOW_ prefix.
package config
