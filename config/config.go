package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config file locations and the environment prefix.
const (
	envPrefix       = "AGENTFLOW_"
	globalConfigDir = "agentflow"
	localConfigName = ".agentflow.yaml"
)

// Source indicates which layer a configuration value came from.
type Source string

const (
	SourceDefault Source = "default" // built-in default
	SourceGlobal  Source = "global"  // ~/.config/agentflow/config.yaml
	SourceLocal   Source = "local"   // .agentflow.yaml in the git root
	SourceEnv     Source = "env"     // AGENTFLOW_-prefixed environment variable
	SourceFlag    Source = "flag"    // command-line override
)

// Resolver merges the engine's configuration layers. Precedence, lowest to
// highest: built-in defaults, ~/.config/agentflow/config.yaml, .agentflow.yaml
// in the git root, AGENTFLOW_-prefixed environment variables.
type Resolver struct {
	globalPath string
	localPath  string
	gitRoot    string
	errWriter  io.Writer

	// Warnings collects non-fatal issues found during resolution, such as
	// unparseable config files.
	Warnings []string
}

// NewEngineResolver creates a resolver wired to the engine's standard
// config locations.
func NewEngineResolver() *Resolver {
	r := &Resolver{errWriter: os.Stderr}

	if root := findGitRoot("."); root != "" {
		r.gitRoot = root
		r.localPath = filepath.Join(root, localConfigName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", globalConfigDir, "config.yaml")
	}

	return r
}

// newResolverWithPaths pins the config file locations, for tests.
func newResolverWithPaths(globalPath, localPath string) *Resolver {
	return &Resolver{globalPath: globalPath, localPath: localPath, errWriter: io.Discard}
}

// GitRoot returns the detected git root directory, if any.
func (r *Resolver) GitRoot() string { return r.gitRoot }

// GlobalPath returns the path of the global config file.
func (r *Resolver) GlobalPath() string { return r.globalPath }

// LocalPath returns the path of the local config file.
func (r *Resolver) LocalPath() string { return r.localPath }

// Resolved holds the merged configuration with per-key source tracking.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for a key, or empty string when unset.
func (c *Resolved) Get(key string) string { return c.values[key] }

// Source returns where a key's value came from.
func (c *Resolved) Source(key string) Source { return c.sources[key] }

// GetWithSource returns a value together with its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	return c.values[key], c.sources[key]
}

// All returns a copy of every resolved key-value pair.
func (c *Resolved) All() map[string]string {
	result := make(map[string]string, len(c.values))
	for k, v := range c.values {
		result[k] = v
	}
	return result
}

// Resolve merges all layers into a final configuration.
func (r *Resolver) Resolve() *Resolved {
	cfg := &Resolved{
		values:  make(map[string]string),
		sources: make(map[string]Source),
	}

	for key, value := range defaultSettings() {
		cfg.values[key] = value
		cfg.sources[key] = SourceDefault
	}

	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)
	r.applyEnv(cfg)

	return cfg
}

// ResolveWithFlags resolves the layers and applies command-line flag values
// on top. Empty flag values are ignored.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	cfg := r.Resolve()
	for key, value := range flags {
		if value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceFlag
		}
	}
	return cfg
}

// applyFile overlays one yaml config file. Missing files are fine; keys the
// engine does not understand are skipped.
func (r *Resolver) applyFile(cfg *Resolved, path string, source Source) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}

	for key, value := range parsed {
		if !knownKey(key) {
			continue
		}
		if s := toString(value); s != "" {
			cfg.values[key] = s
			cfg.sources[key] = source
		}
	}
}

func (r *Resolver) applyEnv(cfg *Resolved) {
	for _, key := range settingsKeys {
		envKey := envPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if value := os.Getenv(envKey); value != "" {
			cfg.values[key] = value
			cfg.sources[key] = SourceEnv
		}
	}

	// The standard NO_COLOR variable always wins for color output.
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.values[KeyNoColor] = "true"
		cfg.sources[KeyNoColor] = SourceEnv
	}
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

func knownKey(key string) bool {
	for _, k := range settingsKeys {
		if k == key {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		return ""
	}
}

// findGitRoot walks up from startDir looking for a .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
