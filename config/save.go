package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveGlobal writes a key to ~/.config/agentflow/config.yaml, creating the
// file if needed.
func SaveGlobal(key, value string) error {
	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	return saveKey(path, key, value, 0o600)
}

// SaveLocal writes a key to .agentflow.yaml in the given git root. The file
// is meant to be committed, so it stays world-readable.
func SaveLocal(gitRoot, key, value string) error {
	if gitRoot == "" {
		return fmt.Errorf("git root not found")
	}
	return saveKey(filepath.Join(gitRoot, localConfigName), key, value, 0o644)
}

// DeleteGlobalKey removes a key from the global config file. Deleting a key
// that is not set is not an error.
func DeleteGlobalKey(key string) error {
	path, err := globalConfigPath()
	if err != nil {
		return err
	}
	return deleteKey(path, key)
}

func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", globalConfigDir, "config.yaml"), nil
}

func saveKey(path, key, value string, mode os.FileMode) error {
	if !knownKey(key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s",
			key, strings.Join(settingsKeys, ", "))
	}

	// A malformed existing file is replaced rather than refused.
	var existing map[string]any
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &existing)
	}
	if existing == nil {
		existing = make(map[string]any)
	}

	existing[key] = parseValue(value)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}

func deleteKey(path, key string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil // nothing to delete
	}

	var existing map[string]any
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil
	}

	delete(existing, key)

	data, err = yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// parseValue keeps booleans typed in the yaml output.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
