package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a gate configuration from the given YAML file path.
// After parsing, defaults are applied to fields left unset.
func Load(path string) (*GateConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg GateConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a gate config in standard locations and loads the
// first one found. Search order: ./synapse.yaml, ./.synapse/config.yaml,
// ~/.synapse/config.yaml. When none exists the built-in defaults are used —
// a missing config must not prevent a verdict.
func LoadDefault() (*GateConfig, error) {
	candidates := []string{
		"synapse.yaml",
		filepath.Join(".synapse", "config.yaml"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".synapse", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &GateConfig{}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills unset fields with the conventional project layout.
func applyDefaults(cfg *GateConfig) {
	g := &cfg.Gate

	if g.TaskFile == "" {
		g.TaskFile = "tasks.md"
	}
	if g.SchemaFile == "" {
		g.SchemaFile = filepath.Join(".synapse", "task-schema.yaml")
	}
	if g.WorkingSetFile == "" {
		g.WorkingSetFile = filepath.Join(".synapse", "active-tasks.json")
	}
	if g.FailMode == "" {
		g.FailMode = FailModeBlock
	}
}
