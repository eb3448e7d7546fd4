package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a workflow configuration from the given YAML file
// path, then applies defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches standard locations and loads the first config found.
// Search order: ./gamesmith.yaml, ~/.gamesmith/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"gamesmith.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".gamesmith", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no gamesmith config found (searched: %v)", candidates)
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	w := &cfg.Workflow

	if w.LogLevel == "" {
		w.LogLevel = "info"
	}
	if w.KeepRuns == 0 {
		w.KeepRuns = 20
	}
	if home, err := os.UserHomeDir(); err == nil {
		if w.StateDir == "" {
			w.StateDir = filepath.Join(home, ".gamesmith", "runs")
		}
		if w.DBPath == "" {
			w.DBPath = filepath.Join(home, ".gamesmith", "gamesmith.db")
		}
	}

	if w.Agent.Timeout == "" {
		w.Agent.Timeout = "30m"
	}
	if w.QA.ServerCommand == "" {
		w.QA.ServerCommand = "npm"
		if len(w.QA.ServerArgs) == 0 {
			w.QA.ServerArgs = []string{"run", "dev"}
		}
	}
	if w.QA.Port == 0 {
		w.QA.Port = 3000
	}
	if w.QA.StartupTimeout == "" {
		w.QA.StartupTimeout = "60s"
	}
	if w.Approvals.Timeout == "" {
		w.Approvals.Timeout = "1h"
	}
}

// Duration parses a config duration field, falling back to def when the
// field is empty.
func Duration(field string, def time.Duration) time.Duration {
	if field == "" {
		return def
	}
	d, err := time.ParseDuration(field)
	if err != nil {
		return def
	}
	return d
}
