// Package config handles the per-project config.yaml stored under the
// autom8 configuration root.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for <config-root>/<project>/config.yaml.
type Config struct {
	Version int           `yaml:"version"`
	Claude  ClaudeConfig  `yaml:"claude"`
	Run     RunConfig     `yaml:"run"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// ClaudeConfig controls how the assistant subprocess is invoked.
type ClaudeConfig struct {
	Bin            string `yaml:"bin"`             // executable name, default "claude"
	Model          string `yaml:"model"`           // e.g. "opus"
	PermissionMode string `yaml:"permission_mode"` // "bypass" | "mediated"
	AllowedTools   string `yaml:"allowed_tools"`
}

// RunConfig controls engine behaviour.
type RunConfig struct {
	ReviewEnabled       bool   `yaml:"review_enabled"`
	MaxReviewIterations int    `yaml:"max_review_iterations"`
	AutoPR              bool   `yaml:"auto_pr"`
	PRBase              string `yaml:"pr_base"`
	PRDraft             bool   `yaml:"pr_draft"`
	BranchPrefix        string `yaml:"branch_prefix"`
	CommitPrefix        string `yaml:"commit_prefix"`
}

// MonitorConfig controls the terminal dashboard.
type MonitorConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

const configFile = "config.yaml"

// ReadConfig reads config.yaml from the project's config directory.
// Returns DefaultConfig if the file does not exist.
func ReadConfig(project string) (*Config, error) {
	dir, err := ProjectDir(project)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, configFile)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to the project's config directory, creating it
// if needed.
func WriteConfig(project string, cfg *Config) error {
	dir, err := ProjectDir(project)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Claude: ClaudeConfig{
			Bin:            "claude",
			Model:          "opus",
			PermissionMode: "bypass",
			AllowedTools:   "Read,Write,Edit,Bash,Grep,Glob",
		},
		Run: RunConfig{
			ReviewEnabled:       true,
			MaxReviewIterations: 3,
			AutoPR:              true,
			PRBase:              "main",
			BranchPrefix:        "autom8/",
		},
		Monitor: MonitorConfig{
			RefreshSeconds: 2,
		},
	}
}
