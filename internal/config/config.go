// Package config handles configuration loading and config file resolution.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// BackendConfig names the external programs taskman drives.
type BackendConfig struct {
	JJ  string `yaml:"jj"`
	Git string `yaml:"git"`
}

// RepositoryConfig describes the on-disk layout and the shared branch.
type RepositoryConfig struct {
	StateDir     string `yaml:"state_dir"`     // agent-state directory, e.g. .agent-files
	WorktreesDir string `yaml:"worktrees_dir"` // linked worktrees live under <project>/<worktrees_dir>/<name>
	Remote       string `yaml:"remote"`
	Branch       string `yaml:"branch"`
}

// AuthorConfig is the identity written into a new repository.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// HistoryConfig holds defaults for history queries.
type HistoryConfig struct {
	SearchLimit int `yaml:"search_limit"`
}

// Config is the root taskman configuration.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Repository RepositoryConfig `yaml:"repository"`
	Author     AuthorConfig     `yaml:"author"`
	History    HistoryConfig    `yaml:"history"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			JJ:  "jj",
			Git: "git",
		},
		Repository: RepositoryConfig{
			StateDir:     ".agent-files",
			WorktreesDir: "worktrees",
			Remote:       "origin",
			Branch:       "main",
		},
		Author: AuthorConfig{
			Name:  "Agent",
			Email: "agent@localhost",
		},
		History: HistoryConfig{
			SearchLimit: 20,
		},
	}
}

// Load reads a config.yaml from path and applies environment overrides.
// If the file does not exist it returns Default() with no error.
// Missing or empty keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err == nil {
		var raw map[string]map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		setString(&cfg.Backend.JJ, raw["backend"], "jj")
		setString(&cfg.Backend.Git, raw["backend"], "git")
		setString(&cfg.Repository.StateDir, raw["repository"], "state_dir")
		setString(&cfg.Repository.WorktreesDir, raw["repository"], "worktrees_dir")
		setString(&cfg.Repository.Remote, raw["repository"], "remote")
		setString(&cfg.Repository.Branch, raw["repository"], "branch")
		setString(&cfg.Author.Name, raw["author"], "name")
		setString(&cfg.Author.Email, raw["author"], "email")
		if v, ok := raw["history"]["search_limit"].(int); ok && v > 0 {
			cfg.History.SearchLimit = v
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func setString(dst *string, section map[string]any, key string) {
	if v, ok := section[key].(string); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// applyEnv lets TASKMAN_JJ and TASKMAN_GIT point at specific binaries.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKMAN_JJ"); v != "" {
		cfg.Backend.JJ = v
	}
	if v := os.Getenv("TASKMAN_GIT"); v != "" {
		cfg.Backend.Git = v
	}
}

// ---------------------------------------------------------------------------
// Config file resolution
// ---------------------------------------------------------------------------

// defaultPath returns ~/.config/taskman/config.yaml.
func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "taskman", "config.yaml"), nil
}

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolvePath returns the config file path and the source of the resolution.
// Priority: flag → TASKMAN_CONFIG env → ~/.config/taskman/config.yaml.
// source is one of "flag", "env", or "default".
func ResolvePath(flag string) (path, source string) {
	if flag != "" {
		if p, err := normalizePath(flag); err == nil {
			return p, "flag"
		}
	}
	if env := os.Getenv("TASKMAN_CONFIG"); env != "" {
		if p, err := normalizePath(env); err == nil {
			return p, "env"
		}
	}
	p, _ := defaultPath()
	return p, "default"
}
