// Package config loads the prtrack configuration file and env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults applied when the config file omits a tunable.
const (
	DefaultStalenessSeconds  = 300
	DefaultPageSize          = 10
	DefaultRequiredApprovals = 2
	DefaultExportPath        = "pr-track.md"
	defaultDBFile            = "cache.sqlite3"
	defaultConfigFile        = "config.toml"
)

// RepoConfig is one tracked repository with optional per-repo user filters.
type RepoConfig struct {
	Name  string   `toml:"name"` // "owner/repo"
	Users []string `toml:"users,omitempty"`
}

// Config holds the prtrack configuration.
type Config struct {
	AuthToken         string       `toml:"auth_token"`
	GlobalUsers       []string     `toml:"global_users"`
	Repositories      []RepoConfig `toml:"repositories"`
	StalenessSeconds  int          `toml:"staleness_seconds"`
	PageSize          int          `toml:"page_size"`
	RequiredApprovals int          `toml:"required_approvals"`
	ExportPath        string       `toml:"export_path"`
	DBPath            string       `toml:"db_path"`

	// File-sourced values remembered by Load so that Save never persists an
	// env override: a PRTRACK_GITHUB_TOKEN secret must not leak into the
	// config file.
	tokenFromEnv  bool
	dbPathFromEnv bool
	fileAuthToken string
	fileDBPath    string
}

// StalenessThreshold returns the staleness tunable as a duration.
func (c *Config) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessSeconds) * time.Second
}

// Repo returns the config entry for a repository, or nil when untracked.
func (c *Config) Repo(name string) *RepoConfig {
	for i := range c.Repositories {
		if c.Repositories[i].Name == name {
			return &c.Repositories[i]
		}
	}
	return nil
}

// Users returns the union of global users and a repository's own user
// filters, deduplicated, in config order.
func (c *Config) Users(repoName string) []string {
	seen := make(map[string]bool)
	var users []string
	add := func(list []string) {
		for _, u := range list {
			if u != "" && !seen[u] {
				seen[u] = true
				users = append(users, u)
			}
		}
	}
	add(c.GlobalUsers)
	if rc := c.Repo(repoName); rc != nil {
		add(rc.Users)
	}
	return users
}

// Default returns the default configuration. The database lives next to the
// config file so the cache survives between runs.
func Default() Config {
	return Config{
		GlobalUsers:       []string{},
		Repositories:      []RepoConfig{},
		StalenessSeconds:  DefaultStalenessSeconds,
		PageSize:          DefaultPageSize,
		RequiredApprovals: DefaultRequiredApprovals,
		ExportPath:        DefaultExportPath,
	}
}

// Dir returns the prtrack configuration directory, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prtrack"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "prtrack"), nil
}

// Path returns the config file path inside Dir.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultConfigFile), nil
}

// Load reads the config file, creating a default one on first run, then
// applies env overrides. A .env file in the working directory is loaded
// best-effort first. PRTRACK_GITHUB_TOKEN overrides auth_token so the token
// can stay out of the config file; PRTRACK_DB_PATH overrides db_path.
func Load() (Config, error) {
	_ = godotenv.Load()

	path, err := Path()
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := Save(cfg); err != nil {
			return Config{}, fmt.Errorf("create default config: %w", err)
		}
	case err != nil:
		return Config{}, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.fileAuthToken = cfg.AuthToken
	cfg.fileDBPath = cfg.DBPath

	if v := os.Getenv("PRTRACK_GITHUB_TOKEN"); v != "" {
		cfg.AuthToken = v
		cfg.tokenFromEnv = true
	}
	if v := os.Getenv("PRTRACK_DB_PATH"); v != "" {
		cfg.DBPath = v
		cfg.dbPathFromEnv = true
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Save writes the configuration to the config file, creating the directory
// if needed. Fields whose current value came from the environment rather
// than the file are restored to their file-sourced value first, so saving a
// loaded config never bakes an env-supplied token or db path into the file.
func Save(cfg Config) error {
	if cfg.tokenFromEnv {
		cfg.AuthToken = cfg.fileAuthToken
	}
	if cfg.dbPathFromEnv {
		cfg.DBPath = cfg.fileDBPath
	}

	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.StalenessSeconds <= 0 {
		cfg.StalenessSeconds = DefaultStalenessSeconds
	}
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.RequiredApprovals < 1 {
		cfg.RequiredApprovals = DefaultRequiredApprovals
	}
	if cfg.ExportPath == "" {
		cfg.ExportPath = DefaultExportPath
	}
	if cfg.DBPath == "" {
		if dir, err := Dir(); err == nil {
			cfg.DBPath = filepath.Join(dir, defaultDBFile)
		} else {
			cfg.DBPath = defaultDBFile
		}
	}
}

func validate(cfg *Config) error {
	for _, rc := range cfg.Repositories {
		parts := strings.SplitN(rc.Name, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid repository %q: expected owner/repo", rc.Name)
		}
	}
	return nil
}
