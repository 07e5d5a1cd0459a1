package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrManifestPathNotSet = errors.New("manifest path is not configured")
	ErrInvalidTimeout     = errors.New("invalid http timeout")
	ErrInvalidLimit       = errors.New("limits must not be negative")
)

// DefaultManifestPath is the manifest location relative to the repository root
const DefaultManifestPath = "packages/registry/metadata.toml"

// DefaultTimeout is the per-request timeout when none is configured
const DefaultTimeout = 30 * time.Second

// Config represents the application configuration
type Config struct {
	Manifest    string       `yaml:"manifest"`
	GitHub      GitHubConfig `yaml:"github"`
	HTTP        HTTPConfig   `yaml:"http"`
	Concurrency int          `yaml:"concurrency"`         // 0 fetches every package at once
	TempDir     string       `yaml:"temp_dir,omitempty"` // download directory for checksums
}

// GitHubConfig holds GitHub API settings
type GitHubConfig struct {
	Token string `yaml:"token"` // Personal access token for higher rate limits
}

// HTTPConfig holds transport settings shared by every fetch source
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 disables pacing
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Manifest: DefaultManifestPath,
		HTTP: HTTPConfig{
			Timeout: DefaultTimeout.String(),
		},
	}
}

// ConfigPaths returns all possible config file paths in priority order
// 1. $XDG_CONFIG_HOME/shaft-meta/config.yaml (XDG standard - priority)
// 2. ~/.shaft-meta.yaml (legacy fallback)
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "shaft-meta", "config.yaml"),
		filepath.Join(home, ".shaft-meta.yaml"),
	}, nil
}

// FindConfigPath returns the first existing config file path, or the
// default path if none exists yet
func FindConfigPath() (string, error) {
	paths, err := ConfigPaths()
	if err != nil {
		return "", err
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return paths[0], nil
}

// Load reads configuration from the first available config file
func Load() (*Config, error) {
	configPath, err := FindConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom reads configuration from a specific file path.
// A missing file yields the defaults; nothing is written.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// SaveTo writes configuration to a specific file path
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that cannot be used as configured
func (c *Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Concurrency < 0 || c.HTTP.MaxRetries < 0 || c.HTTP.RequestsPerSecond < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Timeout returns the parsed per-request timeout
func (c *Config) Timeout() (time.Duration, error) {
	if c.HTTP.Timeout == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, c.HTTP.Timeout)
	}
	return d, nil
}

// GitHubToken returns the token from GITHUB_TOKEN, falling back to the config file
func (c *Config) GitHubToken() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return c.GitHub.Token
}

// ManifestPath returns the manifest path with ~ expanded
func (c *Config) ManifestPath() (string, error) {
	path := c.Manifest
	if path == "" {
		return "", ErrManifestPathNotSet
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}

	return path, nil
}
