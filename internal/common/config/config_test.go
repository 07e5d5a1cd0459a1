package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genValidPath generates valid path strings (alphanumeric with slashes)
func genValidPath() gopter.Gen {
	return gen.RegexMatch(`^[a-z][a-z0-9/]{0,20}\.toml$`)
}

// genToken generates GitHub-token-like strings
func genToken() gopter.Gen {
	return gen.RegexMatch(`^(ghp_[A-Za-z0-9]{8,20})?$`)
}

// genConfig generates valid Config structs
func genConfig() gopter.Gen {
	return gopter.CombineGens(
		genValidPath(),
		genToken(),
		gen.OneConstOf("10s", "1m0s", "1m30s"),
		gen.IntRange(0, 5),
		gen.IntRange(0, 16),
	).Map(func(values []interface{}) *Config {
		return &Config{
			Manifest: values[0].(string),
			GitHub:   GitHubConfig{Token: values[1].(string)},
			HTTP: HTTPConfig{
				Timeout:    values[2].(string),
				MaxRetries: values[3].(int),
			},
			Concurrency: values[4].(int),
		}
	})
}

// TestConfigRoundTrip tests Property 1: Configuration round-trip
func TestConfigRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Config YAML round-trip preserves data", prop.ForAll(
		func(cfg *Config) bool {
			configPath := filepath.Join(t.TempDir(), "config.yaml")

			if err := cfg.SaveTo(configPath); err != nil {
				t.Logf("Failed to save config: %v", err)
				return false
			}

			loaded, err := LoadFrom(configPath)
			if err != nil {
				t.Logf("Failed to load config: %v", err)
				return false
			}

			return reflect.DeepEqual(cfg, loaded)
		},
		genConfig(),
	))

	properties.TestingRun(t)
}

// TestMissingConfigFileUsesDefaults tests that a missing file yields defaults without writing
func TestMissingConfigFileUsesDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
	if _, err := os.Stat(configPath); !os.IsNotExist(err) {
		t.Error("Loading a missing config must not create it")
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("concurrency: 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.Concurrency)
	}
	if cfg.Manifest != DefaultManifestPath {
		t.Errorf("Expected default manifest path, got %q", cfg.Manifest)
	}
	if d, _ := cfg.Timeout(); d != DefaultTimeout {
		t.Errorf("Expected default timeout, got %v", d)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected error
	}{
		{"bad timeout", "http:\n  timeout: soon\n", ErrInvalidTimeout},
		{"zero timeout", "http:\n  timeout: 0s\n", ErrInvalidTimeout},
		{"negative retries", "http:\n  max_retries: -1\n", ErrInvalidLimit},
		{"negative concurrency", "concurrency: -2\n", ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFrom(configPath); !errors.Is(err, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestGitHubTokenPrefersEnvironment(t *testing.T) {
	cfg := &Config{GitHub: GitHubConfig{Token: "from-file"}}

	t.Setenv("GITHUB_TOKEN", "")
	if got := cfg.GitHubToken(); got != "from-file" {
		t.Errorf("Expected token from file, got %q", got)
	}

	t.Setenv("GITHUB_TOKEN", "from-env")
	if got := cfg.GitHubToken(); got != "from-env" {
		t.Errorf("Expected token from environment, got %q", got)
	}
}

func TestManifestPath(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.ManifestPath(); !errors.Is(err, ErrManifestPathNotSet) {
		t.Errorf("Expected ErrManifestPathNotSet, got %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg.Manifest = "~/shaft/metadata.toml"
	got, err := cfg.ManifestPath()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != filepath.Join(home, "shaft", "metadata.toml") {
		t.Errorf("Unexpected expanded path %q", got)
	}
}

func TestConfigPathsHonorXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	paths, err := ConfigPaths()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if paths[0] != "/tmp/xdg/shaft-meta/config.yaml" {
		t.Errorf("Unexpected primary path %q", paths[0])
	}
	if d, _ := Default().Timeout(); d != 30*time.Second {
		t.Errorf("Unexpected default timeout %v", d)
	}
}
