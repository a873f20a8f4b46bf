// Package config handles reading and writing the pdfqa config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values read from config.yaml.
const (
	EnvBackendURL = "PDFQA_BACKEND_URL"
	EnvAPIKey     = "PDFQA_API_KEY"
	EnvConfigDir  = "PDFQA_CONFIG_DIR"
)

// Config is the top-level structure for config.yaml.
type Config struct {
	Version    int              `yaml:"version"`
	Backend    BackendConfig    `yaml:"backend"`
	Upload     UploadConfig     `yaml:"upload"`
	Credential CredentialConfig `yaml:"credential"`
	Log        LogConfig        `yaml:"log"`
}

// BackendConfig describes the question-answering service.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"` // 0 waits indefinitely
}

// UploadConfig holds the local checks applied before a document is sent.
type UploadConfig struct {
	MaxBytes   int64    `yaml:"max_bytes"`
	Extensions []string `yaml:"extensions"`
}

// CredentialConfig controls where the API key is kept.
type CredentialConfig struct {
	Path string `yaml:"path"` // empty means <config dir>/api_key
}

// LogConfig controls diagnostic and event logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
	File  string `yaml:"file"`  // JSONL event log, disabled when empty
}

const (
	configDirName  = "pdfqa"
	configFile     = "config.yaml"
	credentialFile = "api_key"

	// DefaultMaxUploadBytes is the largest document accepted for upload.
	DefaultMaxUploadBytes int64 = 50 * 1024 * 1024
)

// Dir returns the directory holding config.yaml and the stored credential.
// PDFQA_CONFIG_DIR wins over the user config directory.
func Dir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user config directory: %w", err)
	}
	return filepath.Join(base, configDirName), nil
}

// DefaultPath returns the config.yaml path inside Dir.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// ReadConfig reads the YAML file at path.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// WriteConfig writes cfg to path, creating parent directories as needed.
func WriteConfig(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Load reads the config at path, falling back to defaults when the file
// does not exist, then applies .env and environment overrides.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := ReadConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = DefaultConfig()
	}

	// A missing .env is the common case.
	_ = godotenv.Load()
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
}

// Validate reports settings that would make every request fail.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.URL) == "" {
		return fmt.Errorf("config: backend.url is empty")
	}
	if !strings.HasPrefix(c.Backend.URL, "http://") && !strings.HasPrefix(c.Backend.URL, "https://") {
		return fmt.Errorf("config: backend.url %q must start with http:// or https://", c.Backend.URL)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("config: upload.max_bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("config: backend.timeout must not be negative")
	}
	return nil
}

// CredentialPath resolves where the API key file lives.
func (c *Config) CredentialPath() (string, error) {
	if c.Credential.Path != "" {
		return c.Credential.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialFile), nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Backend: BackendConfig{
			URL: "http://127.0.0.1:5000",
		},
		Upload: UploadConfig{
			MaxBytes:   DefaultMaxUploadBytes,
			Extensions: []string{".pdf"},
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
