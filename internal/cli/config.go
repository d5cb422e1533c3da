package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/collective-threads/internal/comment"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	// CollectiveID is the logged-in user's own collective; comments are
	// authored as it.
	CollectiveID int64 `yaml:"collective_id,omitempty"`
	UserID       int64 `yaml:"user_id,omitempty"`
	PageSize     int   `yaml:"page_size,omitempty"`
}

const defaultServerURL = "http://localhost:8080"

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ct", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	if v := os.Getenv("CT_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	if v := os.Getenv("CT_API_KEY"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.APIKey
	}
	return ""
}

// getCollectiveID returns the author collective from env var or config, 0 if unset.
func getCollectiveID() int64 {
	if v, ok := envInt("CT_COLLECTIVE_ID"); ok {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.CollectiveID
	}
	return 0
}

// getUserID returns the logged-in user from env var or config, 0 if unset.
func getUserID() int64 {
	if v, ok := envInt("CT_USER_ID"); ok {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return cfg.UserID
	}
	return 0
}

// getPageSize returns the page size from env var or config, or the default.
func getPageSize() int {
	if v, ok := envInt("CT_PAGE_SIZE"); ok && v > 0 {
		return int(v)
	}
	cfg, err := loadConfig()
	if err == nil && cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return comment.DefaultPageSize
}

// envInt parses an integer env var. Malformed values are logged and ignored.
func envInt(name string) (int64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("ignoring malformed env var", "name", name, "value", v)
		return 0, false
	}
	return n, true
}
