package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Vic92548/VCCE-Server/pkg/logger"
)

// DefaultListenAddr is the TCP address the server binds when no
// override is given.
const DefaultListenAddr = ":7071"

// Config represents the application configuration.
type Config struct {
	// Listen is the TCP address the server binds.
	Listen string `json:"listen"`

	// Model configuration for the chat-completion service.
	Model ModelConfig `json:"model"`

	// Context configuration for project context aggregation.
	Context ContextConfig `json:"context"`

	// Logging configuration
	Log *LogConfig `json:"log,omitempty"`
}

// ModelConfig contains chat-completion model configuration.
type ModelConfig struct {
	Provider    string  `json:"provider"`
	ID          string  `json:"id"`
	BaseURL     string  `json:"baseUrl,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"maxTokens,omitempty"`
}

// ContextConfig controls project context aggregation.
type ContextConfig struct {
	// MaxBytes is the context byte budget. Aggregation stops once the
	// running total exceeds it.
	MaxBytes int `json:"maxBytes"`

	// Watch enables fsnotify-based cache invalidation. Off by default:
	// cached context is reused verbatim until an explicit refresh.
	Watch bool `json:"watch,omitempty"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `json:"level,omitempty"`  // Log level: debug, info, warn, error
	File   string `json:"file,omitempty"`   // Log file path (empty = no file logging)
	Prefix string `json:"prefix,omitempty"` // Log prefix
}

// DefaultLogConfig returns default logging configuration.
func DefaultLogConfig() *LogConfig {
	homeDir, _ := os.UserHomeDir()
	return &LogConfig{
		Level:  "info",
		File:   filepath.Join(homeDir, ".vcce-server", "server.log"),
		Prefix: "[vcce] ",
	}
}

// CreateLogger creates a logger from the log configuration.
func (c *LogConfig) CreateLogger() (*logger.Logger, error) {
	if c == nil {
		c = DefaultLogConfig()
	}
	return logger.New(logger.Config{
		Level:    logger.ParseLevel(c.Level),
		Prefix:   c.Prefix,
		FilePath: c.File,
	})
}

// Load loads configuration from file and merges with environment
// variables. Environment variables take precedence over file values.
// An empty configPath resolves to DefaultPath.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}
	cfg := &Config{
		Listen: DefaultListenAddr,
		Model: ModelConfig{
			Provider:    "openai",
			ID:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Temperature: 0.2,
			MaxTokens:   4096,
		},
		Context: ContextConfig{
			MaxBytes: 512 * 1024,
		},
		Log: DefaultLogConfig(),
	}

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// File values override defaults
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override config file
	if val := os.Getenv("VCCE_LISTEN"); val != "" {
		cfg.Listen = val
	}
	if val := os.Getenv("OPENAI_MODEL"); val != "" {
		cfg.Model.ID = val
	}
	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		cfg.Model.BaseURL = val
	}

	if cfg.Listen == "" {
		cfg.Listen = DefaultListenAddr
	}
	if cfg.Context.MaxBytes <= 0 {
		cfg.Context.MaxBytes = 512 * 1024
	}

	return cfg, nil
}

// Save saves configuration to file.
func Save(cfg *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".vcce-server", "config.json"), nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
