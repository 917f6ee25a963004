// Package config handles configuration and API service settings for llmchat.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/diogo/llmchat/internal/models"
)

const (
	StorageJSON   = "json"
	StoragePebble = "pebble"

	defaultScrollDebounce = 100
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `json:"style"`              // "dark", "light", or path to JSON theme
	EnableEmoji      bool   `json:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `json:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `json:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `json:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// DefaultService is the ID of the service used by chats that are not
	// bound to one.
	DefaultService string              `json:"default_service" env:"LLMCHAT_DEFAULT_SERVICE"`
	Services       []models.APIService `json:"services"`
	// StorageBackend selects the chat store: "json" or "pebble".
	StorageBackend  string `json:"storage_backend" env:"LLMCHAT_STORAGE"`
	LogLevel        string `json:"log_level" env:"LLMCHAT_LOG_LEVEL"`
	CopyToClipboard bool   `json:"copy_to_clipboard"`
	TUITheme        string `json:"tui_theme,omitempty" env:"LLMCHAT_THEME"`
	// ScrollDebounceMillis is the delay before a streamed update scrolls
	// the message list.
	ScrollDebounceMillis int            `json:"scroll_debounce_ms"`
	Markdown             MarkdownConfig `json:"markdown,omitempty"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultService returns the service configured on first run.
func DefaultService() models.APIService {
	return models.APIService{
		ID:                  "openai",
		Name:                "OpenAI",
		Type:                models.ServiceTypeOpenAI,
		URL:                 models.DefaultAPIURL,
		Model:               models.DefaultModel,
		ContextSize:         models.DefaultContextSize,
		UseStreamResponse:   true,
		ImageUploadsAllowed: true,
		GenerateChatNames:   true,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		DefaultService:       "openai",
		Services:             []models.APIService{DefaultService()},
		StorageBackend:       StorageJSON,
		LogLevel:             "info",
		CopyToClipboard:      false,
		TUITheme:             "tokyonight",
		ScrollDebounceMillis: defaultScrollDebounce,
		Markdown:             DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".llmchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	// 0o700: the directory holds API keys and chat history
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// LoadDotEnv loads .env files from the working directory and the config
// directory. Variables already set in the environment win.
func LoadDotEnv() error {
	var files []string
	if _, err := os.Stat(".env"); err == nil {
		files = append(files, ".env")
	}
	if dir, err := GetConfigDir(); err == nil {
		p := filepath.Join(dir, ".env")
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom loads the configuration file at path, overlays environment
// variables and fills in defaults. A missing file yields the defaults.
func LoadConfigFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		// Decoding merges into cfg, so a file listing services replaces the
		// default service list entirely.
		cfg.Services = nil
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.StorageBackend == "" {
		c.StorageBackend = StorageJSON
	}
	c.StorageBackend = strings.ToLower(c.StorageBackend)
	if c.ScrollDebounceMillis <= 0 {
		c.ScrollDebounceMillis = defaultScrollDebounce
	}
	if c.Markdown.Style == "" {
		c.Markdown = DefaultMarkdownConfig()
	}

	key := os.Getenv("OPENAI_API_KEY")
	for i := range c.Services {
		s := &c.Services[i]
		if s.Type == "" {
			s.Type = models.ServiceTypeOpenAI
		}
		if s.APIKey == "" && s.Type == models.ServiceTypeOpenAI {
			s.APIKey = key
		}
	}
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}
	return SaveConfigTo(filepath.Join(configDir, "config.json"), cfg)
}

// SaveConfigTo writes the configuration to path.
func SaveConfigTo(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0o600: services may carry API keys
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindService returns the service with the given ID.
func (c Config) FindService(id string) (models.APIService, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.APIService{}, false
}

// ResolveService returns the service for a chat bound to id, falling back to
// the default service. It reports false when neither resolves.
func (c Config) ResolveService(id string) (models.APIService, bool) {
	if id != "" {
		if s, ok := c.FindService(id); ok {
			return s, true
		}
	}
	if c.DefaultService == "" {
		return models.APIService{}, false
	}
	return c.FindService(c.DefaultService)
}

// SetDefaultService makes id the default service.
func (c *Config) SetDefaultService(id string) error {
	if _, ok := c.FindService(id); !ok {
		return fmt.Errorf("unknown service: %s", id)
	}
	c.DefaultService = id
	return nil
}

// ScrollDebounce returns the streamed-update scroll delay.
func (c Config) ScrollDebounce() time.Duration {
	if c.ScrollDebounceMillis <= 0 {
		return defaultScrollDebounce * time.Millisecond
	}
	return time.Duration(c.ScrollDebounceMillis) * time.Millisecond
}
