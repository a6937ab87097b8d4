// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for kevai.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.kevai/config.toml
//   - ~/.kevai/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete kevai configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`
	// DataDir is where conversations and caches live (default ~/.kevai)
	DataDir string `toml:"data_dir" json:"data_dir"`

	// Server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Provider (DeepSeek) configuration
	Provider ProviderConfig `toml:"provider" json:"provider"`

	// Chat configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// CMS (Notion) configuration
	CMS CMSConfig `toml:"cms" json:"cms"`

	// Mail (contact form relay) configuration
	Mail MailConfig `toml:"mail" json:"mail"`

	// Stats (GitHub) configuration
	Stats StatsConfig `toml:"stats" json:"stats"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the listen port for the API server
	Port int `toml:"port" json:"port"`
	// BearerToken enables bearer auth on the API when non-empty
	BearerToken string `toml:"bearer_token" json:"bearer_token"`
	// AllowedOrigins are the origins permitted by CORS
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	// RateLimit is the allowed requests per IP per minute
	RateLimit int `toml:"rate_limit" json:"rate_limit"`
}

// ProviderConfig contains language-model provider configuration.
type ProviderConfig struct {
	// APIKey is the DeepSeek API key
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL is the provider endpoint base URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// Model is the chat model identifier
	Model string `toml:"model" json:"model"`
	// TimeoutSecs bounds each completion request
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries enables retry-with-backoff when > 0 (default 0: fail fast)
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// ChatConfig contains conversation handling configuration.
type ChatConfig struct {
	// TitleLength is the number of runes of the first message used as a title
	TitleLength int `toml:"title_length" json:"title_length"`
	// MaxMessages caps messages forwarded to the provider per request
	MaxMessages int `toml:"max_messages" json:"max_messages"`
	// FactsFile optionally overrides the compiled-in knowledge base
	FactsFile string `toml:"facts_file" json:"facts_file"`
	// WatchFacts reloads FactsFile on change
	WatchFacts bool `toml:"watch_facts" json:"watch_facts"`
}

// CMSConfig contains the Notion read-layer configuration.
type CMSConfig struct {
	// APIKey is the Notion integration token
	APIKey string `toml:"api_key" json:"api_key"`
	// DatabaseID is the blog posts database
	DatabaseID string `toml:"database_id" json:"database_id"`
	// CacheTTLMinutes is how long post listings are served from cache
	CacheTTLMinutes int `toml:"cache_ttl_minutes" json:"cache_ttl_minutes"`
}

// MailConfig contains outbound SMTP configuration for the contact form.
type MailConfig struct {
	// Host and Port of the SMTP submission endpoint
	Host string `toml:"host" json:"host"`
	Port int    `toml:"port" json:"port"`
	// Username/Password authenticate the submission
	Username string `toml:"username" json:"username"`
	Password string `toml:"password" json:"password"`
	// To is the fixed recipient (the site owner)
	To string `toml:"to" json:"to"`
}

// StatsConfig contains the GitHub stats collaborator configuration.
type StatsConfig struct {
	// Username is the GitHub account to report on
	Username string `toml:"username" json:"username"`
	// Token raises the API rate limit when set
	Token string `toml:"token" json:"token"`
	// CacheTTLHours is how long stats are served from cache
	CacheTTLHours int `toml:"cache_ttl_hours" json:"cache_ttl_hours"`
	// RequestsPerHour caps outbound GitHub API calls
	RequestsPerHour int `toml:"requests_per_hour" json:"requests_per_hour"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			Port: 8790,
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			},
			RateLimit: 100,
		},

		Provider: ProviderConfig{
			BaseURL:     "https://api.deepseek.com/v1",
			Model:       "deepseek-chat",
			TimeoutSecs: 60,
			MaxRetries:  0, // single attempt, fail fast
		},

		Chat: ChatConfig{
			TitleLength: 30,
			MaxMessages: 100,
			WatchFacts:  false,
		},

		CMS: CMSConfig{
			CacheTTLMinutes: 60,
		},

		Mail: MailConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},

		Stats: StatsConfig{
			Username:        "kevinksaji",
			CacheTTLHours:   2,
			RequestsPerHour: 30,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the kevai configuration/data directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".kevai"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files hold API keys and SMTP credentials; keep them 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := PathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finish(cfg)
		}
	}

	jsonPath, err := PathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finish(cfg)
		}
	}

	return finish(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// finish applies env overrides, defaults, and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Credentials always win from the environment so they never need to be
// written to disk.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("NOTION_API_KEY"); v != "" {
		c.CMS.APIKey = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		c.CMS.DatabaseID = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Stats.Token = v
	}
	if v := os.Getenv("KEVAI_SMTP_USER"); v != "" {
		c.Mail.Username = v
	}
	if v := os.Getenv("KEVAI_SMTP_PASS"); v != "" {
		c.Mail.Password = v
	}
	if v := os.Getenv("KEVAI_BEARER_TOKEN"); v != "" {
		c.Server.BearerToken = v
	}
	if v := os.Getenv("KEVAI_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("KEVAI_DATA_DIR"); v != "" {
		c.DataDir = v
	}
}

// =============================================================================
// DEFAULTS AND VALIDATION
// =============================================================================

// SetDefaults fills any zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.DataDir == "" {
		if dir, err := Dir(); err == nil {
			c.DataDir = dir
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = d.Server.AllowedOrigins
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = d.Provider.BaseURL
	}
	if c.Provider.Model == "" {
		c.Provider.Model = d.Provider.Model
	}
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}
	if c.Chat.TitleLength == 0 {
		c.Chat.TitleLength = d.Chat.TitleLength
	}
	if c.Chat.MaxMessages == 0 {
		c.Chat.MaxMessages = d.Chat.MaxMessages
	}
	if c.CMS.CacheTTLMinutes == 0 {
		c.CMS.CacheTTLMinutes = d.CMS.CacheTTLMinutes
	}
	if c.Mail.Host == "" {
		c.Mail.Host = d.Mail.Host
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = d.Mail.Port
	}
	if c.Stats.Username == "" {
		c.Stats.Username = d.Stats.Username
	}
	if c.Stats.CacheTTLHours == 0 {
		c.Stats.CacheTTLHours = d.Stats.CacheTTLHours
	}
	if c.Stats.RequestsPerHour == 0 {
		c.Stats.RequestsPerHour = d.Stats.RequestsPerHour
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimit < 1 {
		return fmt.Errorf("server.rate_limit must be positive, got %d", c.Server.RateLimit)
	}
	if u, err := url.Parse(c.Provider.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("provider.base_url is not a valid URL: %q", c.Provider.BaseURL)
	}
	if c.Provider.TimeoutSecs < 1 {
		return fmt.Errorf("provider.timeout_secs must be positive, got %d", c.Provider.TimeoutSecs)
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("provider.max_retries must be >= 0, got %d", c.Provider.MaxRetries)
	}
	if c.Chat.TitleLength < 1 {
		return fmt.Errorf("chat.title_length must be positive, got %d", c.Chat.TitleLength)
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return fmt.Errorf("mail.port must be 1-65535, got %d", c.Mail.Port)
	}
	if c.Mail.To != "" && !strings.Contains(c.Mail.To, "@") {
		return fmt.Errorf("mail.to is not a valid address: %q", c.Mail.To)
	}
	return nil
}

// ProviderTimeout returns the provider timeout as a duration.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSecs) * time.Second
}

// CMSCacheTTL returns the CMS cache TTL as a duration.
func (c *Config) CMSCacheTTL() time.Duration {
	return time.Duration(c.CMS.CacheTTLMinutes) * time.Minute
}

// StatsCacheTTL returns the stats cache TTL as a duration.
func (c *Config) StatsCacheTTL() time.Duration {
	return time.Duration(c.Stats.CacheTTLHours) * time.Hour
}

// =============================================================================
// SAVE
// =============================================================================

// SaveTOML writes the configuration to the default TOML path.
func (c *Config) SaveTOML() error {
	if err := EnsureDir(); err != nil {
		return err
	}
	path, err := PathTOML()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
