package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// BackendConfig holds the dashboard REST backend settings.
type BackendConfig struct {
	// BaseURL is the API root (e.g., https://villas.example.com/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TokenKey is the keyring key holding the access token.
	TokenKey string `mapstructure:"token_key" yaml:"token_key"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// SyncConfig controls background resynchronization and the local cache.
type SyncConfig struct {
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	CachePath       string `mapstructure:"cache_path" yaml:"cache_path"`
	CacheEnabled    bool   `mapstructure:"cache_enabled" yaml:"cache_enabled"`
}

// InboxConfig describes the optional inquiry mailbox polled over IMAP.
// The password lives in the keyring under "inbox-password".
type InboxConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	Host            string `mapstructure:"host" yaml:"host"`
	Port            string `mapstructure:"port" yaml:"port"`
	Username        string `mapstructure:"username" yaml:"username"`
	Mailbox         string `mapstructure:"mailbox" yaml:"mailbox"`
	TLS             bool   `mapstructure:"tls" yaml:"tls"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`

	// BellSize is how many unread notifications the bell dropdown shows.
	BellSize int `mapstructure:"bell_size" yaml:"bell_size"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// File is the log destination. The TUI never logs to stdout.
	File string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`
	Inbox   InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// EnvPrefix prefixes environment overrides, e.g. NOTIFYBELL_BACKEND_BASE_URL.
const EnvPrefix = "NOTIFYBELL"

// DefaultTokenKey is the persisted access token key shared with the web
// dashboard.
const DefaultTokenKey = "auth_access"

// ConfigDir returns ~/.config/notifybell, or the working directory when
// the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "notifybell")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		// No base URL: the first run goes through setup.
		Backend: BackendConfig{
			TokenKey:   DefaultTokenKey,
			TimeoutSec: 30,
		},
		Sync: SyncConfig{
			PollIntervalSec: 60,
			CachePath:       filepath.Join(dir, "cache.db"),
			CacheEnabled:    true,
		},
		Inbox: InboxConfig{
			Port:            "993",
			Mailbox:         "INBOX",
			TLS:             true,
			PollIntervalSec: 300,
		},
		Display: DisplayConfig{
			Theme:    "default",
			BellSize: 6,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(dir, "notifybell.log"),
		},
	}
}

// setDefaults mirrors defaultAppConfig so missing keys resolve.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.token_key", d.Backend.TokenKey)
	v.SetDefault("backend.timeout_sec", d.Backend.TimeoutSec)
	v.SetDefault("sync.poll_interval_sec", d.Sync.PollIntervalSec)
	v.SetDefault("sync.cache_path", d.Sync.CachePath)
	v.SetDefault("sync.cache_enabled", d.Sync.CacheEnabled)
	v.SetDefault("inbox.enabled", false)
	v.SetDefault("inbox.host", "")
	v.SetDefault("inbox.username", "")
	v.SetDefault("inbox.port", d.Inbox.Port)
	v.SetDefault("inbox.mailbox", d.Inbox.Mailbox)
	v.SetDefault("inbox.tls", d.Inbox.TLS)
	v.SetDefault("inbox.poll_interval_sec", d.Inbox.PollIntervalSec)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.bell_size", d.Display.BellSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with NOTIFYBELL_ override file values.
// If the file does not exist, defaults (plus overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Backend.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
	if cfg.Backend.TokenKey == "" {
		cfg.Backend.TokenKey = DefaultTokenKey
	}
	if cfg.Backend.TimeoutSec <= 0 {
		cfg.Backend.TimeoutSec = 30
	}
	if cfg.Sync.PollIntervalSec <= 0 {
		cfg.Sync.PollIntervalSec = 60
	}
	if cfg.Display.BellSize <= 0 {
		cfg.Display.BellSize = 6
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("backend", cfg.Backend)
	v.Set("sync", cfg.Sync)
	v.Set("inbox", cfg.Inbox)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
