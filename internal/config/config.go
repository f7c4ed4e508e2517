package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API      APIConfig
	Database DatabaseConfig
	UI       UIConfig
}

// APIConfig holds DigitalOcean API settings. The token itself lives in an
// environment variable; only the variable name is persisted.
type APIConfig struct {
	TokenEnv string `mapstructure:"token_env"`
	BaseURL  string `mapstructure:"base_url"`
	Account  string `mapstructure:"account"`
}

// AccountID returns the configured account name, or "default" for
// single-account use.
func (c APIConfig) AccountID() string {
	if c.Account != "" {
		return c.Account
	}
	return "default"
}

// DatabaseConfig holds sqlite cache settings.
type DatabaseConfig struct {
	Path string
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
	DefaultWindow  string `mapstructure:"default_window"`
	LogPath        string `mapstructure:"log_path"`
}

// Load reads configuration from file and env. Env var overrides use prefix DOBILL_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(os.Getenv("HOME"), ".local", "share", "dobill")
	v.SetDefault("api.token_env", "DIGITALOCEAN_TOKEN")
	v.SetDefault("api.base_url", "https://api.digitalocean.com")
	v.SetDefault("api.account", "default")
	v.SetDefault("database.path", filepath.Join(dataDir, "dobill.db"))
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.default_window", "last6Months")
	v.SetDefault("ui.log_path", filepath.Join(dataDir, "dobill.log"))

	v.SetConfigType("toml")

	cfgPath := os.Getenv("DOBILL_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "dobill"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DOBILL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the settings view for non-sensitive preferences; the API
// token is never written.
func Save(cfg Config) error {
	path := os.Getenv("DOBILL_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "dobill", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.token_env", cfg.API.TokenEnv)
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.account", cfg.API.Account)
	v.Set("database.path", cfg.Database.Path)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.default_window", cfg.UI.DefaultWindow)
	v.Set("ui.log_path", cfg.UI.LogPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Token resolves the API token from the configured environment variable.
func (c Config) Token() string {
	return strings.TrimSpace(os.Getenv(c.API.TokenEnv))
}
