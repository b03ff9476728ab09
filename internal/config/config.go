// Package config loads the server configuration.
//
// SOURCES (later wins):
//  1. defaults set in this file
//  2. an optional config file (--config; YAML, TOML or JSON by extension)
//  3. .env in the working directory, loaded into the environment
//  4. environment variables prefixed YATUBE_ (YATUBE_PAGE_SIZE=20)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "YATUBE"

type Config struct {
	Port      int           `mapstructure:"port"`
	DBPath    string        `mapstructure:"db_path"`
	MediaRoot string        `mapstructure:"media_root"`
	PageSize  int           `mapstructure:"page_size"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	LoginURL  string        `mapstructure:"login_url"`
	LogLevel  string        `mapstructure:"log_level"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	GitHubClientID     string `mapstructure:"github_client_id"`
	GitHubClientSecret string `mapstructure:"github_client_secret"`
	GitHubCallbackURL  string `mapstructure:"github_callback_url"`

	// AdminTokenHash is the bcrypt hash of the cache-flush token. Empty
	// disables POST /admin/cache/flush.
	AdminTokenHash string `mapstructure:"admin_token_hash"`
}

var defaults = map[string]any{
	"port":                 8080,
	"db_path":              "data/yatube.db",
	"media_root":           "media",
	"page_size":            10,
	"cache_ttl":            60 * time.Second,
	"login_url":            "/auth/login/",
	"log_level":            "info",
	"jwt_secret":           "",
	"token_ttl":            24 * time.Hour,
	"github_client_id":     "",
	"github_client_secret": "",
	"github_callback_url":  "",
	"admin_token_hash":     "",
}

// Load reads the configuration. configFile may be empty.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}
	return &cfg, nil
}

// Validate checks what the HTTP server needs. The group and hash-token
// commands only need the store and skip it.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.PageSize < 1 {
		errs = append(errs, fmt.Errorf("page_size must be at least 1, got %d", c.PageSize))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache_ttl must not be negative, got %s", c.CacheTTL))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt_secret must be at least 16 characters"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path must be set"))
	}
	if c.MediaRoot == "" {
		errs = append(errs, errors.New("media_root must be set"))
	}
	if !strings.HasPrefix(c.LoginURL, "/") {
		errs = append(errs, fmt.Errorf("login_url must be a local path, got %q", c.LoginURL))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// GitHubEnabled reports whether the OAuth app credentials are present.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
