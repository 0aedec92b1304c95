// Package common provides shared utilities for tickerwatch
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tickerwatch
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Gateway     GatewayConfig `toml:"gateway"`
	Engine      EngineConfig  `toml:"engine"`
	Notify      NotifyConfig  `toml:"notify"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects the collection store backend.
// Backend is one of "file", "badger", "surrealdb" or "memory".
// Versions is the number of rotated backups the file backend keeps.
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Path      string `toml:"path"`
	Versions  int    `toml:"versions"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// GatewayConfig holds quote gateway configuration
type GatewayConfig struct {
	Primary  string      `toml:"primary"`
	Fallback string      `toml:"fallback"`
	Timeout  string      `toml:"timeout"`
	Yahoo    YahooConfig `toml:"yahoo"`
	EODHD    EODHDConfig `toml:"eodhd"`
}

// GetTimeout returns the per-request timeout applied to every gateway call
func (c *GatewayConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// YahooConfig holds Yahoo Finance endpoint configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// EngineConfig holds the polling intervals of the evaluation loops
type EngineConfig struct {
	AlertInterval     string `toml:"alert_interval"`
	PortfolioInterval string `toml:"portfolio_interval"`
	TickerInterval    string `toml:"ticker_interval"`
	FetchConcurrency  int    `toml:"fetch_concurrency"`
}

func (c *EngineConfig) GetAlertInterval() time.Duration {
	return parseDuration(c.AlertInterval, 30*time.Second)
}

func (c *EngineConfig) GetPortfolioInterval() time.Duration {
	return parseDuration(c.PortfolioInterval, 5*time.Second)
}

func (c *EngineConfig) GetTickerInterval() time.Duration {
	return parseDuration(c.TickerInterval, 10*time.Second)
}

// GetFetchConcurrency returns the in-flight fetch bound for one tick
func (c *EngineConfig) GetFetchConcurrency() int {
	if c.FetchConcurrency <= 0 {
		return 8
	}
	return c.FetchConcurrency
}

// NotifyConfig holds alert notification sinks
type NotifyConfig struct {
	WebhookURL     string `toml:"webhook_url"`
	WebhookTimeout string `toml:"webhook_timeout"`
}

// GetWebhookTimeout parses and returns the webhook timeout
func (c *NotifyConfig) GetWebhookTimeout() time.Duration {
	return parseDuration(c.WebhookTimeout, 10*time.Second)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "file",
			Path:      "data",
			Versions:  3,
			Namespace: "tickerwatch",
			Database:  "tickerwatch",
		},
		Gateway: GatewayConfig{
			Primary:  "yahoo",
			Fallback: "eodhd",
			Timeout:  "10s",
			Yahoo: YahooConfig{
				BaseURL:   "https://query2.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "10s",
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
			},
		},
		Engine: EngineConfig{
			AlertInterval:     "30s",
			PortfolioInterval: "5s",
			TickerInterval:    "10s",
			FetchConcurrency:  8,
		},
		Notify: NotifyConfig{
			WebhookTimeout: "10s",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/tickerwatch.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERWATCH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TICKERWATCH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TICKERWATCH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TICKERWATCH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("TICKERWATCH_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Clean(path)
	}

	if backend := os.Getenv("TICKERWATCH_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = strings.ToLower(backend)
	}

	if v := os.Getenv("TICKERWATCH_EODHD_API_KEY"); v != "" {
		config.Gateway.EODHD.APIKey = v
	}

	if v := os.Getenv("TICKERWATCH_WEBHOOK_URL"); v != "" {
		config.Notify.WebhookURL = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
