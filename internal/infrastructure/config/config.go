// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Ledger.DatabasePath
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Ledger        LedgerConfig        `yaml:"ledger"`
	Matching      MatchingConfig      `yaml:"matching"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LedgerConfig holds the local ledger database settings
type LedgerConfig struct {
	DatabasePath string `yaml:"database_path"`
	BudgetID     string `yaml:"budget_id"`
}

// MatchingConfig holds matching tolerances and thresholds
type MatchingConfig struct {
	DateToleranceDays    int `yaml:"date_tolerance_days"`
	AmountToleranceCents int `yaml:"amount_tolerance_cents"`
	AutoMatchThreshold   int `yaml:"auto_match_threshold"`
	SuggestionThreshold  int `yaml:"suggestion_threshold"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${BANKREC_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Ledger: LedgerConfig{
			DatabasePath: getEnv("BANKREC_DB_PATH", "bankrec.db"),
			BudgetID:     getEnv("BANKREC_BUDGET_ID", "default"),
		},
		Matching: MatchingConfig{
			DateToleranceDays:    getEnvInt("MATCH_DATE_TOLERANCE_DAYS", 3),
			AmountToleranceCents: getEnvInt("MATCH_AMOUNT_TOLERANCE_CENTS", 0),
			AutoMatchThreshold:   getEnvInt("MATCH_AUTO_THRESHOLD", 90),
			SuggestionThreshold:  getEnvInt("MATCH_SUGGESTION_THRESHOLD", 60),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills zero values left by a sparse YAML file.
func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Ledger.DatabasePath == "" {
		c.Ledger.DatabasePath = "bankrec.db"
	}
	if c.Ledger.BudgetID == "" {
		c.Ledger.BudgetID = "default"
	}
	if c.Matching.DateToleranceDays == 0 {
		c.Matching.DateToleranceDays = 3
	}
	if c.Matching.AutoMatchThreshold == 0 {
		c.Matching.AutoMatchThreshold = 90
	}
	if c.Matching.SuggestionThreshold == 0 {
		c.Matching.SuggestionThreshold = 60
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}
