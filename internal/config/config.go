package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Documents DocumentsConfig `yaml:"documents"`
	Auth      AuthConfig      `yaml:"auth"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr    string `yaml:"listen_addr"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains ledger transport configuration.
// Mode "http" talks to a remote ledger node; mode "memory" runs an
// in-process ledger and is intended for development and tests.
type LedgerConfig struct {
	Mode        string `yaml:"mode"`
	NodeURL     string `yaml:"node_url"`
	IssuerToken string `yaml:"issuer_token"`
	Timeout     string `yaml:"timeout"`
}

// DocumentsConfig contains document store configuration
type DocumentsConfig struct {
	Dir       string `yaml:"dir"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// AuthConfig contains admin authentication configuration
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenValidity string `yaml:"token_validity"`
}

// ReconcileConfig contains the ledger/local-store consistency sweep schedule
type ReconcileConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.PublicBaseURL == "" {
		return fmt.Errorf("server.public_base_url is required")
	}
	if _, err := url.Parse(c.Server.PublicBaseURL); err != nil {
		return fmt.Errorf("server.public_base_url is invalid: %w", err)
	}

	// Database validation
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Ledger validation
	switch c.Ledger.Mode {
	case "http":
		if c.Ledger.NodeURL == "" {
			return fmt.Errorf("ledger.node_url is required in http mode")
		}
		if c.Ledger.IssuerToken == "" {
			return fmt.Errorf("ledger.issuer_token is required in http mode")
		}
	case "memory":
		// No transport settings needed
	default:
		return fmt.Errorf("ledger.mode must be 'http' or 'memory'")
	}
	if _, err := time.ParseDuration(c.Ledger.Timeout); err != nil {
		return fmt.Errorf("ledger.timeout is invalid: %w", err)
	}

	// Documents validation
	if c.Documents.Dir == "" {
		return fmt.Errorf("documents.dir is required")
	}
	if c.Documents.MaxSizeMB <= 0 {
		return fmt.Errorf("documents.max_size_mb must be positive")
	}

	// Auth validation
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if _, err := time.ParseDuration(c.Auth.TokenValidity); err != nil {
		return fmt.Errorf("auth.token_validity is invalid: %w", err)
	}

	// Rate limit validation
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be positive")
	}

	// Logging validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	return nil
}

// GetLedgerTimeout returns the ledger request timeout as time.Duration
func (c *Config) GetLedgerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Ledger.Timeout)
	return d
}

// GetTokenValidity returns the admin token validity as time.Duration
func (c *Config) GetTokenValidity() time.Duration {
	d, _ := time.ParseDuration(c.Auth.TokenValidity)
	return d
}

// MaxDocumentBytes returns the document size ceiling in bytes
func (c *Config) MaxDocumentBytes() int64 {
	return int64(c.Documents.MaxSizeMB) * 1024 * 1024
}
