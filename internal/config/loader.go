package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	if addr := os.Getenv("CERTLEDGER_LISTEN_ADDR"); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	if baseURL := os.Getenv("CERTLEDGER_PUBLIC_BASE_URL"); baseURL != "" {
		cfg.Server.PublicBaseURL = baseURL
	}

	if dbPath := os.Getenv("CERTLEDGER_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if nodeURL := os.Getenv("CERTLEDGER_LEDGER_URL"); nodeURL != "" {
		cfg.Ledger.NodeURL = nodeURL
	}

	if token := os.Getenv("CERTLEDGER_LEDGER_TOKEN"); token != "" {
		cfg.Ledger.IssuerToken = token
	}

	if docDir := os.Getenv("CERTLEDGER_DOCUMENTS_DIR"); docDir != "" {
		cfg.Documents.Dir = docDir
	}

	if secret := os.Getenv("CERTLEDGER_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}

	// Validate again after env overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in optional settings that were omitted
func applyDefaults(cfg *Config) {
	if cfg.Ledger.Mode == "" {
		cfg.Ledger.Mode = "http"
	}
	if cfg.Ledger.Timeout == "" {
		cfg.Ledger.Timeout = "30s"
	}
	if cfg.Documents.MaxSizeMB == 0 {
		cfg.Documents.MaxSizeMB = 10
	}
	if cfg.Auth.TokenValidity == "" {
		cfg.Auth.TokenValidity = "12h"
	}
	if cfg.Reconcile.Schedule == "" {
		cfg.Reconcile.Schedule = "@hourly"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
