package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Environment     string
	DBPath          string
	CRMBaseURL      string
	CRMIdentityURL  string
	CRMClientID     string
	CRMClientSecret string
	CRMPartition    string
	HTTPTimeout     time.Duration
}

// Load loads configuration from environment variables. Outside production it
// first attempts to load a .env file; a missing file is not an error because
// deployed installs rely on real environment variables.
func Load() (*Config, error) {
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	if env != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found or couldn't be loaded: %v", err)
		}
	}

	cfg := &Config{
		Environment:     env,
		DBPath:          os.Getenv("DB_PATH"),
		CRMBaseURL:      os.Getenv("CRM_BASE_URL"),
		CRMIdentityURL:  os.Getenv("CRM_IDENTITY_URL"),
		CRMClientID:     os.Getenv("CRM_CLIENT_ID"),
		CRMClientSecret: os.Getenv("CRM_CLIENT_SECRET"),
		CRMPartition:    os.Getenv("CRM_PARTITION"),
		HTTPTimeout:     30 * time.Second,
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "fieldsync.db"
	}
	if cfg.CRMIdentityURL == "" {
		// The identity service usually lives on the same host.
		cfg.CRMIdentityURL = cfg.CRMBaseURL
	}
	if s := os.Getenv("HTTP_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", s, err)
		}
		cfg.HTTPTimeout = d
	}

	return cfg, nil
}

// ValidateRemote checks the fields every CRM call needs. The local store
// works without them, so Load itself stays lenient.
func (c *Config) ValidateRemote() error {
	if c.CRMBaseURL == "" {
		return fmt.Errorf("CRM_BASE_URL is required")
	}
	if c.CRMClientID == "" || c.CRMClientSecret == "" {
		return fmt.Errorf("CRM_CLIENT_ID and CRM_CLIENT_SECRET are required")
	}
	return nil
}
