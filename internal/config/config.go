// Package config handles external configuration loading from JSON and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Debug         bool          `json:"debug" env:"DEBUG"`
	Server        Server        `json:"server"`
	Database      Database      `json:"database"`
	Business      Business      `json:"business"`
	JWT           JWT           `json:"jwt"`
	Logger        Logger        `json:"logger"`
	Catalog       Catalog       `json:"catalog"`
	Monitor       Monitor       `json:"monitor"`
	Notifications Notifications `json:"notifications"`
	Admin         Admin         `json:"admin"`
	Seed          Seed          `json:"seed"`
}

// Server holds HTTP server configuration
type Server struct {
	Port         int    `json:"port" env:"PORT"`
	Host         string `json:"host" env:"HOST"`
	ReadTimeout  int    `json:"readTimeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout int    `json:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
}

// Database holds database configuration
type Database struct {
	Path string `json:"path" env:"DATABASE_PATH"`
}

// Business holds business information
type Business struct {
	Name                  string `json:"name" env:"BUSINESS_NAME"`
	ContactEmail          string `json:"contactEmail" env:"BUSINESS_CONTACT_EMAIL"`
	Currency              string `json:"currency" env:"BUSINESS_CURRENCY"`
	QuotationValidityDays int    `json:"quotationValidityDays" env:"QUOTATION_VALIDITY_DAYS"`
}

// JWT holds JWT configuration
type JWT struct {
	Secret          string `json:"secret" env:"JWT_SECRET"`
	ExpirationHours int    `json:"expirationHours" env:"JWT_EXPIRATION_HOURS"`
}

// Logger holds logging configuration
type Logger struct {
	Level string `json:"level" env:"LOG_LEVEL"`
	JSON  bool   `json:"json" env:"LOG_JSON"`
}

// Catalog holds catalog presentation settings
type Catalog struct {
	PlaceholderImage string `json:"placeholderImage" env:"CATALOG_PLACEHOLDER_IMAGE"`
	FeaturedLimit    int    `json:"featuredLimit" env:"CATALOG_FEATURED_LIMIT"`
}

// Monitor holds the low-stock sweep schedule
type Monitor struct {
	Enabled         bool `json:"enabled" env:"LOW_STOCK_MONITOR_ENABLED"`
	IntervalMinutes int  `json:"intervalMinutes" env:"LOW_STOCK_INTERVAL_MINUTES"`
}

// Notifications holds alert delivery settings. Kafka is used when brokers are set.
type Notifications struct {
	EmailFrom    string   `json:"emailFrom" env:"NOTIFY_EMAIL_FROM"`
	TemplatesDir string   `json:"templatesDir" env:"NOTIFY_TEMPLATES_DIR"`
	KafkaBrokers []string `json:"kafkaBrokers" env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `json:"kafkaTopic" env:"KAFKA_LOW_STOCK_TOPIC"`
}

// Admin is the account created when the user directory is empty
type Admin struct {
	Email    string `json:"email" env:"ADMIN_EMAIL"`
	Password string `json:"password" env:"ADMIN_PASSWORD"`
	Name     string `json:"name" env:"ADMIN_NAME"`
}

// Seed controls loading a YAML catalog on startup. An empty path selects the built-in catalog.
type Seed struct {
	Enabled bool   `json:"enabled" env:"SEED_DATA"`
	Path    string `json:"path" env:"SEED_PATH"`
}

// Load reads configuration from the specified JSON file and overrides with environment variables.
// With APP_ENV=local a .env file in the working directory is loaded first.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if os.Getenv("APP_ENV") == "local" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Business.Name == "" {
		c.Business.Name = "tirehub"
	}
	if c.Business.Currency == "" {
		c.Business.Currency = "usd"
	}
	if c.Business.QuotationValidityDays == 0 {
		c.Business.QuotationValidityDays = 30
	}
	if c.JWT.ExpirationHours == 0 {
		c.JWT.ExpirationHours = 24
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
		if c.Debug {
			c.Logger.Level = "debug"
		}
	}
	if c.Catalog.FeaturedLimit == 0 {
		c.Catalog.FeaturedLimit = 8
	}
	if c.Monitor.IntervalMinutes == 0 {
		c.Monitor.IntervalMinutes = 60
	}
	if c.Notifications.KafkaTopic == "" {
		c.Notifications.KafkaTopic = "inventory.low-stock"
	}
	if c.Admin.Email == "" {
		c.Admin.Email = "admin@tirehub.local"
	}
	if c.Admin.Name == "" {
		c.Admin.Name = "Administrator"
	}
}

// validate checks that all required configuration values are present
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	cleanDBPath := filepath.Clean(c.Database.Path)
	if !filepath.IsLocal(cleanDBPath) && !filepath.IsAbs(cleanDBPath) {
		return fmt.Errorf("invalid database path: potential path traversal detected")
	}

	if c.Catalog.FeaturedLimit < 0 || c.Catalog.FeaturedLimit > 8 {
		return fmt.Errorf("featured limit must be between 1 and 8, got %d", c.Catalog.FeaturedLimit)
	}

	if c.Business.QuotationValidityDays < 0 {
		return fmt.Errorf("invalid quotation validity: %d days", c.Business.QuotationValidityDays)
	}

	if c.Monitor.IntervalMinutes < 0 {
		return fmt.Errorf("invalid monitor interval: %d", c.Monitor.IntervalMinutes)
	}

	for _, b := range c.Notifications.KafkaBrokers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("empty kafka broker address")
		}
	}

	return nil
}

// ValidateServer checks the settings only the HTTP server needs: token signing and the default admin.
// Outside debug mode both must be set explicitly.
func (c *Config) ValidateServer() error {
	if c.Debug {
		return nil
	}
	if c.JWT.Secret == "" || c.JWT.Secret == "CHANGE_THIS_SECRET_IN_PRODUCTION" {
		return fmt.Errorf("JWT secret must be changed for production")
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin password is required outside debug mode")
	}
	return nil
}

// Address returns the full server address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabasePath returns the cleaned and validated database path
func (c *Config) GetDatabasePath() string {
	return filepath.Clean(c.Database.Path)
}

// MonitorInterval returns the low-stock sweep period
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMinutes) * time.Minute
}

// QuotationValidity returns how long a new quotation stays valid
func (c *Config) QuotationValidity() time.Duration {
	return time.Duration(c.Business.QuotationValidityDays) * 24 * time.Hour
}

// AdminPassword returns the configured default admin password.
// In debug mode an unset password falls back to a development value.
func (c *Config) AdminPassword() string {
	if c.Admin.Password == "" {
		return "admin123"
	}
	return c.Admin.Password
}
