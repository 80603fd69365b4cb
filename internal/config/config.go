package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Address  AddressConfig
	Geocoder GeocoderConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	PoolMin  int
	PoolMax  int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// AddressConfig tunes address entry, import and listing.
type AddressConfig struct {
	MaxSuggestions int
	PageLength     int
	StrictParsing  bool
	ImportColumns  []string
}

// GeocoderConfig points at a Nominatim-compatible search service.
type GeocoderConfig struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
}

// Load reads configuration from environment variables.
// Variables in envFiles (default .env) are loaded first when the files exist;
// variables already set in the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "addressmap")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_POOL_MIN", 2)
	v.SetDefault("DB_POOL_MAX", 10)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")
	v.SetDefault("AUTOCOMPLETE_MAX_SUGGESTIONS", 12)
	v.SetDefault("PAGE_LENGTH", 20)
	v.SetDefault("STRICT_STREET_PARSING", false)
	v.SetDefault("IMPORT_CSV_COLUMNS", "street,city,state")
	v.SetDefault("GEOCODER_URL", "")
	v.SetDefault("GEOCODER_USER_AGENT", "addressmap/1.0")
	v.SetDefault("GEOCODER_TIMEOUT", "10s")

	// Bind environment variables
	v.AutomaticEnv()

	// Build configuration
	cfg := &Config{
		Server: ServerConfig{
			Port:     v.GetString("PORT"),
			Env:      v.GetString("ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			Name:     v.GetString("DB_NAME"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			PoolMin:  v.GetInt("DB_POOL_MIN"),
			PoolMax:  v.GetInt("DB_POOL_MAX"),
		},
		CORS: CORSConfig{
			Origins: parseList(v.GetString("CORS_ORIGINS")),
		},
		Address: AddressConfig{
			MaxSuggestions: v.GetInt("AUTOCOMPLETE_MAX_SUGGESTIONS"),
			PageLength:     v.GetInt("PAGE_LENGTH"),
			StrictParsing:  v.GetBool("STRICT_STREET_PARSING"),
			ImportColumns:  parseColumns(v.GetString("IMPORT_CSV_COLUMNS")),
		},
		Geocoder: GeocoderConfig{
			URL:       v.GetString("GEOCODER_URL"),
			UserAgent: v.GetString("GEOCODER_USER_AGENT"),
			Timeout:   v.GetDuration("GEOCODER_TIMEOUT"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Port == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Database.PoolMin < 0 {
		return fmt.Errorf("DB_POOL_MIN must be non-negative")
	}
	if c.Database.PoolMax < 1 {
		return fmt.Errorf("DB_POOL_MAX must be at least 1")
	}
	if c.Database.PoolMin > c.Database.PoolMax {
		return fmt.Errorf("DB_POOL_MIN must be less than or equal to DB_POOL_MAX")
	}

	// Validate CORS config
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}

	// Validate address config
	if c.Address.MaxSuggestions < 1 {
		return fmt.Errorf("AUTOCOMPLETE_MAX_SUGGESTIONS must be at least 1")
	}
	if c.Address.PageLength < 1 {
		return fmt.Errorf("PAGE_LENGTH must be at least 1")
	}
	if len(c.Address.ImportColumns) == 0 {
		return fmt.Errorf("IMPORT_CSV_COLUMNS is required")
	}

	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("GEOCODER_TIMEOUT must be positive")
	}

	return nil
}

// parseList splits a comma-separated string into a slice, dropping blanks.
func parseList(s string) []string {
	if s == "" {
		return []string{}
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseColumns splits a column list, keeping blank entries as positional
// placeholders.
func parseColumns(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
