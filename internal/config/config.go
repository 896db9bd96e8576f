package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"carrental/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Booking    BookingConfig    `yaml:"booking"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Seed       SeedConfig       `yaml:"seed"`
}

type BookingConfig struct {
	AttemptsLimit  int `yaml:"attempts_limit"`
	AttemptsWindow int `yaml:"attempts_window"`
}

// Window returns the attempt-limiter window as a duration.
func (c BookingConfig) Window() time.Duration {
	return time.Duration(c.AttemptsWindow) * time.Second
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenTTL       string         `yaml:"token_ttl"`
	Issuer         string         `yaml:"issuer"`
	BootstrapAdmin string         `yaml:"bootstrap_admin"`
	HeaderAPIKey   string         `yaml:"header_api_key"`
	HeaderExtra    string         `yaml:"header_extra"`
	APIKeys        []APIClientKey `yaml:"api_keys"`
}

// TTL parses TokenTTL, falling back to 24h.
func (c APIAuthConfig) TTL() time.Duration {
	if d, err := time.ParseDuration(c.TokenTTL); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}

// APIClientKey is a service credential that acts on behalf of a user.
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	UserID      int64    `yaml:"user_id"`
	Role        string   `yaml:"role"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigin string `yaml:"allowed_origin"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	Timezone    string `yaml:"timezone"`
}

// Location resolves Timezone, defaulting to UTC.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string            `yaml:"credentials_file"`
	BookingSpreadSheetID  string            `yaml:"bookings_spreadsheet_id"`
	Retry                 SheetsRetryConfig `yaml:"retry"`
}

// SheetsRetryConfig controls how failed spreadsheet writes are retried.
type SheetsRetryConfig struct {
	MaxRetries   int     `yaml:"max_retries"`
	InitialDelay string  `yaml:"initial_delay"`
	MaxDelay     string  `yaml:"max_delay"`
	Factor       float64 `yaml:"factor"`
}

func (c SheetsRetryConfig) validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("google.retry.max_retries must be positive, got %d", c.MaxRetries)
	}
	initial, err := time.ParseDuration(c.InitialDelay)
	if err != nil || initial <= 0 {
		return fmt.Errorf("invalid google.retry.initial_delay %q", c.InitialDelay)
	}
	maxDelay, err := time.ParseDuration(c.MaxDelay)
	if err != nil || maxDelay < initial {
		return fmt.Errorf("invalid google.retry.max_delay %q", c.MaxDelay)
	}
	if c.Factor < 1 {
		return fmt.Errorf("google.retry.factor must be at least 1, got %g", c.Factor)
	}
	return nil
}

// Enabled reports whether the bookings spreadsheet mirror is configured.
func (c GoogleConfig) Enabled() bool {
	return c.GoogleCredentialsFile != "" && c.BookingSpreadSheetID != ""
}

type SeedConfig struct {
	CarsFile string `yaml:"cars_file"`
}

func Load(configPath string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.API.Auth.JWTSecret == "" || c.API.Auth.JWTSecret == "CHANGE_ME" {
		return errors.New("api.auth.jwt_secret is required")
	}

	if c.App.Timezone != "" {
		if _, err := time.LoadLocation(c.App.Timezone); err != nil {
			return fmt.Errorf("invalid app.timezone %q: %w", c.App.Timezone, err)
		}
	}

	if c.Booking.AttemptsLimit <= 0 {
		return fmt.Errorf("booking.attempts_limit must be positive, got %d", c.Booking.AttemptsLimit)
	}
	if c.Booking.AttemptsWindow <= 0 {
		return fmt.Errorf("booking.attempts_window must be positive, got %d", c.Booking.AttemptsWindow)
	}

	if c.Google.Enabled() {
		if err := c.Google.Retry.validate(); err != nil {
			return err
		}
	}

	return ValidateAPIKeys(c.API.Auth.APIKeys)
}

// ValidateAPIKeys rejects duplicate keys and keys without a user binding.
func ValidateAPIKeys(keys []APIClientKey) error {
	seen := make(map[string]bool)
	for _, k := range keys {
		if k.Key == "" {
			return fmt.Errorf("api key '%s' has empty key", k.Name)
		}
		if seen[k.Key] {
			return fmt.Errorf("duplicate api key found: %s", k.Name)
		}
		if k.UserID == 0 {
			return fmt.Errorf("api key '%s' has no user_id", k.Name)
		}
		if k.Role != "" && k.Role != models.RoleUser && k.Role != models.RoleAdmin {
			return fmt.Errorf("api key '%s' has unknown role %q", k.Name, k.Role)
		}
		seen[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "carrental"
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}
	if c.API.Auth.TokenTTL == "" {
		c.API.Auth.TokenTTL = "24h"
	}
	if c.API.Auth.Issuer == "" {
		c.API.Auth.Issuer = c.App.Name
	}
	if c.API.CORS.AllowedOrigin == "" {
		c.API.CORS.AllowedOrigin = "*"
	}
	for i := range c.API.Auth.APIKeys {
		if c.API.Auth.APIKeys[i].Role == "" {
			c.API.Auth.APIKeys[i].Role = models.RoleUser
		}
	}

	if c.Booking.AttemptsLimit == 0 {
		c.Booking.AttemptsLimit = models.BookingAttemptsLimit
	}
	if c.Booking.AttemptsWindow == 0 {
		c.Booking.AttemptsWindow = models.BookingAttemptsWindow
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Google.Retry.MaxRetries == 0 {
		c.Google.Retry.MaxRetries = 5
	}
	if c.Google.Retry.InitialDelay == "" {
		c.Google.Retry.InitialDelay = "2s"
	}
	if c.Google.Retry.MaxDelay == "" {
		c.Google.Retry.MaxDelay = "1m"
	}
	if c.Google.Retry.Factor == 0 {
		c.Google.Retry.Factor = 2
	}
	if c.Seed.CarsFile == "" {
		c.Seed.CarsFile = "configs/cars.yaml"
	}
}
