// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	DBHost                        string `mapstructure:"DB_HOST"`
	DBPort                        string `mapstructure:"DB_PORT"`
	DBUser                        string `mapstructure:"DB_USER"`
	DBPassword                    string `mapstructure:"DB_PASSWORD"`
	DBName                        string `mapstructure:"DB_NAME"`
	DBSSLMode                     string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// Threads Graph API
	ThreadsAPIBaseURL         string  `mapstructure:"THREADS_API_BASE_URL"`
	ThreadsAPIVersion         string  `mapstructure:"THREADS_API_VERSION"`
	ThreadsHTTPTimeoutSeconds int     `mapstructure:"THREADS_HTTP_TIMEOUT_SECONDS"`
	ThreadsRatePerSecond      float64 `mapstructure:"THREADS_RATE_PER_SECOND"`
	ThreadsRateBurst          int     `mapstructure:"THREADS_RATE_BURST"`
	// ThreadsDevAccessToken is only honoured when APP_ENV=development.
	ThreadsDevAccessToken     string `mapstructure:"THREADS_DEV_ACCESS_TOKEN"`
	ThreadsWebhookVerifyToken string `mapstructure:"THREADS_WEBHOOK_VERIFY_TOKEN"`

	// DevSeedUserID, when set in development, gets demo posts on startup if
	// that user has none.
	DevSeedUserID string `mapstructure:"DEV_SEED_USER_ID"`

	SyncPageSize int `mapstructure:"SYNC_PAGE_SIZE"`
	SyncMaxPosts int `mapstructure:"SYNC_MAX_POSTS"`

	InsightsManualLimit        int `mapstructure:"INSIGHTS_MANUAL_LIMIT"`
	InsightsBatchSize          int `mapstructure:"INSIGHTS_BATCH_SIZE"`
	InsightsBatchDelayMS       int `mapstructure:"INSIGHTS_BATCH_DELAY_MS"`
	InsightsOpportunisticLimit int `mapstructure:"INSIGHTS_OPPORTUNISTIC_LIMIT"`
	InsightsStaleHours         int `mapstructure:"INSIGHTS_STALE_HOURS"`
	InsightsMaxAgeDays         int `mapstructure:"INSIGHTS_MAX_AGE_DAYS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	viper.SetDefault("FEATURE_FLAGS", "opportunistic_insights=on")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "threadpulse")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)

	viper.SetDefault("REDIS_URL", "localhost:6379")

	viper.SetDefault("THREADS_API_BASE_URL", "https://graph.threads.net")
	viper.SetDefault("THREADS_API_VERSION", "v1.0")
	viper.SetDefault("THREADS_HTTP_TIMEOUT_SECONDS", 15)
	viper.SetDefault("THREADS_RATE_PER_SECOND", 10)
	viper.SetDefault("THREADS_RATE_BURST", 10)
	viper.SetDefault("THREADS_DEV_ACCESS_TOKEN", "")
	viper.SetDefault("THREADS_WEBHOOK_VERIFY_TOKEN", "")
	viper.SetDefault("DEV_SEED_USER_ID", "")

	viper.SetDefault("SYNC_PAGE_SIZE", 25)
	viper.SetDefault("SYNC_MAX_POSTS", 100)

	viper.SetDefault("INSIGHTS_MANUAL_LIMIT", 50)
	viper.SetDefault("INSIGHTS_BATCH_SIZE", 10)
	viper.SetDefault("INSIGHTS_BATCH_DELAY_MS", 500)
	viper.SetDefault("INSIGHTS_OPPORTUNISTIC_LIMIT", 5)
	viper.SetDefault("INSIGHTS_STALE_HOURS", 24)
	viper.SetDefault("INSIGHTS_MAX_AGE_DAYS", 30)

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.ThreadsAPIBaseURL = strings.TrimRight(strings.TrimSpace(c.ThreadsAPIBaseURL), "/")
	c.ThreadsDevAccessToken = strings.TrimSpace(c.ThreadsDevAccessToken)
	c.DevSeedUserID = strings.TrimSpace(c.DevSeedUserID)
}

// IsProduction reports whether the configured environment is production-like.
func (c *Config) IsProduction() bool {
	switch c.Env {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// IsDevelopment reports whether development-only conveniences may be
// enabled. An unset environment does not count.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ThreadsHTTPTimeout returns the per-request timeout for the Threads API client.
func (c *Config) ThreadsHTTPTimeout() time.Duration {
	return time.Duration(c.ThreadsHTTPTimeoutSeconds) * time.Second
}

// InsightsBatchDelay returns the pause between refresh batches.
func (c *Config) InsightsBatchDelay() time.Duration {
	return time.Duration(c.InsightsBatchDelayMS) * time.Millisecond
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ThreadsAPIBaseURL == "" {
		return errors.New("THREADS_API_BASE_URL is required")
	}
	if c.SyncPageSize < 1 || c.SyncPageSize > 100 {
		return fmt.Errorf("SYNC_PAGE_SIZE must be between 1 and 100, got %d", c.SyncPageSize)
	}
	if c.SyncMaxPosts < 1 {
		return fmt.Errorf("SYNC_MAX_POSTS must be positive, got %d", c.SyncMaxPosts)
	}
	if c.InsightsBatchSize < 1 {
		return fmt.Errorf("INSIGHTS_BATCH_SIZE must be positive, got %d", c.InsightsBatchSize)
	}
	if c.InsightsBatchDelayMS < 0 {
		return errors.New("INSIGHTS_BATCH_DELAY_MS must not be negative")
	}
	if c.DBConnMaxLifetimeMinutes < 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.ThreadsDevAccessToken != "" {
			return errors.New("THREADS_DEV_ACCESS_TOKEN must not be set in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
