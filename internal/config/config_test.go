package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		Port:                     "8080",
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		ThreadsAPIBaseURL:        "https://graph.threads.net",
		SyncPageSize:             25,
		SyncMaxPosts:             100,
		InsightsBatchSize:        10,
		InsightsBatchDelayMS:     500,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDevTokenOutsideDevelopment(t *testing.T) {
	c := validConfig()
	c.ThreadsDevAccessToken = "dev-token"

	assert.NoError(t, c.Validate())

	c.Env = "production"
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "THREADS_DEV_ACCESS_TOKEN")
}

func TestConfig_ValidateSyncBounds(t *testing.T) {
	c := validConfig()
	c.SyncPageSize = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.SyncPageSize = 101
	assert.Error(t, c.Validate())

	c = validConfig()
	c.InsightsBatchSize = 0
	assert.Error(t, c.Validate())
}

func TestConfig_EnvHelpers(t *testing.T) {
	c := validConfig()
	assert.True(t, c.IsDevelopment())
	assert.False(t, c.IsProduction())

	c.Env = "staging"
	assert.True(t, c.IsProduction())
	assert.False(t, c.IsDevelopment())

	c.Env = ""
	assert.False(t, c.IsProduction())
	assert.False(t, c.IsDevelopment())

	c.InsightsBatchDelayMS = 250
	assert.Equal(t, int64(250), c.InsightsBatchDelay().Milliseconds())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("THREADS_API_BASE_URL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("THREADS_API_BASE_URL", "https://graph.threads.net/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "https://graph.threads.net", c.ThreadsAPIBaseURL)
	assert.Equal(t, 25, c.SyncPageSize)
	assert.Equal(t, 100, c.SyncMaxPosts)
	assert.Equal(t, 50, c.InsightsManualLimit)
	assert.Equal(t, 24, c.InsightsStaleHours)
}
