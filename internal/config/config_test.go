package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development config", func(c *Config) {}, false},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"production with default JWT secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
		{"production with short JWT secret", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "too-short"
		}, true},
		{"production with default DB password", func(c *Config) {
			c.Env = "production"
			c.DBPassword = "password"
		}, true},
		{"production fully hardened", func(c *Config) {
			c.Env = "production"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Env:        "development",
				Port:       "8642",
				JWTSecret:  "secure-secret-at-least-32-chars-long",
				DBPassword: "secure-password",
				DBSSLMode:  "require",
				RedisURL:   "localhost:6379",
				ImageMaxMB: 10,
			}
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8642", c.Port)
	assert.Equal(t, "lokal", c.DBName)
	assert.Equal(t, "hybrid", c.DBSchemaMode)
	assert.Equal(t, 10, c.ImageMaxMB)
	assert.Equal(t, "/media", c.MediaBaseURL)
	assert.Equal(t, "https://nominatim.openstreetmap.org", c.NominatimURL)
	assert.Equal(t, "stdout", c.TraceExporter)
	assert.False(t, c.SeedDefaultSpots)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer os.Unsetenv("FEATURE_FLAGS")
	defer os.Unsetenv("SEED_DEFAULT_SPOTS")
	defer viper.Reset()

	os.Setenv("FEATURE_FLAGS", "reviews_v2=25%")
	os.Setenv("SEED_DEFAULT_SPOTS", "true")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "reviews_v2=25%", c.FeatureFlags)
	assert.True(t, c.SeedDefaultSpots)
}
