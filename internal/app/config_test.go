package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Addr:        defaultAddr,
		DatabaseURL: "postgres://localhost/sambamart",
		Auth:        AuthConfig{Secret: "s3cret"},
		Orders:      OrdersConfig{UnknownProducts: "skip", StoreTimeout: 5 * time.Second},
		RateLimit:   RateLimitConfig{Max: 100, Window: time.Minute},
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	for _, tt := range []struct {
		name   string
		modify func(*Config)
	}{
		{"NoDatabase", func(c *Config) { c.DatabaseURL = "" }},
		{"NoSecret", func(c *Config) { c.Auth.Secret = "" }},
		{"BadPolicy", func(c *Config) { c.Orders.UnknownProducts = "ignore" }},
		{"BadRateLimit", func(c *Config) { c.RateLimit.Max = 0 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL": "postgres://platform/db",
		"PORT":         "9090",
	}
	getenv := func(k string) string { return env[k] }

	t.Run("Fallbacks", func(t *testing.T) {
		cfg := Config{Addr: defaultAddr}
		cfg.applyPlatformDefaults(getenv)
		assert.Equal(t, "postgres://platform/db", cfg.DatabaseURL)
		assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
	})
	t.Run("ExplicitWins", func(t *testing.T) {
		cfg := Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/db"}
		cfg.applyPlatformDefaults(getenv)
		assert.Equal(t, "postgres://explicit/db", cfg.DatabaseURL)
		assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	})
}
