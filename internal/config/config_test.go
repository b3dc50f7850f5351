package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDefaults() *Config {
	return &Config{
		Store:  StoreConfig{Driver: "sqlite", DatabaseURL: "test.db"},
		Server: ServerConfig{Port: 8080},
		Pricing: PricingConfig{
			DefaultMarkup:      1.4,
			DefaultMotorMarkup: 1.2,
			HoursPerDay:        8,
			Currency:           "GBP",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1.4, cfg.Pricing.DefaultMarkup)
	assert.Equal(t, 1.2, cfg.Pricing.DefaultMotorMarkup)
	assert.Equal(t, 8.0, cfg.Pricing.HoursPerDay)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FANQUOTE_PRICING_DEFAULT_MARKUP", "1.6")
	t.Setenv("FANQUOTE_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.6, cfg.Pricing.DefaultMarkup)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestValidateDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestValidateMarkups(t *testing.T) {
	cfg := validDefaults()
	cfg.Pricing.DefaultMarkup = 0.9
	err := cfg.Validate("quote")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_markup")

	cfg.Pricing.DefaultMarkup = 1.4
	cfg.Pricing.DefaultMotorMarkup = 0
	err = cfg.Validate("quote")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_motor_markup")
}

func TestValidatePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate("serve"))
	// Port is only checked for serve.
	assert.NoError(t, cfg.Validate("quote"))
}

func TestValidateHoursPerDay(t *testing.T) {
	cfg := validDefaults()
	cfg.Pricing.HoursPerDay = 0
	err := cfg.Validate("quote")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "working_hours_per_day")
}
