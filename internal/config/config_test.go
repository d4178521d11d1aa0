package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ORD", cfg.Checkout.OrderNumberPrefix)
	assert.Equal(t, 3, cfg.Checkout.OrderNumberRetries)
	assert.Equal(t, 5, cfg.Analytics.TopProducts)
	assert.Equal(t, 10, cfg.Analytics.LowStockThreshold)
	assert.Equal(t, uint32(5), cfg.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Breaker.Timeout)
	assert.Equal(t, "UTC", cfg.Analytics.Timezone)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "shop")
	t.Setenv("CHECKOUT_ORDER_NUMBER_RETRIES", "7")
	t.Setenv("JWT_EXPIRATION", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Checkout.OrderNumberRetries)
	assert.Equal(t, 15*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, "postgres://postgres:postgres@db:5432/shop?sslmode=disable", cfg.DB.DSN())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CHECKOUT_ORDER_NUMBER_RETRIES", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "CHECKOUT_ORDER_NUMBER_RETRIES")

	t.Setenv("CHECKOUT_ORDER_NUMBER_RETRIES", "three")
	_, err = Load()
	assert.Error(t, err)
}

func TestAnalyticsConfig_Location(t *testing.T) {
	loc, err := AnalyticsConfig{Timezone: "Asia/Kolkata"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())

	_, err = AnalyticsConfig{Timezone: "Local"}.Location()
	assert.Error(t, err)

	t.Setenv("ANALYTICS_TIMEZONE", "Mars/Olympus_Mons")
	_, err = Load()
	assert.ErrorContains(t, err, "ANALYTICS_TIMEZONE")
}
