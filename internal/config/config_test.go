package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":        "postgres://localhost:5432/tindahan",
		"REDIS_URL":           "redis://localhost:6379/0",
		"JWT_SECRET":          "secret",
		"ADMIN_PASSWORD_HASH": "$argon2id$v=19$m=65536,t=1,p=2$c29tZXNhbHQ$aGFzaA",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "admin", cfg.AdminUsername)
	require.Equal(t, int64(1200), cfg.VATBps)
	require.Equal(t, int64(2000), cfg.SeniorDiscountBps)
	require.Equal(t, int64(5000), cfg.MembershipFee)
	require.Equal(t, 5, cfg.LowStockThreshold)
	require.Equal(t, 3, cfg.ExpiryWindowDays)
	require.True(t, cfg.PromoPriceAtAdd)
	require.Equal(t, 8760*time.Hour, cfg.MembershipValidity)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PORT"] = "9000"
	env["VAT_BPS"] = "1000"
	env["SENIOR_DISCOUNT_BPS"] = "1500"
	env["LOW_STOCK_THRESHOLD"] = "10"
	env["PROMO_PRICE_AT_ADD"] = "false"

	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.HTTPAddr())
	require.Equal(t, int64(1000), cfg.VATBps)
	require.Equal(t, int64(1500), cfg.SeniorDiscountBps)
	require.Equal(t, 10, cfg.LowStockThreshold)
	require.False(t, cfg.PromoPriceAtAdd)
}

func TestLoadRequiresCoreValues(t *testing.T) {
	for _, missing := range []string{"DATABASE_URL", "REDIS_URL", "JWT_SECRET", "ADMIN_PASSWORD_HASH"} {
		env := baseEnv()
		env[missing] = ""
		_, err := LoadForTests(env)
		require.Error(t, err, missing)
	}
}

func TestLoadRejectsOutOfRangeRates(t *testing.T) {
	env := baseEnv()
	env["SENIOR_DISCOUNT_BPS"] = "20000"
	_, err := LoadForTests(env)
	require.Error(t, err)
}
