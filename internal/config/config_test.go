package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/ledger")
	t.Setenv("ENV", "")
	t.Setenv("DEFAULT_COMMISSION_PERCENT", "")
	t.Setenv("DEBT_TOLERANCE", "")
	t.Setenv("SETTLE_CRON", "")
	t.Setenv("SETTLE_GRACE", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("ADMIN_TELEGRAM_IDS", "")
	t.Setenv("TELEGRAM_TOKEN", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 50, cfg.DefaultCommissionPercent)
	assert.Equal(t, int64(0), cfg.DebtTolerance)
	assert.Equal(t, "*/10 * * * *", cfg.SettleCron)
	assert.Equal(t, 30*time.Minute, cfg.SettleGrace)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.AdminIDs)
	assert.False(t, cfg.BotEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/ledger")
	t.Setenv("ENV", "production")
	t.Setenv("DEFAULT_COMMISSION_PERCENT", "65")
	t.Setenv("DEBT_TOLERANCE", "50")
	t.Setenv("SETTLE_CRON", "0 * * * *")
	t.Setenv("SETTLE_GRACE", "2h")
	t.Setenv("ADMIN_TELEGRAM_IDS", "101, 202,,303")
	t.Setenv("TELEGRAM_TOKEN", "token")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 65, cfg.DefaultCommissionPercent)
	assert.Equal(t, int64(50), cfg.DebtTolerance)
	assert.Equal(t, 2*time.Hour, cfg.SettleGrace)
	assert.Equal(t, []int64{101, 202, 303}, cfg.AdminIDs)
	assert.True(t, cfg.BotEnabled())
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing dsn", "DB_DSN", ""},
		{"percent out of range", "DEFAULT_COMMISSION_PERCENT", "101"},
		{"percent not a number", "DEFAULT_COMMISSION_PERCENT", "half"},
		{"negative tolerance", "DEBT_TOLERANCE", "-1"},
		{"bad grace", "SETTLE_GRACE", "soon"},
		{"bad cron", "SETTLE_CRON", "every minute"},
		{"bad admin id", "ADMIN_TELEGRAM_IDS", "12,abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "postgres://localhost/ledger")
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
