package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	TelegramToken string  `mapstructure:"TELEGRAM_TOKEN"`
	AdminIDs      []int64 `mapstructure:"ADMIN_TELEGRAM_IDS"`
	DBDSN         string  `mapstructure:"DB_DSN"`
	Environment   string  `mapstructure:"ENV"`

	DefaultCommissionPercent int   `mapstructure:"DEFAULT_COMMISSION_PERCENT"`
	DebtTolerance            int64 `mapstructure:"DEBT_TOLERANCE"` // в копейках

	SettleCron  string        `mapstructure:"SETTLE_CRON"`
	SettleGrace time.Duration `mapstructure:"SETTLE_GRACE"`

	MetricsAddr string `mapstructure:"METRICS_ADDR"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Environment:   getenv("ENV", "development"),
		SettleCron:    getenv("SETTLE_CRON", "*/10 * * * *"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	var err error

	cfg.DefaultCommissionPercent, err = strconv.Atoi(getenv("DEFAULT_COMMISSION_PERCENT", "50"))
	if err != nil {
		return nil, fmt.Errorf("parse DEFAULT_COMMISSION_PERCENT: %w", err)
	}
	if cfg.DefaultCommissionPercent <= 0 || cfg.DefaultCommissionPercent > 100 {
		return nil, fmt.Errorf("DEFAULT_COMMISSION_PERCENT must be in (0, 100], got %d", cfg.DefaultCommissionPercent)
	}

	cfg.DebtTolerance, err = strconv.ParseInt(getenv("DEBT_TOLERANCE", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse DEBT_TOLERANCE: %w", err)
	}
	if cfg.DebtTolerance < 0 {
		return nil, fmt.Errorf("DEBT_TOLERANCE must not be negative")
	}

	cfg.SettleGrace, err = time.ParseDuration(getenv("SETTLE_GRACE", "30m"))
	if err != nil {
		return nil, fmt.Errorf("parse SETTLE_GRACE: %w", err)
	}

	if _, err := cron.ParseStandard(cfg.SettleCron); err != nil {
		return nil, fmt.Errorf("parse SETTLE_CRON: %w", err)
	}

	cfg.AdminIDs, err = parseIDs(os.Getenv("ADMIN_TELEGRAM_IDS"))
	if err != nil {
		return nil, fmt.Errorf("parse ADMIN_TELEGRAM_IDS: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// BotEnabled - без токена уведомления и команды бота отключены
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
