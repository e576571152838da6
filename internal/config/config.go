// Package config содержит логику чтения конфигурации сервиса комплектования.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
)

// Режимы блокировки счетов.
const (
	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

const maxPrecision = 8

// Config содержит параметры конфигурации сервиса комплектования.
type Config struct {
	RunAddress          string `env:"RUN_ADDRESS"`
	DatabaseURI         string `env:"DATABASE_URI"`
	ExchangeRateAddress string `env:"EXCHANGE_RATE_ADDRESS"`
	MoneyPrecision      int32  `env:"MONEY_PRECISION"`
	RedisAddress        string `env:"REDIS_ADDRESS"`
	AccountLock         string `env:"ACCOUNT_LOCK"`
	AuthSecret          string `env:"AUTH_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envExchangeAddress := cfg.ExchangeRateAddress
	envPrecision := cfg.MoneyPrecision
	_, envPrecisionSet := os.LookupEnv("MONEY_PRECISION")
	envRedisAddress := cfg.RedisAddress
	envAccountLock := cfg.AccountLock

	var precision int
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory store when empty")
	flag.StringVar(&cfg.ExchangeRateAddress, "r", "", "exchange rate service address")
	flag.IntVar(&precision, "p", 2, "number of decimal places for money amounts")
	flag.StringVar(&cfg.RedisAddress, "l", "", "redis address for account locks")
	flag.StringVar(&cfg.AccountLock, "k", "", "account lock mode: none, local or redis")

	flag.Parse()

	cfg.MoneyPrecision = int32(precision)

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envExchangeAddress != "" {
		cfg.ExchangeRateAddress = envExchangeAddress
	}
	if envPrecisionSet {
		cfg.MoneyPrecision = envPrecision
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envAccountLock != "" {
		cfg.AccountLock = envAccountLock
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AccountLock == "" {
		cfg.AccountLock = LockNone
		if cfg.RedisAddress != "" {
			cfg.AccountLock = LockRedis
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MoneyPrecision < 0 || c.MoneyPrecision > maxPrecision {
		return fmt.Errorf("money precision must be between 0 and %d, got %d", maxPrecision, c.MoneyPrecision)
	}
	switch c.AccountLock {
	case LockNone, LockLocal:
	case LockRedis:
		if c.RedisAddress == "" {
			return fmt.Errorf("account lock mode redis requires REDIS_ADDRESS")
		}
	default:
		return fmt.Errorf("unknown account lock mode %q", c.AccountLock)
	}
	return nil
}
