package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Rate providers
const (
	ProviderJSON = "json"
	ProviderCBR  = "cbr"
)

// Config holds application configuration
type Config struct {
	Port         string
	LogLevel     string
	BaseCurrency string

	RatesProvider string
	RatesURL      string
	CBRURL        string
	RatesTimeout  time.Duration

	TransferLimit      decimal.Decimal
	TransferWindowDays int

	RateCacheDays    int
	RateCacheCleanup string
	RateWarmup       string

	RedisAddr     string
	RedisPassword string
	RedisTTL      time.Duration
}

// NewConfig loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:             getEnv("PORT", "8888"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		BaseCurrency:     strings.ToUpper(getEnv("BASE_CURRENCY", "EUR")),
		RatesProvider:    strings.ToLower(getEnv("RATES_PROVIDER", ProviderJSON)),
		RatesURL:         getEnv("RATES_URL", "https://api.frankfurter.app/{date}"),
		CBRURL:           getEnv("CBR_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
		RateCacheCleanup: getEnv("RATE_CACHE_CLEANUP", "@daily"),
		RateWarmup:       getEnv("RATE_WARMUP", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
	}

	var err error
	if cfg.RatesTimeout, err = getDuration("RATES_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisTTL, err = getDuration("REDIS_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TransferWindowDays, err = getInt("TRANSFER_WINDOW_DAYS", 5); err != nil {
		return nil, err
	}
	if cfg.RateCacheDays, err = getInt("RATE_CACHE_DAYS", 30); err != nil {
		return nil, err
	}
	cfg.TransferLimit, err = decimal.NewFromString(getEnv("TRANSFER_LIMIT", "10000"))
	if err != nil {
		return nil, fmt.Errorf("TRANSFER_LIMIT is invalid: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.BaseCurrency == "" {
		return fmt.Errorf("BASE_CURRENCY is required")
	}
	switch c.RatesProvider {
	case ProviderJSON:
		if !strings.Contains(c.RatesURL, "{date}") {
			return fmt.Errorf("RATES_URL must contain a {date} placeholder")
		}
	case ProviderCBR:
		if c.CBRURL == "" {
			return fmt.Errorf("CBR_URL is required")
		}
		if c.BaseCurrency != "RUB" {
			return fmt.Errorf("RATES_PROVIDER=cbr quotes against RUB, got BASE_CURRENCY=%s", c.BaseCurrency)
		}
	default:
		return fmt.Errorf("unknown RATES_PROVIDER %q", c.RatesProvider)
	}
	if c.RatesTimeout <= 0 {
		return fmt.Errorf("RATES_TIMEOUT must be positive")
	}
	if !c.TransferLimit.IsPositive() {
		return fmt.Errorf("TRANSFER_LIMIT must be positive")
	}
	if c.TransferWindowDays < 0 {
		return fmt.Errorf("TRANSFER_WINDOW_DAYS must not be negative")
	}
	if c.RateCacheDays <= 0 {
		return fmt.Errorf("RATE_CACHE_DAYS must be positive")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s is invalid: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultVal, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s is invalid: %w", key, err)
	}
	return v, nil
}
