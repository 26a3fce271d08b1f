package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL           string
	HTTPPort              string
	OperatorAPIKey        string
	OperatorAddress       string
	ManagerAddress        string
	CounterpartyAddress   string
	FeeRecipient          string
	PlatformFeeRate       int64
	PriceFeedURL          string
	PriceFeedDelay        time.Duration
	PriceFeedRetryMax     int
	QuoteWorkerInterval   time.Duration
	CouponWorkerInterval  time.Duration
	StatementInterval     time.Duration
	StatementXLSXPath     string
	SheetsSpreadsheetID   string
	SheetsCredentialsJSON string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		OperatorAPIKey:        envOrDefaultWarn("OPERATOR_API_KEY", ""),
		OperatorAddress:       envOrDefault("OPERATOR_ADDRESS", "ops"),
		ManagerAddress:        envOrDefault("MANAGER_ADDRESS", "manager"),
		CounterpartyAddress:   envOrDefault("COUNTERPARTY_ADDRESS", "counterparty"),
		FeeRecipient:          envOrDefault("FEE_RECIPIENT", "fee-recipient"),
		PlatformFeeRate:       int64(envOrDefaultInt("PLATFORM_FEE_RATE", 5)),
		PriceFeedURL:          envOrDefault("PRICE_FEED_URL", "https://api.coingecko.com/api/v3"),
		PriceFeedDelay:        envOrDefaultDuration("PRICE_FEED_DELAY", 6*time.Second),
		PriceFeedRetryMax:     envOrDefaultInt("PRICE_FEED_RETRY_MAX", 5),
		QuoteWorkerInterval:   envOrDefaultDuration("QUOTE_WORKER_INTERVAL", 1*time.Hour),
		CouponWorkerInterval:  envOrDefaultDuration("COUPON_WORKER_INTERVAL", 7*24*time.Hour),
		StatementInterval:     envOrDefaultDuration("STATEMENT_WORKER_INTERVAL", 24*time.Hour),
		StatementXLSXPath:     envOrDefault("STATEMENT_XLSX_PATH", ""),
		SheetsSpreadsheetID:   envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentialsJSON: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
