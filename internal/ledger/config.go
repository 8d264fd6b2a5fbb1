package ledger

import (
	"os"
	"strconv"
	"time"

	"ledger_service/internal/async"
	"ledger_service/internal/backup"
	"ledger_service/internal/currency"
	"ledger_service/internal/money"
)

type Config struct {
	// DefaultCurrency is created as primary when the store holds no
	// non-deleted currency.
	DefaultCurrency currency.Seed
	RoundingMode    money.RoundingMode
	AsyncQueueSize  int
	ShutdownWait    time.Duration
	MaxSnapshots    int
}

func DefaultConfig() Config {
	return Config{
		DefaultCurrency: currency.DefaultSeed(),
		RoundingMode:    money.RoundDown,
		AsyncQueueSize:  async.DefaultQueueSize,
		ShutdownWait:    10 * time.Second,
		MaxSnapshots:    backup.DefaultMaxSnapshots,
	}
}

// ConfigFromEnv reads the recognized environment variables over the
// defaults. Unset or malformed values fall back silently.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("DEFAULT_CURRENCY_IDENTIFIER"); v != "" {
		cfg.DefaultCurrency.Identifier = v
	}
	if v := os.Getenv("DEFAULT_CURRENCY_NAME"); v != "" {
		cfg.DefaultCurrency.Name = v
	}
	if v := os.Getenv("DEFAULT_CURRENCY_SYMBOL"); v != "" {
		cfg.DefaultCurrency.Symbol = v
	}
	if v, err := strconv.ParseInt(os.Getenv("DEFAULT_CURRENCY_PRECISION"), 10, 32); err == nil {
		cfg.DefaultCurrency.Precision = int32(v)
	}
	if v, err := strconv.ParseInt(os.Getenv("DEFAULT_CURRENCY_MAX_BALANCE"), 10, 64); err == nil {
		cfg.DefaultCurrency.DefaultMaxBalance = v
	}
	if v, err := strconv.ParseBool(os.Getenv("DEFAULT_CURRENCY_CONSOLE_LOG")); err == nil {
		cfg.DefaultCurrency.ConsoleLog = v
	}
	cfg.RoundingMode = money.ParseRoundingMode(os.Getenv("ROUNDING_MODE"))
	if v, err := strconv.Atoi(os.Getenv("ASYNC_QUEUE_SIZE")); err == nil && v > 0 {
		cfg.AsyncQueueSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("ASYNC_SHUTDOWN_WAIT_SECONDS")); err == nil && v > 0 {
		cfg.ShutdownWait = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("BACKUP_MAX_SNAPSHOTS")); err == nil && v > 0 {
		cfg.MaxSnapshots = v
	}
	return cfg
}
