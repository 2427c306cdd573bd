package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/akylbek/payment-system/payment-core/internal/validation"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"

	SettlementInline   = "inline"
	SettlementDeferred = "deferred"
)

type Config struct {
	Port           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   string
	KafkaTopic     string
	PublishTimeout time.Duration
	NatsURL        string
	NatsSubject    string
	JaegerEndpoint string
	TracingEnabled bool

	LedgerBackend      string
	IdempotencyBackend string
	IdempotencyTTL     time.Duration

	CutoffTime     string
	CutoffTimezone string
	Holidays       []string

	SettlementMode             string
	SettlementWorkers          int
	SettlementMaxAmountMinor   int64
	SettlementCurrencyLimits   map[string]int64
	SettlementBlockedCountries []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("KAFKA_TOPIC", "payment.status.changed")
	v.SetDefault("PUBLISH_TIMEOUT", "250ms")
	v.SetDefault("NATS_SUBJECT", "payments.settled")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("LEDGER_BACKEND", BackendMemory)
	v.SetDefault("IDEMPOTENCY_BACKEND", BackendMemory)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("CUTOFF_TIME", "16:00")
	v.SetDefault("CUTOFF_TIMEZONE", "Europe/Stockholm")
	v.SetDefault("HOLIDAYS", "")
	v.SetDefault("SETTLEMENT_MODE", SettlementInline)
	v.SetDefault("SETTLEMENT_WORKERS", 4)
	v.SetDefault("SETTLEMENT_MAX_AMOUNT_MINOR", int64(100_000_000))
	v.SetDefault("SETTLEMENT_BLOCKED_COUNTRIES", "")
	v.SetDefault("SETTLEMENT_CURRENCY_LIMITS", "")
}

// Load reads configuration from the environment, falling back to defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		RedisURL:       v.GetString("REDIS_URL"),
		KafkaBrokers:   v.GetString("KAFKA_BROKERS"),
		KafkaTopic:     v.GetString("KAFKA_TOPIC"),
		PublishTimeout: v.GetDuration("PUBLISH_TIMEOUT"),
		NatsURL:        v.GetString("NATS_URL"),
		NatsSubject:    v.GetString("NATS_SUBJECT"),
		JaegerEndpoint: v.GetString("JAEGER_ENDPOINT"),
		TracingEnabled: v.GetBool("TRACING_ENABLED"),

		LedgerBackend:      strings.ToLower(v.GetString("LEDGER_BACKEND")),
		IdempotencyBackend: strings.ToLower(v.GetString("IDEMPOTENCY_BACKEND")),
		IdempotencyTTL:     v.GetDuration("IDEMPOTENCY_TTL"),

		CutoffTime:     v.GetString("CUTOFF_TIME"),
		CutoffTimezone: v.GetString("CUTOFF_TIMEZONE"),
		Holidays:       splitList(v.GetString("HOLIDAYS")),

		SettlementMode:             strings.ToLower(v.GetString("SETTLEMENT_MODE")),
		SettlementWorkers:          v.GetInt("SETTLEMENT_WORKERS"),
		SettlementMaxAmountMinor:   v.GetInt64("SETTLEMENT_MAX_AMOUNT_MINOR"),
		SettlementBlockedCountries: splitList(strings.ToUpper(v.GetString("SETTLEMENT_BLOCKED_COUNTRIES"))),
	}

	limits, err := parseLimits(v.GetString("SETTLEMENT_CURRENCY_LIMITS"))
	if err != nil {
		return nil, err
	}
	cfg.SettlementCurrencyLimits = limits
	return cfg, cfg.Validate()
}

// parseLimits reads "SEK=500000000,USD=50000000"
func parseLimits(s string) (map[string]int64, error) {
	limits := make(map[string]int64)
	for _, part := range splitList(s) {
		code, amount, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("SETTLEMENT_CURRENCY_LIMITS entry %q is not CUR=amount", part)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SETTLEMENT_CURRENCY_LIMITS entry %q: %w", part, err)
		}
		limits[strings.ToUpper(strings.TrimSpace(code))] = n
	}
	return limits, nil
}

// Validate rejects combinations the service cannot start with
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("LEDGER_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend)
	}

	switch c.IdempotencyBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=postgres requires DATABASE_URL")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("IDEMPOTENCY_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown IDEMPOTENCY_BACKEND %q", c.IdempotencyBackend)
	}

	// a durable key pointing into a ledger that forgets on restart replays nothing
	if c.LedgerBackend == BackendMemory && c.IdempotencyBackend != BackendMemory {
		return fmt.Errorf("IDEMPOTENCY_BACKEND=%s requires a durable LEDGER_BACKEND", c.IdempotencyBackend)
	}

	if c.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive")
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive")
	}

	switch c.SettlementMode {
	case SettlementInline, SettlementDeferred:
	default:
		return fmt.Errorf("unknown SETTLEMENT_MODE %q", c.SettlementMode)
	}
	if c.SettlementMode == SettlementDeferred && c.SettlementWorkers < 1 {
		return fmt.Errorf("SETTLEMENT_WORKERS must be at least 1")
	}
	if c.SettlementMaxAmountMinor <= 0 {
		return fmt.Errorf("SETTLEMENT_MAX_AMOUNT_MINOR must be positive")
	}
	for code, limit := range c.SettlementCurrencyLimits {
		if !validation.IsSupportedCurrency(code) {
			return fmt.Errorf("SETTLEMENT_CURRENCY_LIMITS names unsupported currency %q", code)
		}
		if limit <= 0 {
			return fmt.Errorf("SETTLEMENT_CURRENCY_LIMITS for %s must be positive", code)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
