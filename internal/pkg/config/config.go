package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/seatsweep/seatsweep/internal/pkg/env"
)

// Config is the explicit, validated startup configuration. Everything the
// service reads from the environment is collected here once so a missing
// value fails at boot with the field named instead of surfacing as a nil
// dereference deep inside a run.
type Config struct {
	AppHost string `validate:"required"`
	AppPort string `validate:"required,numeric"`

	DBUser     string `validate:"required"`
	DBPassword string `validate:"required"`
	DBHost     string `validate:"required"`
	DBName     string `validate:"required"`

	CacheHost string
	CachePort string

	// CredentialKeyHex is the AES-256 key sealing tenant directory tokens.
	CredentialKeyHex string `validate:"required,len=64,hexadecimal"`

	// WebhookSecret signs payment-processor webhook payloads.
	WebhookSecret string `validate:"required"`

	// InternalSecret authenticates the internal audit trigger endpoint.
	InternalSecret string `validate:"required,min=16"`

	// DirectorySigningSecret verifies interaction callbacks from the
	// directory platform.
	DirectorySigningSecret string `validate:"required"`

	DirectoryBaseURL string `validate:"required,url"`
	PaymentBaseURL   string `validate:"required,url"`
	PaymentAPIKey    string `validate:"required"`

	// Audit tuning.
	TenantBatchSize  int           `validate:"min=1"`
	GuestConcurrency int           `validate:"min=1"`
	LookbackDays     int           `validate:"min=1"`
	ClaimStaleness   time.Duration `validate:"min=1m"`
}

// Load assembles the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:                env.GetEnv("APP_HOST", "localhost"),
		AppPort:                env.GetEnv("APP_PORT", "4000"),
		DBUser:                 env.GetEnv("DB_USER", ""),
		DBPassword:             env.GetEnv("DB_PASSWORD", ""),
		DBHost:                 env.GetEnv("DB_HOST", "127.0.0.1"),
		DBName:                 env.GetEnv("DB_NAME", ""),
		CacheHost:              env.GetEnv("CACHE_HOST", "localhost"),
		CachePort:              env.GetEnv("CACHE_PORT", "6379"),
		CredentialKeyHex:       env.GetEnv("CREDENTIAL_KEY", ""),
		WebhookSecret:          env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		InternalSecret:         env.GetEnv("INTERNAL_API_SECRET", ""),
		DirectorySigningSecret: env.GetEnv("DIRECTORY_SIGNING_SECRET", ""),
		DirectoryBaseURL:       env.GetEnv("DIRECTORY_API_BASE_URL", "https://directory.example.com/api"),
		PaymentBaseURL:         env.GetEnv("PAYMENT_API_BASE_URL", "https://api.payproc.example.com/v1"),
		PaymentAPIKey:          env.GetEnv("PAYMENT_API_KEY", ""),
		TenantBatchSize:        getEnvInt("AUDIT_TENANT_BATCH_SIZE", 5),
		GuestConcurrency:       getEnvInt("AUDIT_GUEST_CONCURRENCY", 4),
		LookbackDays:           getEnvInt("AUDIT_LOOKBACK_DAYS", 30),
		ClaimStaleness:         getEnvDuration("CLAIM_STALENESS", 10*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the config and reports the first offending field by name.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("config: field %s failed rule %q", verrs[0].Field(), verrs[0].Tag())
	}
	return fmt.Errorf("config: %w", err)
}

func getEnvInt(key string, def int) int {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := env.GetEnv(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
