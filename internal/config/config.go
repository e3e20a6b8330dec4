package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env     string
	HTTP    HTTPConfig
	DBDSN   string
	JWT     JWTConfig
	BaseURL string // frontend base, used for provider back_urls

	MercadoPago MercadoPagoConfig
	Settlement  SettlementConfig
	SMTP        SMTPConfig
	Storage     StorageConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	// webhook + checkout limiter (per client ip)
	RateLimitRPS   float64
	RateLimitBurst int
}

type JWTConfig struct {
	Secret string
}

// MercadoPagoConfig holds env-level provider credentials. A stored
// provider_configs record takes precedence when present.
type MercadoPagoConfig struct {
	AccessToken     string
	PublicKey       string
	BaseURL         string
	WebhookSecret   string
	NotificationURL string
	Sandbox         bool
	Timeout         time.Duration

	// webhook x-signature ts window; negative disables
	SignatureTolerance time.Duration
}

type SettlementConfig struct {
	Currency              string
	DefaultCommissionRate decimal.Decimal
	SweepOlderThan        time.Duration
	SweepBatchSize        int
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// StorageConfig selects where exported statements go.
type StorageConfig struct {
	Driver          string // local | s3
	LocalDir        string
	LocalURLPrefix  string
	S3Region        string
	S3Bucket        string
	S3Prefix        string
	S3PublicBaseURL string
}

// Load reads the process environment. Call godotenv.Load() before it in dev.
func Load() (Config, error) {
	cfg := Config{
		Env: envOr("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Addr:            envOr("HTTP_ADDR", ":8080"),
			ShutdownTimeout: envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimitRPS:    envFloat("RATE_LIMIT_RPS", 10),
			RateLimitBurst:  envInt("RATE_LIMIT_BURST", 20),
		},
		DBDSN:   os.Getenv("DB_DSN"),
		JWT:     JWTConfig{Secret: os.Getenv("JWT_SECRET")},
		BaseURL: strings.TrimRight(envOr("FRONTEND_URL", "http://localhost:5173"), "/"),
		MercadoPago: MercadoPagoConfig{
			AccessToken:     os.Getenv("MP_ACCESS_TOKEN"),
			PublicKey:       os.Getenv("MP_PUBLIC_KEY"),
			BaseURL:         envOr("MP_BASE_URL", "https://api.mercadopago.com"),
			WebhookSecret:   os.Getenv("MP_WEBHOOK_SECRET"),
			NotificationURL: os.Getenv("MP_NOTIFICATION_URL"),
			Sandbox:         envBool("MP_SANDBOX", true),
			Timeout:         envDuration("MP_TIMEOUT", 5*time.Second),

			SignatureTolerance: envDuration("MP_SIGNATURE_TOLERANCE", 10*time.Minute),
		},
		Settlement: SettlementConfig{
			Currency:              strings.ToUpper(envOr("PAYMENT_CURRENCY", "ARS")),
			DefaultCommissionRate: envDecimal("DEFAULT_COMMISSION_RATE", decimal.RequireFromString("10.00")),
			SweepOlderThan:        envDuration("SWEEP_OLDER_THAN", 15*time.Minute),
			SweepBatchSize:        envInt("SWEEP_BATCH_SIZE", 100),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     envInt("SMTP_PORT", 587),
			User:     os.Getenv("SMTP_USER"),
			Pass:     os.Getenv("SMTP_PASS"),
			From:     envOr("SMTP_FROM", "no-reply@softwareparlat.local"),
			FromName: envOr("SMTP_FROM_NAME", "Software Parlat"),
		},
		Storage: StorageConfig{
			Driver:          envOr("STORAGE_DRIVER", "local"),
			LocalDir:        envOr("LOCAL_STORAGE_DIR", "./storage/exports"),
			LocalURLPrefix:  envOr("LOCAL_STORAGE_URL_PREFIX", "/exports"),
			S3Region:        os.Getenv("S3_REGION"),
			S3Bucket:        os.Getenv("S3_BUCKET"),
			S3Prefix:        envOr("S3_PREFIX", "exports"),
			S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
	}

	if cfg.DBDSN == "" {
		return Config{}, errors.New("DB_DSN environment variable is required")
	}
	if cfg.JWT.Secret == "" {
		return Config{}, errors.New("JWT_SECRET environment variable is required")
	}
	if len(cfg.Settlement.Currency) != 3 {
		return Config{}, errors.New("PAYMENT_CURRENCY must be a 3-letter code")
	}
	return cfg, nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envDecimal(k string, def decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(k); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return def
}
