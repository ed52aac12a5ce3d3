package config

import (
	"os"
	"strconv"
	"time"

	"busline/internal/cache"
	"busline/internal/database"
	"busline/internal/external"
	"busline/internal/messaging"
	"busline/internal/notify"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration
	JWTSecret      string

	// Booking lifecycle knobs
	HoldTTL          time.Duration // advisory seat hold lifetime
	PaymentDeadline  time.Duration // PENDING booking must pay within this window
	SweepInterval    time.Duration // how often the worker reclaims overdue bookings
	SnapshotCacheTTL time.Duration // seat snapshot display cache

	Database database.Config
	Cache    cache.Config
	NATS     messaging.Config
	Payment  external.PaymentConfig
	SMTP     notify.SMTPConfig
}

// Load reads configuration from environment variables (.env is honored when
// present).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret"),

		HoldTTL:          time.Duration(getEnvInt("HOLD_TTL_SEC", 600)) * time.Second,
		PaymentDeadline:  time.Duration(getEnvInt("PAYMENT_DEADLINE_SEC", 120)) * time.Second,
		SweepInterval:    time.Duration(getEnvInt("SWEEP_INTERVAL_SEC", 30)) * time.Second,
		SnapshotCacheTTL: time.Duration(getEnvInt("SNAPSHOT_CACHE_SEC", 300)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "busline"),
			Password:           getEnv("DB_PASSWORD", "busline123"),
			DBName:             getEnv("DB_NAME", "busline"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "busline"),
			ClientID:  getEnv("NATS_CLIENT_ID", "busline-api"),
		},

		Payment: external.PaymentConfig{
			APIKey:        getEnv("PAY_API_KEY", ""),
			AuthURL:       getEnv("PAY_AUTH_URL", ""),
			OrderURL:      getEnv("PAY_ORDER_URL", ""),
			PaymentKeyURL: getEnv("PAY_PAYMENT_KEY_URL", ""),
			IntegrationID: getEnv("PAY_INTEGRATION_ID", ""),
			Currency:      getEnv("PAY_CURRENCY", "EGP"),
			Timeout:       time.Duration(getEnvInt("PAY_TIMEOUT_SEC", 10)) * time.Second,
		},

		SMTP: notify.SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("SMTP_FROM", "tickets@busline.local"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
