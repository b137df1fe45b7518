package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Env      string
	Port     string
	LogLevel string

	MongoURI          string
	DBName            string
	MongoTransactions bool
	MongoTimeout      time.Duration

	JWTSecret      string
	AccessTokenTTL time.Duration

	IntegrationAPIKey string
	WebhookSecret     string

	RabbitMQURL      string
	RabbitMQPrefetch int

	SMTP        SMTPConfig
	NotifyEmail string

	RealtimeEnabled bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled reports whether real SMTP delivery is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load populates AppEnv from the environment. A missing or unreadable .env
// file is returned but does not prevent AppEnv from being set.
func Load() error {
	envErr := godotenv.Load()
	AppEnv = FromEnv()
	if envErr != nil {
		return fmt.Errorf(".env not loaded: %w", envErr)
	}
	return nil
}

// FromEnv reads the configuration from the process environment only.
func FromEnv() Config {
	return Config{
		Env:      getEnvOrDefault("ENV", "development"),
		Port:     getEnvOrDefault("PORT", "8080"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),

		MongoURI:          getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:            getEnvOrDefault("DB_NAME", "pharmacrm"),
		MongoTransactions: getBoolEnv("MONGO_TRANSACTIONS", true),
		MongoTimeout:      getDurationEnv("MONGO_TIMEOUT", 10, time.Second),

		JWTSecret:      getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL: getDurationEnv("ACCESS_TOKEN_TTL", 60, time.Minute),

		IntegrationAPIKey: getEnvOrDefault("INTEGRATION_API_KEY", ""),
		WebhookSecret:     getEnvOrDefault("WEBHOOK_SECRET", ""),

		RabbitMQURL:      getEnvOrDefault("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getIntEnv("RABBITMQ_PREFETCH", 10),

		SMTP: SMTPConfig{
			Host:     getEnvOrDefault("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnvOrDefault("SMTP_USERNAME", ""),
			Password: getEnvOrDefault("SMTP_PASSWORD", ""),
			From:     getEnvOrDefault("SMTP_FROM", ""),
		},
		NotifyEmail: getEnvOrDefault("NOTIFY_EMAIL", ""),

		RealtimeEnabled: getBoolEnv("REALTIME_ENABLED", true),
	}
}
