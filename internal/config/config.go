package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	AdminJWTSecret string `env:"ADMIN_JWT_SECRET,required" validate:"required,min=32"`
	EncryptionKey  string `env:"ENCRYPTION_KEY,required" validate:"required,len=32"`

	RatesFile string `env:"RATES_FILE" envDefault:"rates.yaml" validate:"required"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	ResendAPIKey string `env:"RESEND_API_KEY"`
	EmailFrom    string `env:"EMAIL_FROM" validate:"omitempty,email"`

	WhatsAppGatewayURL string `env:"WHATSAPP_GATEWAY_URL" validate:"omitempty,url"`
	WhatsAppToken      string `env:"WHATSAPP_TOKEN"`

	SentryDSN string `env:"SENTRY_DSN"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	hasResendKey := strings.TrimSpace(c.ResendAPIKey) != ""
	hasEmailFrom := strings.TrimSpace(c.EmailFrom) != ""
	if hasResendKey && !hasEmailFrom {
		return fmt.Errorf("EMAIL_FROM is required when RESEND_API_KEY is set")
	}

	hasGatewayURL := strings.TrimSpace(c.WhatsAppGatewayURL) != ""
	hasGatewayToken := strings.TrimSpace(c.WhatsAppToken) != ""
	if hasGatewayURL != hasGatewayToken {
		return fmt.Errorf("WHATSAPP_GATEWAY_URL and WHATSAPP_TOKEN must be set together")
	}

	return nil
}
