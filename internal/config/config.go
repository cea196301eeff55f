// Package config содержит логику чтения конфигурации сервиса бронирования.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса бронирования.
type Config struct {
	RunAddress          string `env:"RUN_ADDRESS"`
	DatabaseURI         string `env:"DATABASE_URI"`
	TelegramAPIEndpoint string `env:"TELEGRAM_API_ENDPOINT"`
	NotifyAddress       string `env:"NOTIFY_ADDRESS"`
	WebhookSecret       string `env:"WEBHOOK_SECRET"`
	SessionSecret       string `env:"SESSION_SECRET"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envTelegramEndpoint := cfg.TelegramAPIEndpoint
	envNotifyAddress := cfg.NotifyAddress
	envWebhookSecret := cfg.WebhookSecret
	envSessionSecret := cfg.SessionSecret

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.TelegramAPIEndpoint, "t", "", "telegram bot api endpoint override")
	flag.StringVar(&cfg.NotifyAddress, "n", "", "notification sink address")
	flag.StringVar(&cfg.WebhookSecret, "s", "", "webhook shared secret")
	flag.StringVar(&cfg.SessionSecret, "k", "", "staff session signing key")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envTelegramEndpoint != "" {
		cfg.TelegramAPIEndpoint = envTelegramEndpoint
	}
	if envNotifyAddress != "" {
		cfg.NotifyAddress = envNotifyAddress
	}
	if envWebhookSecret != "" {
		cfg.WebhookSecret = envWebhookSecret
	}
	if envSessionSecret != "" {
		cfg.SessionSecret = envSessionSecret
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}
