package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server configuration, loaded from environment variables.
type Config struct {
	Port     string `env:"LUMINA_PORT" envDefault:"8080"`
	DBPath   string `env:"LUMINA_DB_PATH" envDefault:"lumina.db"`
	BaseURL  string `env:"LUMINA_BASE_URL"`
	LogLevel string `env:"LUMINA_LOG_LEVEL" envDefault:"info"`

	SendGridAPIKey string `env:"LUMINA_SENDGRID_API_KEY"`
	FromEmail      string `env:"LUMINA_FROM_EMAIL" envDefault:"noreply@lumina.app"`

	GeminiAPIKey string `env:"LUMINA_GEMINI_API_KEY"`
	GeminiModel  string `env:"LUMINA_GEMINI_MODEL" envDefault:"gemini-1.5-flash"`

	StripeSecretKey      string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `env:"STRIPE_WEBHOOK_SECRET"`
	PremiumPriceID       string `env:"STRIPE_PREMIUM_PRICE_ID"`
	PremiumAnnualPriceID string `env:"STRIPE_PREMIUM_ANNUAL_PRICE_ID"`

	VAPIDPublicKey  string `env:"LUMINA_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"LUMINA_VAPID_PRIVATE_KEY"`

	VoiceTokenSecret string `env:"LUMINA_VOICE_TOKEN_SECRET"`

	BackupS3Endpoint  string `env:"LUMINA_BACKUP_S3_ENDPOINT"`
	BackupS3Bucket    string `env:"LUMINA_BACKUP_S3_BUCKET"`
	BackupS3Region    string `env:"LUMINA_BACKUP_S3_REGION" envDefault:"auto"`
	BackupS3AccessKey string `env:"LUMINA_BACKUP_S3_ACCESS_KEY"`
	BackupS3SecretKey string `env:"LUMINA_BACKUP_S3_SECRET_KEY"`
	BackupPassphrase  string `env:"LUMINA_BACKUP_PASSPHRASE"`
	BackupRetention   int    `env:"LUMINA_BACKUP_RETENTION" envDefault:"14"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:" + cfg.Port
	}
	return cfg, nil
}
