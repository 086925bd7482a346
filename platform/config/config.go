// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// WebhookConfig provides settings for webhook verification and parsing.
type WebhookConfig interface {
	GetWebhookVerifyToken() string
	GetWebhookAppSecret() string
	GetWebhookProviderObject() string
}

// ClassifierConfig provides settings for the message classifier service.
type ClassifierConfig interface {
	GetClassifierProvider() string
	GetClassifierEndpoint() string
	GetClassifierAPIKey() string
	GetClassifierModel() string
	IsClassifierEnabled() bool
}

// DeliveryConfig provides settings for outbound message delivery.
type DeliveryConfig interface {
	GetGraphBaseURL() string
	GetGraphAPIVersion() string
	GetDeliveryTimeout() time.Duration
	GetMessagingWindow() time.Duration
	GetPageTokenEnvPrefix() string
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetHandoverTimeout() time.Duration
	GetHandoverSweepInterval() time.Duration
}

// RedisConfig provides settings for direct redis access.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinioBucketVoiceMessages() string
	IsMinIOEnabled() bool
}

// SpeechConfig provides settings for the audio transcription service.
type SpeechConfig interface {
	GetTranscriberURL() string
	GetTranscriberAPIKey() string
	IsTranscriberEnabled() bool
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	AppBaseURL     string

	WebhookVerifyToken    string
	WebhookAppSecret      string
	WebhookProviderObject string

	ClassifierProvider string
	ClassifierEndpoint string
	ClassifierAPIKey   string
	ClassifierModel    string

	GraphBaseURL       string
	GraphAPIVersion    string
	DeliveryTimeout    time.Duration
	MessagingWindow    time.Duration
	PageTokenEnvPrefix string

	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	HandoverTimeout       time.Duration
	HandoverSweepInterval time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinioBucketVoiceMessages string

	TranscriberURL    string
	TranscriberAPIKey string
}

// DatabaseConfig
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WebhookConfig
func (c *Config) GetWebhookVerifyToken() string    { return c.WebhookVerifyToken }
func (c *Config) GetWebhookAppSecret() string      { return c.WebhookAppSecret }
func (c *Config) GetWebhookProviderObject() string { return c.WebhookProviderObject }

// ClassifierConfig
func (c *Config) GetClassifierProvider() string { return c.ClassifierProvider }
func (c *Config) GetClassifierEndpoint() string { return c.ClassifierEndpoint }
func (c *Config) GetClassifierAPIKey() string   { return c.ClassifierAPIKey }
func (c *Config) GetClassifierModel() string    { return c.ClassifierModel }
func (c *Config) IsClassifierEnabled() bool     { return c.ClassifierAPIKey != "" }

// DeliveryConfig
func (c *Config) GetGraphBaseURL() string           { return c.GraphBaseURL }
func (c *Config) GetGraphAPIVersion() string        { return c.GraphAPIVersion }
func (c *Config) GetDeliveryTimeout() time.Duration { return c.DeliveryTimeout }
func (c *Config) GetMessagingWindow() time.Duration { return c.MessagingWindow }
func (c *Config) GetPageTokenEnvPrefix() string     { return c.PageTokenEnvPrefix }

// SchedulerConfig / RedisConfig
func (c *Config) GetRedisURL() string                     { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool               { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string               { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                { return c.AsynqConcurrency }
func (c *Config) GetHandoverTimeout() time.Duration       { return c.HandoverTimeout }
func (c *Config) GetHandoverSweepInterval() time.Duration { return c.HandoverSweepInterval }

// EmailConfig
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// StorageConfig
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinioBucketVoiceMessages() string { return c.MinioBucketVoiceMessages }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEndpoint != "" }

// SpeechConfig
func (c *Config) GetTranscriberURL() string    { return c.TranscriberURL }
func (c *Config) GetTranscriberAPIKey() string { return c.TranscriberAPIKey }
func (c *Config) IsTranscriberEnabled() bool   { return c.TranscriberURL != "" }

// NotificationConfig
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// Load reads configuration from the environment. A .env file is honored when
// present so local development matches deployment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:         getEnv("ENV", "development"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		CORSOrigins:    splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		CORSAllowCreds: getEnv("CORS_ALLOW_CREDENTIALS", "true") == "true",
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:5173"),

		WebhookVerifyToken:    os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		WebhookAppSecret:      os.Getenv("WEBHOOK_APP_SECRET"),
		WebhookProviderObject: getEnv("WEBHOOK_PROVIDER_OBJECT", "instagram"),

		ClassifierProvider: getEnv("CLASSIFIER_PROVIDER", "openai"),
		ClassifierEndpoint: getEnv("CLASSIFIER_ENDPOINT", "https://api.openai.com/v1"),
		ClassifierAPIKey:   os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierModel:    getEnv("CLASSIFIER_MODEL", "gpt-4o"),

		GraphBaseURL:       getEnv("GRAPH_BASE_URL", "https://graph.facebook.com"),
		GraphAPIVersion:    getEnv("GRAPH_API_VERSION", "v18.0"),
		DeliveryTimeout:    mustDuration(getEnv("DELIVERY_TIMEOUT", "10s")),
		MessagingWindow:    mustDuration(getEnv("MESSAGING_WINDOW", "24h")),
		PageTokenEnvPrefix: getEnv("PAGE_TOKEN_ENV_PREFIX", "PAGE_TOKEN_"),

		RedisURL:              os.Getenv("REDIS_URL"),
		RedisTLSInsecure:      getEnv("REDIS_TLS_INSECURE", "false") == "true",
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		HandoverTimeout:       mustDuration(getEnv("HANDOVER_TIMEOUT", "30m")),
		HandoverSweepInterval: mustDuration(getEnv("HANDOVER_SWEEP_INTERVAL", "5m")),

		EmailEnabled:     getEnv("EMAIL_ENABLED", "false") == "true",
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Commerce Agent"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@example.com"),

		MinIOEndpoint:            os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:           os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:           os.Getenv("MINIO_SECRET_KEY"),
		MinIOUseSSL:              getEnv("MINIO_USE_SSL", "false") == "true",
		MinioBucketVoiceMessages: getEnv("MINIO_BUCKET_VOICE_MESSAGES", "voice-messages"),

		TranscriberURL:    os.Getenv("TRANSCRIBER_URL"),
		TranscriberAPIKey: os.Getenv("TRANSCRIBER_API_KEY"),
	}

	cfg.CORSAllowAll = containsWildcard(cfg.CORSOrigins)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WebhookAppSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_APP_SECRET is required")
	}
	if cfg.WebhookVerifyToken == "" {
		return nil, fmt.Errorf("WEBHOOK_VERIFY_TOKEN is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
