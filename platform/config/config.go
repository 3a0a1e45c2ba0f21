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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// StoreConfig provides settings for the batch store.
type StoreConfig interface {
	DatabaseConfig
	GetBatchDataDir() string
	IsPostgresEnabled() bool
}

// ProviderConfig provides settings for the call provider client.
type ProviderConfig interface {
	GetProviderBaseURL() string
	GetProviderAPIKey() string
	GetCallScript() string
	GetVoicemailMessage() string
	GetCallTimeout() time.Duration
	GetCallConcurrency() int
	GetCallRateLimit() float64
	GetCallRateBurst() int
}

// QualifierConfig provides settings for the qualification model client.
type QualifierConfig interface {
	GetQualifierBaseURL() string
	GetQualifierAPIKey() string
	GetQualifierModel() string
	GetQualifierTimeout() time.Duration
}

// SchedulerConfig provides settings for the background reconciliation scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetReconcileInterval() time.Duration
}

// EmailConfig provides settings for batch summary emails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetNotifyEmailTo() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	CORSAllowAll      bool
	CORSOrigins       []string
	BatchDataDir      string
	DatabaseURL       string
	ProviderBaseURL   string
	ProviderAPIKey    string
	CallScript        string
	VoicemailMessage  string
	CallTimeout       time.Duration
	CallConcurrency   int
	CallRateLimit     float64
	CallRateBurst     int
	QualifierBaseURL  string
	QualifierAPIKey   string
	QualifierModel    string
	QualifierTimeout  time.Duration
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	ReconcileInterval time.Duration
	EmailEnabled      bool
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	NotifyEmailTo     string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// StoreConfig implementation
func (c *Config) GetDatabaseURL() string  { return c.DatabaseURL }
func (c *Config) GetBatchDataDir() string { return c.BatchDataDir }
func (c *Config) IsPostgresEnabled() bool { return c.DatabaseURL != "" }

// ProviderConfig implementation
func (c *Config) GetProviderBaseURL() string    { return c.ProviderBaseURL }
func (c *Config) GetProviderAPIKey() string     { return c.ProviderAPIKey }
func (c *Config) GetCallScript() string         { return c.CallScript }
func (c *Config) GetVoicemailMessage() string   { return c.VoicemailMessage }
func (c *Config) GetCallTimeout() time.Duration { return c.CallTimeout }
func (c *Config) GetCallConcurrency() int       { return c.CallConcurrency }
func (c *Config) GetCallRateLimit() float64     { return c.CallRateLimit }
func (c *Config) GetCallRateBurst() int         { return c.CallRateBurst }

// QualifierConfig implementation
func (c *Config) GetQualifierBaseURL() string        { return c.QualifierBaseURL }
func (c *Config) GetQualifierAPIKey() string         { return c.QualifierAPIKey }
func (c *Config) GetQualifierModel() string          { return c.QualifierModel }
func (c *Config) GetQualifierTimeout() time.Duration { return c.QualifierTimeout }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                 { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool           { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string           { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int            { return c.AsynqConcurrency }
func (c *Config) GetReconcileInterval() time.Duration { return c.ReconcileInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetNotifyEmailTo() string    { return c.NotifyEmailTo }

const defaultCallScript = `You are a virtual outreach agent. Call the recipient and ask about their business funding needs. Ask the following questions:
1) What are your current growth plans?
2) What kind of funding or financial support are you currently looking for?
3) What's your timeline for securing additional funding?
4) What are the main challenges you're facing in your business right now?`

const defaultVoicemailMessage = "Hi, this is a quick check-in about a short conversation to help with your financial goals. We'll try again soon!"

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "*"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "true"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:      corsAllowAll,
		CORSOrigins:       corsOrigins,
		BatchDataDir:      getEnv("BATCH_DATA_DIR", "./data"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		ProviderBaseURL:   getEnv("CALL_PROVIDER_URL", "https://us.api.bland.ai"),
		ProviderAPIKey:    getEnv("CALL_PROVIDER_API_KEY", ""),
		CallScript:        getEnv("CALL_SCRIPT", defaultCallScript),
		VoicemailMessage:  getEnv("CALL_VOICEMAIL_MESSAGE", defaultVoicemailMessage),
		CallTimeout:       mustDuration(getEnv("CALL_TIMEOUT", "30s")),
		CallConcurrency:   mustPositiveInt(getEnv("CALL_CONCURRENCY", "8"), 8),
		CallRateLimit:     mustFloat(getEnv("CALL_RATE_LIMIT", "5"), 5),
		CallRateBurst:     mustPositiveInt(getEnv("CALL_RATE_BURST", "5"), 5),
		QualifierBaseURL:  getEnv("QUALIFIER_URL", "https://api.openai.com/v1"),
		QualifierAPIKey:   getEnv("QUALIFIER_API_KEY", ""),
		QualifierModel:    getEnv("QUALIFIER_MODEL", "gpt-4o-mini"),
		QualifierTimeout:  mustDuration(getEnv("QUALIFIER_TIMEOUT", "60s")),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:  mustPositiveInt(getEnv("ASYNQ_CONCURRENCY", "10"), 10),
		ReconcileInterval: mustDuration(getEnv("RECONCILE_INTERVAL", "30s")),
		EmailEnabled:      emailEnabled && smtpHost != "",
		SMTPHost:          smtpHost,
		SMTPPort:          mustPositiveInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Outreach"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		NotifyEmailTo:     getEnv("NOTIFY_EMAIL_TO", ""),
	}

	if cfg.ProviderAPIKey == "" {
		return nil, fmt.Errorf("CALL_PROVIDER_API_KEY is required")
	}
	if cfg.QualifierAPIKey == "" {
		return nil, fmt.Errorf("QUALIFIER_API_KEY is required")
	}
	if cfg.CallTimeout <= 0 {
		return nil, fmt.Errorf("CALL_TIMEOUT must be a positive duration")
	}
	if cfg.ReconcileInterval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be a positive duration")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.EmailEnabled && cfg.NotifyEmailTo == "" {
		return nil, fmt.Errorf("NOTIFY_EMAIL_TO is required when email is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
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

func mustPositiveInt(value string, fallback int) int {
	result, err := strconv.Atoi(value)
	if err != nil || result < 1 {
		return fallback
	}
	return result
}

func mustFloat(value string, fallback float64) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil || result <= 0 {
		return fallback
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
