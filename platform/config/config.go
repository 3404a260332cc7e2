// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
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

// RedisConfig provides settings for the asynq task queue.
type RedisConfig interface {
	GetRedisURL() string
}

// WhatsAppConfig provides settings for the WhatsApp gateway client.
type WhatsAppConfig interface {
	GetWhatsAppBaseURL() string
	GetWhatsAppUser() string
	GetWhatsAppPassword() string
	IsWhatsAppEnabled() bool
}

// EngineConfig provides settings for the funnel engine loop.
type EngineConfig interface {
	GetTickInterval() time.Duration
	GetSnapshotInterval() time.Duration
	GetTimezone() *time.Location
	GetStageConfigPath() string
}

// ClassifierConfig provides settings for the LLM message classifier.
type ClassifierConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsLLMClassifierEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env              string
	HTTPAddr         string
	DatabaseURL      string
	RedisURL         string
	CORSAllowAll     bool
	CORSOrigins      []string
	CORSAllowCreds   bool
	WhatsAppBaseURL  string
	WhatsAppUser     string
	WhatsAppPassword string
	TickInterval     time.Duration
	SnapshotInterval time.Duration
	Timezone         *time.Location
	StageConfigPath  string
	GeminiAPIKey     string
	GeminiModel      string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string { return c.RedisURL }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppBaseURL() string  { return c.WhatsAppBaseURL }
func (c *Config) GetWhatsAppUser() string     { return c.WhatsAppUser }
func (c *Config) GetWhatsAppPassword() string { return c.WhatsAppPassword }
func (c *Config) IsWhatsAppEnabled() bool     { return c.WhatsAppBaseURL != "" }

// EngineConfig implementation
func (c *Config) GetTickInterval() time.Duration     { return c.TickInterval }
func (c *Config) GetSnapshotInterval() time.Duration { return c.SnapshotInterval }
func (c *Config) GetTimezone() *time.Location        { return c.Timezone }
func (c *Config) GetStageConfigPath() string         { return c.StageConfigPath }

// ClassifierConfig implementation
func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }
func (c *Config) IsLLMClassifierEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	tz, err := time.LoadLocation(getEnv("APP_TIMEZONE", "America/Mexico_City"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		CORSAllowAll:     corsAllowAll,
		CORSOrigins:      corsOrigins,
		CORSAllowCreds:   strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WhatsAppBaseURL:  getEnv("WHATSAPP_BASE_URL", ""),
		WhatsAppUser:     getEnv("WHATSAPP_BASIC_AUTH_USER", ""),
		WhatsAppPassword: getEnv("WHATSAPP_BASIC_AUTH_PASSWORD", ""),
		TickInterval:     mustDuration(getEnv("ENGINE_TICK_INTERVAL", "30s")),
		SnapshotInterval: mustDuration(getEnv("ENGINE_SNAPSHOT_INTERVAL", "5m")),
		Timezone:         tz,
		StageConfigPath:  getEnv("STAGE_CONFIG_PATH", ""),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("ENGINE_TICK_INTERVAL must be a positive duration")
	}
	if cfg.SnapshotInterval <= 0 {
		return nil, fmt.Errorf("ENGINE_SNAPSHOT_INTERVAL must be a positive duration")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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
