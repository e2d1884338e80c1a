package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// ErrMissingCredential is returned when a required upstream credential is not configured.
var ErrMissingCredential = errors.New("missing credential")

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	AppURL   string `envconfig:"APP_URL" default:"https://whattobuild.com"`

	// CORSOrigins is a comma separated list.
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`
	MongoURI    string `envconfig:"MONGO_URI" default:""`
	MongoDB     string `envconfig:"MONGO_DB" default:"whattobuild"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"minio:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" default:""`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" default:""`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"research-exports"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Scraping proxy ("web unlocker").
	BrightDataToken        string `envconfig:"BRIGHTDATA_API_TOKEN" default:""`
	BrightDataZone         string `envconfig:"BRIGHTDATA_ZONE" default:"whattobuild"`
	BrightDataUnlockerZone string `envconfig:"BRIGHTDATA_UNLOCKER_ZONE" default:"whatobuild2"`
	BrightDataEndpoint     string `envconfig:"BRIGHTDATA_ENDPOINT" default:"https://api.brightdata.com"`

	JinaAPIKey   string `envconfig:"JINA_API_KEY" default:""`
	JinaEndpoint string `envconfig:"JINA_ENDPOINT" default:"https://r.jina.ai"`

	HNEndpoint string `envconfig:"HN_ENDPOINT" default:"https://hn.algolia.com/api/v1"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-3-flash-preview"`

	SerpAPIKey      string `envconfig:"SERPAPI_KEY" default:""`
	SerpAPIEndpoint string `envconfig:"SERPAPI_ENDPOINT" default:"https://serpapi.com"`

	ResendAPIKey string `envconfig:"RESEND_API_KEY" default:""`
	MailFrom     string `envconfig:"MAIL_FROM" default:"WhatToBuild <noreply@whattobuild.com>"`
	SMTPServer   string `envconfig:"SMTP_SERVER" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`

	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" default:""`

	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	AITimeout       time.Duration `envconfig:"AI_TIMEOUT" default:"2m"`
	StaleAfter      time.Duration `envconfig:"STALE_AFTER" default:"30m"`
	MonitorSchedule string        `envconfig:"MONITOR_SCHEDULE" default:"0 9 * * 1"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	return &cfg, nil
}

// LogSummary records which credentials are present, never their values.
func (c *Config) LogSummary(log zerolog.Logger) {
	log.Info().
		Str("port", c.Port).
		Str("gemini_model", c.GeminiModel).
		Bool("proxy", c.HasProxy()).
		Bool("reader", c.JinaAPIKey != "").
		Bool("gemini", c.GeminiAPIKey != "").
		Bool("serpapi", c.HasKeywordAPI()).
		Bool("resend", c.ResendAPIKey != "").
		Bool("smtp", c.SMTPServer != "").
		Bool("stripe_webhook", c.StripeWebhookSecret != "").
		Str("monitor_schedule", c.MonitorSchedule).
		Msg("configuration loaded")
}

// HasProxy reports whether the scraping proxy credential is configured.
func (c *Config) HasProxy() bool { return c.BrightDataToken != "" }

// HasKeywordAPI reports whether the primary keyword-data service is configured.
func (c *Config) HasKeywordAPI() bool { return c.SerpAPIKey != "" }

// Origins splits CORSOrigins into a slice.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
