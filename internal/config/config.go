package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all environment backed configuration for the chat engine.
type Config struct {
	// HTTP Server
	HTTPPort    int `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int `env:"METRICS_PORT" envDefault:"9091"`

	// External collaborators
	PredictionURL     string        `env:"PREDICTION_URL,notEmpty"`
	HistoryStoreURL   string        `env:"HISTORY_STORE_URL"` // empty = in-memory store
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	HistoryFetchLimit int           `env:"HISTORY_FETCH_LIMIT" envDefault:"200"`

	// Context window
	MaxContextTokens      int     `env:"MAX_CONTEXT_TOKENS" envDefault:"4000"`
	MaxContextMessages    int     `env:"MAX_CONTEXT_MESSAGES" envDefault:"20"`
	RelevanceThreshold    float64 `env:"RELEVANCE_THRESHOLD" envDefault:"0.3"`
	IncludeSystemMessages bool    `env:"INCLUDE_SYSTEM_MESSAGES" envDefault:"false"`
	SummaryThreshold      int     `env:"SUMMARY_THRESHOLD" envDefault:"50"`

	// Context cache
	ContextCacheTTL  time.Duration `env:"CONTEXT_CACHE_TTL" envDefault:"5m"`
	ContextCacheSize int           `env:"CONTEXT_CACHE_SIZE" envDefault:"100"`

	// Prediction dispatch
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"2"`
	RetryDelay     time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`
	AttemptTimeout time.Duration `env:"ATTEMPT_TIMEOUT" envDefault:"15s"`

	// Streaming
	StreamChunkDelay time.Duration `env:"STREAM_CHUNK_DELAY" envDefault:"50ms"`

	// Observability / Logging
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string `env:"SERVICE_NAME" envDefault:"chat-engine"`
	ServiceNamespace string `env:"SERVICE_NAMESPACE" envDefault:"tutorchat"`
	Environment      string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load parses environment variables into Config and performs minimal
// validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := url.ParseRequestURI(cfg.PredictionURL); err != nil {
		return nil, fmt.Errorf("invalid PREDICTION_URL: %w", err)
	}
	if cfg.HistoryStoreURL != "" {
		if _, err := url.ParseRequestURI(cfg.HistoryStoreURL); err != nil {
			return nil, fmt.Errorf("invalid HISTORY_STORE_URL: %w", err)
		}
	}
	if cfg.MaxContextTokens <= 0 || cfg.MaxContextMessages <= 0 {
		return nil, errors.New("context budgets must be positive")
	}
	if cfg.RelevanceThreshold < 0 || cfg.RelevanceThreshold > 1 {
		return nil, errors.New("RELEVANCE_THRESHOLD must be in [0,1]")
	}
	if cfg.MaxRetries < 0 {
		return nil, errors.New("MAX_RETRIES must not be negative")
	}

	return cfg, nil
}
