package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PREDICTION_URL", "https://predict.example.com/api/v1/prediction")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("HTTPPort = %d, want 8080", cfg.HTTPPort)
	}
	if cfg.MaxContextTokens != 4000 || cfg.MaxContextMessages != 20 {
		t.Errorf("context budgets = %d/%d, want 4000/20", cfg.MaxContextTokens, cfg.MaxContextMessages)
	}
	if cfg.RelevanceThreshold != 0.3 {
		t.Errorf("RelevanceThreshold = %v, want 0.3", cfg.RelevanceThreshold)
	}
	if cfg.ContextCacheTTL != 5*time.Minute || cfg.ContextCacheSize != 100 {
		t.Errorf("cache config = %v/%d, want 5m/100", cfg.ContextCacheTTL, cfg.ContextCacheSize)
	}
	if cfg.MaxRetries != 2 || cfg.RetryDelay != 500*time.Millisecond || cfg.AttemptTimeout != 15*time.Second {
		t.Errorf("retry config = %d/%v/%v", cfg.MaxRetries, cfg.RetryDelay, cfg.AttemptTimeout)
	}
	if cfg.StreamChunkDelay != 50*time.Millisecond {
		t.Errorf("StreamChunkDelay = %v, want 50ms", cfg.StreamChunkDelay)
	}
	if cfg.HistoryStoreURL != "" {
		t.Errorf("HistoryStoreURL should default to empty, got %q", cfg.HistoryStoreURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PREDICTION_URL", "https://predict.example.com/api")
	t.Setenv("HISTORY_STORE_URL", "https://history.example.com")
	t.Setenv("MAX_CONTEXT_TOKENS", "2000")
	t.Setenv("RELEVANCE_THRESHOLD", "0.5")
	t.Setenv("MAX_RETRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxContextTokens != 2000 {
		t.Errorf("MaxContextTokens = %d, want 2000", cfg.MaxContextTokens)
	}
	if cfg.RelevanceThreshold != 0.5 {
		t.Errorf("RelevanceThreshold = %v, want 0.5", cfg.RelevanceThreshold)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.HistoryStoreURL != "https://history.example.com" {
		t.Errorf("HistoryStoreURL = %q", cfg.HistoryStoreURL)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing prediction url",
			env:  map[string]string{"PREDICTION_URL": ""},
		},
		{
			name: "malformed prediction url",
			env:  map[string]string{"PREDICTION_URL": "not a url"},
		},
		{
			name: "zero token budget",
			env: map[string]string{
				"PREDICTION_URL":     "https://predict.example.com",
				"MAX_CONTEXT_TOKENS": "0",
			},
		},
		{
			name: "threshold out of range",
			env: map[string]string{
				"PREDICTION_URL":      "https://predict.example.com",
				"RELEVANCE_THRESHOLD": "1.5",
			},
		},
		{
			name: "negative retries",
			env: map[string]string{
				"PREDICTION_URL": "https://predict.example.com",
				"MAX_RETRIES":    "-1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load() succeeded, want validation error")
			}
		})
	}
}
