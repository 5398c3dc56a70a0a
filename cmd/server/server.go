package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"tutorchat/internal/config"
	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/contextwindow"
	"tutorchat/internal/domain/retry"
	"tutorchat/internal/infrastructure/historystore"
	"tutorchat/internal/infrastructure/logger"
	"tutorchat/internal/infrastructure/observability"
	"tutorchat/internal/infrastructure/prediction"
	"tutorchat/internal/interfaces/httpserver"
	"tutorchat/internal/interfaces/httpserver/handlers/chathandler"
	"tutorchat/internal/utils/ttlcache"
)

// Application bundles the long-running components.
type Application struct {
	httpServer  *httpserver.HTTPServer
	metricsPort int
}

// Start runs the API and metrics listeners until one of them fails.
func (application *Application) Start() error {
	var eg errgroup.Group
	eg.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		return http.ListenAndServe(fmt.Sprintf(":%d", application.metricsPort), mux)
	})
	eg.Go(func() error {
		return application.httpServer.Run()
	})
	return eg.Wait()
}

func main() {
	// Missing .env is fine; real deployments configure the environment.
	_ = godotenv.Load()

	log := logger.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	log, err = logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("configure logger")
	}

	ctx := context.Background()
	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("setup telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	var history chat.HistoryStore
	if cfg.HistoryStoreURL != "" {
		history = historystore.NewClient(cfg.HistoryStoreURL, cfg.HTTPTimeout, log)
	} else {
		log.Warn().Msg("no HISTORY_STORE_URL configured, using in-memory store")
		history = historystore.NewMemoryStore()
	}

	scorer := contextwindow.NewScorer(contextwindow.DefaultWeights())
	summarizer := contextwindow.NewDigestSummarizer(cfg.SummaryThreshold)
	builder := contextwindow.NewBuilder(scorer, summarizer, log)

	service := chat.NewService(chat.ServiceParams{
		Builder: builder,
		BuildOptions: contextwindow.Options{
			MaxTokens:             cfg.MaxContextTokens,
			MaxMessages:           cfg.MaxContextMessages,
			RelevanceThreshold:    cfg.RelevanceThreshold,
			IncludeSystemMessages: cfg.IncludeSystemMessages,
		},
		ContextCache: ttlcache.NewWithConfig[string, *contextwindow.ConversationContext](cfg.ContextCacheTTL, cfg.ContextCacheSize),
		Prediction:   prediction.NewClient(cfg.PredictionURL, cfg.HTTPTimeout, log),
		History:      history,
		Streamer:     chat.NewStreamer(cfg.StreamChunkDelay),
		RetryPolicy: retry.Policy{
			MaxRetries:      cfg.MaxRetries,
			InitialDelay:    cfg.RetryDelay,
			MaxDelay:        30 * time.Second,
			AttemptTimeout:  cfg.AttemptTimeout,
			BackoffStrategy: retry.BackoffLinear,
		},
		HistoryFetchLimit: cfg.HistoryFetchLimit,
		Logger:            log,
	})

	chatHandler := chathandler.NewChatHandler(service, log)

	application := &Application{
		httpServer:  httpserver.NewHTTPServer(chatHandler, cfg, log),
		metricsPort: cfg.MetricsPort,
	}

	log.Info().
		Int("http_port", cfg.HTTPPort).
		Int("metrics_port", cfg.MetricsPort).
		Msg("chat engine starting")

	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
