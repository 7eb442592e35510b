// Package main implements the semcache API server: a thin HTTP façade over
// an external embedding service and an external vector engine.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"

	"github.com/semcache/semcache/engine/events"
	"github.com/semcache/semcache/engine/semantic"
	"github.com/semcache/semcache/pkg/metrics"
	"github.com/semcache/semcache/pkg/mid"
	"github.com/semcache/semcache/pkg/ollama"
)

const version = "1.0.0"

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	QdrantURL  string
	Collection string
	EmbedDims  int
	OllamaURL  string
	EmbedModel string
	APIKey     string
	RateRPS    float64
	RateBurst  int
	CORSOrigin string
	NATSURL    string
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8000"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "documents"),
		EmbedDims:  envInt("EMBED_DIMS", 768),
		OllamaURL:  envOr("OLLAMA_URL", "http://localhost:11434"),
		EmbedModel: envOr("EMBED_MODEL", "nomic-embed-text"),
		APIKey:     os.Getenv("API_KEY"),
		RateRPS:    envFloat("RATE_LIMIT_RPS", 10),
		RateBurst:  envInt("RATE_LIMIT_BURST", 20),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
		NATSURL:    os.Getenv("NATS_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.APIKey == "" {
		logger.Warn("API_KEY is not set; all authenticated endpoints will reject requests")
	}

	// --- Embedding service ---
	embedder := ollama.NewEmbedClient(cfg.OllamaURL, cfg.EmbedModel)

	// --- Vector engine ---
	store, err := semantic.New(cfg.QdrantURL, cfg.Collection, cfg.EmbedDims, embedder)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := store.EnsureCollection(ensureCtx); err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Optional event publishing ---
	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
	}
	publisher := events.NewPublisher(nc, logger)

	// --- Process-wide rate limiter, acquired for the server's lifetime ---
	limiter := rate.NewLimiter(rate.Limit(cfg.RateRPS), cfg.RateBurst)

	reg := metrics.New()

	srv := &server{
		store:  store,
		events: publisher,
		log:    logger,
		reg:    reg,
	}

	// --- Build HTTP server ---
	v1 := http.NewServeMux()
	srv.routes(v1)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", mid.Chain(v1,
		mid.APIKey(cfg.APIKey),
		mid.RateLimit(limiter),
	))
	mux.HandleFunc("GET /{$}", handleInfo)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.Metrics(reg),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("semcache"),
	)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port, "collection", cfg.Collection)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}
