package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/sitesmith/internal/analysis"
	"github.com/MikeSquared-Agency/sitesmith/internal/api"
	"github.com/MikeSquared-Agency/sitesmith/internal/cache"
	"github.com/MikeSquared-Agency/sitesmith/internal/config"
	"github.com/MikeSquared-Agency/sitesmith/internal/hermes"
	"github.com/MikeSquared-Agency/sitesmith/internal/llm"
	"github.com/MikeSquared-Agency/sitesmith/internal/processor"
	"github.com/MikeSquared-Agency/sitesmith/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("sitesmith starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream providers
	primary, fallback, err := providers(cfg)
	if err != nil {
		slog.Error("no upstream provider configured", "error", err)
		os.Exit(1)
	}
	gen := llm.New(primary, fallback, cfg.MaxTokens, slog.Default())
	slog.Info("upstream ready", "provider", primary.Name, "model", primary.Model, "fallback", gen.HasFallback())

	// Analysis cache
	cacheStore, err := cache.Open(cache.Options{
		Dir:      cfg.CacheDir,
		InMemory: cfg.CacheDir == "",
		TTL:      cfg.CacheTTL,
		Logger:   slog.Default(),
	})
	if err != nil {
		slog.Error("failed to open analysis cache", "error", err)
		os.Exit(1)
	}
	defer cacheStore.Close()

	// Database (optional, without it generations are not kept)
	var (
		recorder processor.Recorder
		history  api.History
	)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		recorder, history = db, db
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, generation history disabled")
	}

	// NATS/Hermes (optional, events are dropped without it)
	var publisher processor.Publisher
	hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Warn("NATS unavailable, events disabled", "url", cfg.NatsURL, "error", err)
	} else {
		defer hermesClient.Close()
		publisher = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	analyzer := analysis.New(gen, cacheStore, slog.Default())
	proc := processor.New(openStream(gen), recorder, publisher, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, api.Deps{
		Generator: proc,
		Analyzer:  analyzer,
		History:   history,
		APIToken:  cfg.APIToken,
		Logger:    slog.Default(),
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if hermesClient != nil {
		if err := hermesClient.Announce(hermes.Registration{
			Port:     cfg.Port,
			Provider: primary.Name,
			History:  history != nil,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("sitesmith ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown incomplete", "error", err)
	}
	cancel()
	slog.Info("sitesmith stopped")
}

// providers picks NVIDIA as primary when its key is set, otherwise
// OpenRouter. OpenRouter backs NVIDIA up when both keys are present.
func providers(cfg config.Config) (llm.Provider, *llm.Provider, error) {
	openRouter := llm.Provider{
		Name:        "openrouter",
		BaseURL:     config.OpenRouterBaseURL,
		APIKey:      cfg.OpenRouterAPIKey,
		Model:       cfg.FallbackModel,
		VisionModel: cfg.FallbackVision,
	}
	switch {
	case cfg.NvidiaAPIKey != "":
		primary := llm.Provider{
			Name:        "nvidia",
			BaseURL:     cfg.PrimaryBaseURL,
			APIKey:      cfg.NvidiaAPIKey,
			Model:       cfg.PrimaryModel,
			VisionModel: cfg.VisionModel,
		}
		if cfg.OpenRouterAPIKey == "" {
			return primary, nil, nil
		}
		return primary, &openRouter, nil
	case cfg.OpenRouterAPIKey != "":
		return openRouter, nil, nil
	default:
		return llm.Provider{}, nil, errors.New("set NVIDIA_API_KEY or OPENROUTER_API_KEY")
	}
}

// openStream adapts the generator to the processor. A failed open must
// return a nil interface, not a typed nil *llm.Stream.
func openStream(gen *llm.Generator) processor.OpenFunc {
	return func(ctx context.Context, system, user string) (processor.Stream, error) {
		s, err := gen.Stream(ctx, system, user)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
