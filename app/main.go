package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thorntonevents/ingest/app/ai"
	"github.com/thorntonevents/ingest/app/api"
	"github.com/thorntonevents/ingest/app/cfg"
	"github.com/thorntonevents/ingest/app/database"
	"github.com/thorntonevents/ingest/app/deals"
	"github.com/thorntonevents/ingest/app/enrich"
	"github.com/thorntonevents/ingest/app/events"
	"github.com/thorntonevents/ingest/app/sources"
	"github.com/thorntonevents/ingest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Thornton Events Ingest", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	eventRepo := database.NewEventRepository(db)
	dealRepo := database.NewDealRepository(db)
	articleRepo := database.NewArticleRepository(db)
	sourceRepo := database.NewSourceRepository(db)

	var aiClient *ai.Client
	if appCfg.OpenAIAPIKey != "" {
		aiClient = ai.NewClient(appCfg.OpenAIAPIKey, appCfg.OpenAIModel)
	} else {
		slog.Warn("OPENAI_API_KEY not set, AI-scraped sources will be skipped")
	}

	srcs := buildSources(configCache, aiClient)

	var enricher *enrich.Enricher
	if appCfg.PexelsAPIKey != "" {
		enricher = enrich.New(appCfg.PexelsAPIKey, appCfg.ImageDelayMs, appCfg.ImageBatchCap)
	} else {
		slog.Warn("PEXELS_API_KEY not set, image enrichment disabled")
	}

	var dealImporter tasks.DealImporter
	if appCfg.SearchAPIKey != "" && aiClient != nil {
		dealImporter = deals.NewImporter(dealRepo, aiClient,
			deals.NewSearchClient(appCfg.SearchAPIKey), appCfg.DealsQuery, appCfg.DealsSourceURL)
	} else {
		slog.Warn("Deal import disabled (requires SEARCH_API_KEY and OPENAI_API_KEY)")
	}

	runner := tasks.NewRunner(srcs, events.NewNormalizer(), enricher,
		eventRepo, sourceRepo, dealImporter,
		appCfg.Timezone, appCfg.SchedulerInterval, appCfg.WorkerCount)

	if appCfg.RunOnce {
		summary := runner.RunOnce(context.Background())
		for _, result := range summary.Results {
			if result.Err != nil {
				slog.Error("Source failed", "source", result.Source, "error", result.Err)
			}
		}
		if summary.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	slog.Info("Starting background runner", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	runner.Start()
	defer runner.Stop()

	apiHandler := api.NewHandler(configCache, eventRepo, dealRepo, articleRepo, sourceRepo, runner, appCfg.DealsSourceURL)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func buildSources(configCache *sources.ConfigCache, aiClient *ai.Client) []sources.Source {
	appCfg := cfg.Get()

	deps := sources.Deps{
		UserAgent:       appCfg.UserAgent,
		TicketingAPIKey: appCfg.TicketingAPIKey,
	}
	if aiClient != nil {
		deps.Extractor = aiClient
	}

	configs := configCache.GetConfigs()
	srcs := make([]sources.Source, 0, len(configs))
	for _, config := range configs {
		src, err := sources.New(config, deps)
		if err != nil {
			slog.Warn("Skipping source with unsupported type", "source", config.Slug, "type", config.Type)
			continue
		}
		srcs = append(srcs, src)
	}

	return srcs
}
