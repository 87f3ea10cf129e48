package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wander-system/internal/cache"
	"wander-system/internal/config"
	httphandler "wander-system/internal/http"
	"wander-system/internal/ingest"
	"wander-system/internal/repo"
	"wander-system/internal/services/llm"
	"wander-system/internal/services/reco"
	"wander-system/internal/services/trending"

	"github.com/rs/zerolog/log"
)

func main() {
	var (
		ingestData = flag.Bool("ingest", false, "Load sample data and exit")
		port       = flag.String("port", "", "Port to run the server on (overrides PORT)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port == "" {
		*port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := repo.NewDB(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	repository := repo.NewRepository(db)

	redisCache, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Degraded-mode gate: without a live credential the pipeline serves
	// deterministic mock output and never calls the provider.
	var transport llm.Transport
	if cfg.OpenAI.Live() {
		client, err := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create LLM client")
		}
		transport = client
		log.Info().Str("model", cfg.OpenAI.Model).Msg("LLM provider configured")
	} else {
		log.Warn().Msg("No provider credential configured, running in degraded mode")
	}

	recoService := reco.NewService(transport, redisCache)
	refresher := trending.NewCacheRefresher(repository, redisCache, cfg.Trending.TTL)
	loader := ingest.NewLoader(repository)

	if *ingestData {
		log.Info().Msg("Loading sample data...")
		if err := loader.GenerateSampleData(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to load sample data")
		}
		log.Info().Msg("Sample data loaded")
		return
	}

	if cfg.Trending.WorkerInterval > 0 {
		refresher.Start(ctx, cfg.Trending.WorkerInterval)
		defer refresher.Stop()
	}

	if cfg.Trending.RefreshSecret == "" {
		log.Warn().Msg("REFRESH_SECRET not set, trending refresh trigger is disabled")
	}

	router := httphandler.NewRouter()
	router.RegisterRecommendationRoutes(httphandler.NewRecommendationHandler(recoService))
	router.RegisterTrendingRoutes(httphandler.NewTrendingHandler(refresher, repository, cfg.Trending.RefreshSecret))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoutes()

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
