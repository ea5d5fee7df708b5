package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/agenthands/chainmap/internal/cache"
	"github.com/agenthands/chainmap/internal/config"
	"github.com/agenthands/chainmap/internal/library"
	"github.com/agenthands/chainmap/internal/llm"
	"github.com/agenthands/chainmap/internal/orchestrator"
	"github.com/agenthands/chainmap/internal/pipeline"
	"github.com/agenthands/chainmap/internal/ratelimit"
	"github.com/agenthands/chainmap/internal/resolver"
	"github.com/agenthands/chainmap/internal/server"
)

func main() {
	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment as-is")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("could not load config file, using defaults", zap.String("path", cfgPath), zap.Error(err))
		cfg = config.Default()
	}

	// Env overrides for provider settings, same precedence as the config
	// file fields they shadow.
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	client, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		logger.Fatal("failed to initialize llm client", zap.Error(err))
	}

	durable, err := cache.OpenBadger(cfg.Cache.Dir, cfg.Cache.TTL())
	if err != nil {
		logger.Fatal("failed to open cache db", zap.Error(err))
	}
	defer durable.Close()

	store, err := cache.NewTiered(cfg.Cache.FastCapacity, durable, logger)
	if err != nil {
		logger.Fatal("failed to build cache", zap.Error(err))
	}

	orch := orchestrator.New(
		store,
		resolver.New(cfg.Resolver.Aliases, cfg.Resolver.StrictThreshold, cfg.Resolver.LooseThreshold),
		library.NewDir(cfg.Library.Dir, logger),
		ratelimit.NewSlidingWindow(cfg.RateLimit.Quota, cfg.RateLimit.Window()),
		pipeline.New(client, cfg.Pipeline, cfg.Prompts, logger),
		logger,
		cfg.Pipeline.RunTimeout(),
	)

	srv := server.New(orch, logger)
	r := srv.SetupRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logger.Info("starting server", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
