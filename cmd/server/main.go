package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	redis "github.com/redis/go-redis/v9"

	"github.com/advisorly/transcriber/internal/advisor"
	"github.com/advisorly/transcriber/internal/config"
	"github.com/advisorly/transcriber/internal/recognizer"
	"github.com/advisorly/transcriber/internal/server"
	"github.com/advisorly/transcriber/internal/store"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "transcriber",
	})

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	ctx := context.Background()

	pg, err := store.NewPostgres(ctx, cfg.Postgres.URL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", "error", err)
	}
	defer pg.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	registry := store.NewSessionRegistry(redisClient, "session:")

	gateway, err := recognizer.NewGatewayClient(cfg.Gateway.URL, cfg.Gateway.APIKey, logger)
	if err != nil {
		logger.Fatal("failed to create gateway client", "error", err)
	}

	var search *advisor.SearchClient
	if cfg.Search.Enabled {
		search = advisor.NewSearchClient(cfg.Search.MaxResults)
	}
	advisorClient, err := advisor.New(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, search, pg, logger)
	if err != nil {
		logger.Fatal("failed to create advisor client", "error", err)
	}

	srv := server.New(cfg, pg, registry, gateway, advisorClient, advisorClient, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	srv.Stop()
}
