package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yolosopher/rps-live/internal/api"
	"github.com/yolosopher/rps-live/internal/config"
	"github.com/yolosopher/rps-live/internal/factory"
	"github.com/yolosopher/rps-live/internal/services/token"
	mongostorage "github.com/yolosopher/rps-live/internal/storage/mongo"
	redisstorage "github.com/yolosopher/rps-live/internal/storage/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:      logger,
		StorageType: cfg.StorageType,
		TokenConfig: token.Config{
			AccessSecret:  cfg.AccessSecret,
			RefreshSecret: cfg.RefreshSecret,
			AccessTTL:     cfg.AccessTTL,
			RefreshTTL:    cfg.RefreshTTL,
		},
		AvatarURL:      cfg.AvatarURL,
		NextRoundDelay: cfg.NextRoundDelay,
	}

	if cfg.StorageType == factory.StorageTypeExternal {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg

		mongoCfg := mongostorage.DefaultConfig()
		mongoCfg.URI = cfg.MongoURI
		mongoCfg.Database = cfg.MongoDatabase
		factoryCfg.MongoConfig = &mongoCfg
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	app, err := factory.New(bootCtx, factoryCfg)
	bootCancel()
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Sessions from a previous process are gone; wipe presence state so
	// nobody shows as online. Refresh tokens survive the restart.
	if err := app.ResetPresence(context.Background()); err != nil {
		logger.Error("failed to reset presence state", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		AccountService:  app.AccountService,
		TokenService:    app.TokenService,
		MatchController: app.MatchController,
		Gateway:         app.Gateway,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	server := api.NewServer(router, serverConfig, logger)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if err := app.Close(context.Background()); err != nil {
		logger.Error("close error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
