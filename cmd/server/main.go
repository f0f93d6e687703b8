package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mcoot/studyroom/internal/api"
	"github.com/mcoot/studyroom/internal/config"
	"github.com/mcoot/studyroom/internal/factory"
	"github.com/mcoot/studyroom/internal/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate has already checked the level
	level, _ := cfg.Level()

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.TickInterval = cfg.Timer.TickInterval

	factoryCfg := factory.Config{
		Logger:        logger,
		StorageType:   cfg.Storage.Type,
		TickAuthority: cfg.Authority(),
		Gateway:       gatewayCfg,
	}
	if cfg.Storage.Type == factory.StorageTypeRedis {
		redisCfg := cfg.Storage.Redis
		factoryCfg.RedisConfig = &redisCfg
	}

	// Create application factory
	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer app.Close()

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

	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		app.Gateway.Run(ctx)
	}()

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Rooms:          app.Rooms,
		Connections:    app.Gateway,
		WebSocket:      http.HandlerFunc(app.Gateway.ServeWS),
		TickAuthority:  string(cfg.Authority()),
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// Create server
	server := api.NewServer(router, cfg.Server, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.String("tick_authority", string(cfg.Authority())),
	)

	// Wait for shutdown or error
	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
		cancel()
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			exitCode = 1
		}
	}

	<-gatewayDone
	logger.Info("server stopped")
	if exitCode != 0 {
		app.Close()
		os.Exit(exitCode)
	}
}
