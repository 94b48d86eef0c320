package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/illustrate/internal/api"
	"github.com/bilgisen/illustrate/internal/app"
	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/logger"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.LogPretty,
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting illustrate server...")

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		log.Info().Msg("Closing resources...")
		if err := application.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing resources")
		}
	}()

	server := api.NewApp(cfg, application.Services)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
