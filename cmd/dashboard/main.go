package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/coffee-dashboard/internal/api"
	"github.com/dvloznov/coffee-dashboard/internal/app"
	"github.com/dvloznov/coffee-dashboard/internal/config"
	"github.com/dvloznov/coffee-dashboard/internal/logger"
)

func main() {
	// Parse flags over .env and environment defaults
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	// Initialize logger
	log, err := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}
	defer a.Close()

	// Load once at startup so a broken source is reported before the first visit
	if _, err := a.NewSession(ctx); err != nil {
		log.Warn().Err(err).Msg("Data sources failed to load; pages will show the error until fixed")
	}

	handler, err := api.NewRouter(api.Deps{
		Sessions: a.Sessions,
		Renderer: a.Renderer,
		Currency: cfg.Currency,
		Log:      log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		startLog := logger.WithFields(log, map[string]interface{}{
			"port":         cfg.Port,
			"transactions": cfg.TransactionsURI,
			"enriched":     cfg.EnrichedURI,
		})
		startLog.Info().Msg("Starting dashboard server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
