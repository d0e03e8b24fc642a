package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/smartspend/internal/api/handlers"
	"github.com/dvloznov/smartspend/internal/app"
	"github.com/dvloznov/smartspend/internal/config"
	"github.com/dvloznov/smartspend/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", "", "Path to config file (defaults to SMARTSPEND_CONFIG or ~/.config/smartspend/config.toml)")
		port       = flag.Int("port", 0, "HTTP server port (overrides server.port)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides store.sqlite_path)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.SQLitePath = *dbPath
	}

	// Initialize logger
	log := logger.WithFields(logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stdout), map[string]interface{}{
		"service": "smartspend-api",
	})

	ctx := logger.WithContext(context.Background(), log)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise service")
	}
	defer a.Close()

	if !a.Service.OCREnabled() {
		log.Warn().Msg("No OCR configured - receipt image scanning will be disabled")
	}

	handler := handlers.NewRouter(a.Service, cfg.Server.MaxUploadMB<<20, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Str("store", cfg.Store.Driver).Msg("Starting API server")
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
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
