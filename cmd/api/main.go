package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"

	"github.com/wolfman30/lifevault-relay/cmd/mainconfig"
	"github.com/wolfman30/lifevault-relay/internal/app/bootstrap"
	appconfig "github.com/wolfman30/lifevault-relay/internal/config"
	"github.com/wolfman30/lifevault-relay/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting lifevault relay API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"registry", cfg.RegistryBackend,
		"provider", cfg.CompletionProvider,
	)

	ctx := context.Background()
	app, err := bootstrap.BuildApp(ctx, cfg, func(ctx context.Context) (aws.Config, error) {
		return mainconfig.LoadAWSConfig(ctx, cfg)
	}, logger)
	if err != nil {
		logger.Error("failed to build relay", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	// Create HTTP server. Writes must outlast the upstream deadline.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.CompletionTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
