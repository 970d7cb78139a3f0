// Package main API.
//
// go-signpdf provides a REST API for storing and signing PDF files.
//
//	Schemes: http
//	BasePath: /
//	Version: 1.0.0
//	Host: localhost:8080
//
//	Consumes:
//	- application/json
//	- multipart/form-data
//
//	Produces:
//	- application/json
//	- application/pdf
//
// swagger:meta
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-signpdf/internal/config"
	"go-signpdf/internal/logging"
	"go-signpdf/internal/server"
	"go-signpdf/internal/store"
)

func gracefulShutdown(apiServer *http.Server, timeout time.Duration, done chan bool, cleanupFunc func()) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	logging.Info("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has `timeout` to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	if cleanupFunc != nil {
		cleanupFunc()
	}

	logging.Info("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Options{
		Level:      cfg.Logger.Level,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
		Compress:   cfg.Logger.Compress,
	})
	defer logging.Close()

	logging.Info("Starting server", "port", cfg.Server.Port)

	docs, err := store.Open(context.Background(), cfg.Store.URL, cfg.Store.Database)
	if err != nil {
		logging.Error("Failed to open document store", "error", err)
		os.Exit(1)
	}

	apiServer := server.NewServer(cfg, docs)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(apiServer, cfg.Server.ShutdownTimeout, done, func() {
		logging.Info("Closing document store")
		if err := docs.Close(); err != nil {
			logging.Error("Failed to close document store", "error", err)
		}
	})

	err = apiServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	logging.Info("Graceful shutdown complete.")
}
