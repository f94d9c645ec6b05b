package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"central_logger/internal/config"
	"central_logger/internal/httpapi"
	"central_logger/internal/utils"
)

func main() {
	addr := pflag.String("addr", "", "listen address (default \":\" + HTTP_PORT)")
	migrate := pflag.Bool("migrate", false, "create or update the database schema before serving")
	pflag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr == "" {
		*addr = ":" + cfg.HTTPPort
	}

	// Create router with all dependencies
	handler, deps, err := httpapi.NewRouter(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := deps.DB.Migrate(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Printf("Database schema is up to date (%s)", deps.DB.Driver())
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(utils.NewLogger("server").Slog().Handler(), slog.LevelError),
	}

	// Start server in goroutine
	go func() {
		log.Printf("%s (%s) listening on %s", cfg.ServiceName, cfg.Environment, *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Flush the archive and close database and Redis connections
	if err := deps.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown dependencies: %v", err)
	}

	log.Println("Server exited")
}
