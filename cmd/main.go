// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/campus-fest/registration/internal/config"
	"github.com/campus-fest/registration/internal/database"
	"github.com/campus-fest/registration/internal/handler"
	"github.com/campus-fest/registration/internal/memstore"
	"github.com/campus-fest/registration/internal/repository"
	"github.com/campus-fest/registration/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Pick a storage backend ─────────────────────────────────────────
	var (
		events service.EventStore
		txns   service.TransactionStore
	)
	switch cfg.Storage {
	case "memory":
		store := memstore.New()
		events = store.Events()
		txns = store.Transactions()
		log.Println("using in-memory storage (data is not persisted)")
	default:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		events = repository.NewEventRepository(pool)
		txns = repository.NewTransactionRepository(pool)
		log.Println("connected to PostgreSQL")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	svc := service.NewRegistrationService(events, txns)
	regHandler := handler.NewRegistrationHandler(svc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(handler.Logger)          // structured access log
	r.Use(handler.CORS)            // permissive CORS for the admin UI

	r.Get("/health", handler.HealthCheck)
	r.Group(regHandler.Routes)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
