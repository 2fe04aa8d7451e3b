// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/api"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/engine"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/linkservice"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/mcpserver"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/requirements"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/sse"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/store"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger unless the host supplied one.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Requirement mirror fed by link deltas; the broker gets the same
	// deltas fanned out as events.
	mirror := requirements.NewMirror()
	brokerListener := engine.ListenerFunc(func(docID string, d document.LinkDelta) {
		for _, reqID := range d.Removed {
			broker.PublishLinkEvent("removed", docID, d.BlockID, reqID)
		}
		for _, rec := range d.Added {
			broker.PublishLinkEvent("added", docID, d.BlockID, rec.ReqID)
		}
	})

	// Build link service and router.
	svc := linkservice.NewService(db, logger, linkservice.Config{
		LeaseTTL:         cfg.Lease.TTL,
		FlushDebounce:    cfg.Persistence.FlushDebounce,
		MaxFlushInterval: cfg.Persistence.MaxFlushInterval,
	}, mirror, brokerListener)
	apiRouter := api.NewRouter(svc, mirror, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the store file so observer sessions resync after another
	// process commits.
	g.Go(func() error {
		if err := store.Watch(gCtx, cfg.SQLite.Path, logger, svc.ResyncObservers); err != nil {
			logger.Warn("store watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Flush every open session before the process exits; this is the
		// highest-reliability exit path for unsaved changes.
		if err := svc.Close(); err != nil {
			logger.Error("session flush on shutdown failed", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio instead of HTTP. Used by LLM
// clients that embed Docbrand as a tool provider.
func RunMCP(cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	mirror := requirements.NewMirror()
	svc := linkservice.NewService(db, logger, linkservice.Config{
		LeaseTTL:         cfg.Lease.TTL,
		FlushDebounce:    cfg.Persistence.FlushDebounce,
		MaxFlushInterval: cfg.Persistence.MaxFlushInterval,
	}, mirror)
	defer svc.Close() //nolint:errcheck // final flush on exit

	return mcpserver.New(svc).ServeStdio()
}
