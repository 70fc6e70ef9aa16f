// Package internal wires configuration, storage, index, and services into
// the server and CLI entry points.
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

	"github.com/starford/othala/internal/api"
	"github.com/starford/othala/internal/docservice"
	"github.com/starford/othala/internal/hierarchy"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/mcpserver"
	"github.com/starford/othala/internal/sse"
	"github.com/starford/othala/internal/storage"
)

// openVault creates the vault directory if needed, opens storage and the
// SQLite index, and reconciles the index with what is on disk. The caller
// owns closing the returned DB.
func openVault(cfg *Config, logger *slog.Logger) (storage.Provider, *index.DB, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create vault dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}
	return store, db, nil
}

// Run starts the HTTP server and, when enabled, the vault watcher. It
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Hierarchy mutations and watcher events feed the SSE stream.
	broker := sse.NewBroker(cfg.SSE.HierarchyThrottle())

	docs := docservice.NewService(store, db)
	hier := hierarchy.New(store, db, logger)
	hier.OnChange(func(event, name string) {
		broker.PublishChange(event, map[string]string{"name": name})
	})

	apiRouter := api.NewRouter(docs, hier, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health checks stay outside the auth group.
	r.Get("/health/live", healthOK)
	r.Get("/health/ready", healthOK)

	// Everything else, including SSE at /api/events, sits under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Vault.Watch {
		g.Go(func() error {
			return index.Watch(gCtx, db, store, cfg.Vault.Path, logger, func(kind, path string) {
				broker.PublishChange("document."+kind, map[string]string{"path": path})
			})
		})
	}

	g.Go(func() error {
		logger.Info("Server starting", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped")
	return nil
}

func healthOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// RunMCP serves the MCP interface on stdio. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, db, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	docs := docservice.NewService(store, db)
	hier := hierarchy.New(store, db, logger)

	logger.Info("MCP server starting on stdio")
	return mcpserver.New(docs, hier).ServeStdio()
}

// WithVault opens the vault, runs fn against the hierarchy service, and
// closes the index. One-shot CLI commands use it.
func WithVault(cfg *Config, fn func(hier *hierarchy.Service) error) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	store, db, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(hierarchy.New(store, db, logger))
}
