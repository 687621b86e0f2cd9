// Package internal provides the application initialization and runtime logic
// behind each ob command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/obvault/internal/api"
	"github.com/starford/obvault/internal/index"
	"github.com/starford/obvault/internal/mcpserver"
	"github.com/starford/obvault/internal/noteservice"
	"github.com/starford/obvault/internal/sse"
	"github.com/starford/obvault/internal/vault"
)

const (
	tagsThrottle    = 2 * time.Second
	shutdownTimeout = 10 * time.Second
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		version: "dev",
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger builds the structured JSON logger and installs it as the default.
// Logs never go to stdout: it carries reports and the MCP stream.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.stderr, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) service(logger *slog.Logger) (*noteservice.Service, *vault.Vault) {
	v := a.config.Vault.Open(logger)
	return noteservice.NewService(v, a.config.ServiceOptions(), logger), v
}

// openCatalog opens the catalog and brings it in step with the vault.
func (a *application) openCatalog(ctx context.Context, v *vault.Vault, logger *slog.Logger) (*index.DB, index.SyncStats, error) {
	path, err := a.config.Catalog.Resolve(v.Root())
	if err != nil {
		return nil, index.SyncStats{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, index.SyncStats{}, fmt.Errorf("init catalog: %w", err)
	}
	logger.Debug("catalog: open", slog.String("path", path))
	db, err := index.Open(path)
	if err != nil {
		return nil, index.SyncStats{}, fmt.Errorf("init catalog: %w", err)
	}
	stats, err := index.Sync(ctx, db, v, logger)
	if err != nil {
		db.Close()
		return nil, index.SyncStats{}, fmt.Errorf("initial sync: %w", err)
	}
	return db, stats, nil
}

// Index syncs the catalog once and prints what changed.
func Index(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	v := app.config.Vault.Open(logger)

	db, stats, err := app.openCatalog(ctx, v, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	return app.emit(stats, func() error {
		_, err := fmt.Fprintf(app.stdout, "added %d, updated %d, removed %d, unchanged %d\n",
			stats.Added, stats.Updated, stats.Removed, stats.Unchanged)
		return err
	})
}

// Watch syncs the catalog, then keeps it fresh until interrupted.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	v := app.config.Vault.Open(logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, stats, err := app.openCatalog(ctx, v, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("catalog: ready", slog.Int("added", stats.Added), slog.Int("updated", stats.Updated),
		slog.Int("removed", stats.Removed))

	return index.Watch(ctx, db, v, logger, func(kind, path string) {
		logger.Info("catalog: changed", slog.String("kind", kind), slog.String("path", path))
	})
}

// MCP serves the vault tools over stdio.
func MCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()
	svc, v := app.service(logger)

	db, _, err := app.openCatalog(ctx, v, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info("mcp: serving on stdio", slog.String("vault", v.Root()))
	return mcpserver.New(svc, db, app.version).ServeStdio()
}

// newHTTPHandler assembles the root router: health probes outside auth and
// the API under /api.
func newHTTPHandler(v *vault.Vault, apiRouter http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := v.CheckRoot(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"vault unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)
	return r
}

// Serve starts the HTTP API with a catalog kept fresh by the watcher.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, v := app.service(logger)
	if err := v.CheckRoot(); err != nil {
		return err
	}

	db, stats, err := app.openCatalog(ctx, v, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("catalog: ready", slog.Int("added", stats.Added), slog.Int("updated", stats.Updated),
		slog.Int("removed", stats.Removed))

	broker := sse.NewBroker(tagsThrottle)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, db, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)
	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(v, apiRouter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, v, logger, broker.NoteChanged)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server...")

		// Closing the broker ends open event streams so Shutdown can drain.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
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
