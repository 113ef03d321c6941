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

	"github.com/starford/mimir/internal/api"
	"github.com/starford/mimir/internal/mcpserver"
	"github.com/starford/mimir/internal/memservice"
	"github.com/starford/mimir/internal/migrate"
	"github.com/starford/mimir/internal/relindex"
	"github.com/starford/mimir/internal/sse"
	"github.com/starford/mimir/internal/store"
)

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("memory_root", cfg.Memory.Root),
		slog.String("index_path", cfg.Index.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	st, db, err := openCore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	// Index any workspaces that changed while the server was down.
	if err := rebuildAll(db, st, logger); err != nil {
		logger.Warn("initial index rebuild failed", slog.String("error", err.Error()))
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	// Build memory service and router.
	svc := memservice.New(st, db, logger)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, cfg.Memory.DefaultWorkspace)

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

	// Start the filesystem watcher with an SSE callback.
	g.Go(func() error {
		err := relindex.Watch(gCtx, db, st, logger, func(op, workspace, kind, id string) {
			broker.PublishEntityEvent(op, workspace, kind, id)
		})
		if err != nil {
			logger.Warn("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Periodic retention sweep across all workspaces.
	g.Go(func() error {
		ticker := time.NewTicker(st.Policy().SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				sweepAll(st, logger)
			}
		}
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
		broker.Close()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so stdout
// stays clean for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, db, err := openCore(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rebuildAll(db, st, logger); err != nil {
		logger.Warn("initial index rebuild failed", slog.String("error", err.Error()))
	}

	svc := memservice.New(st, db, logger)
	return mcpserver.New(svc, cfg.Memory.DefaultWorkspace).ServeStdio()
}

// RunMigrate imports legacy journal files from legacyDir into the store.
func RunMigrate(_ context.Context, legacyDir string, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	st, err := store.New(cfg.Memory.Root,
		store.WithLogger(logger),
		store.WithPolicy(cfg.Retention.Policy()))
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	stats, err := migrate.Run(legacyDir, st, logger)
	if err != nil {
		return err
	}
	logger.Info("Migration finished",
		slog.Int("created", stats.Created),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))
	return nil
}

func openCore(cfg *Config, logger *slog.Logger) (*store.Store, *relindex.DB, error) {
	if err := os.MkdirAll(cfg.Memory.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create memory root: %w", err)
	}

	st, err := store.New(cfg.Memory.Root,
		store.WithLogger(logger),
		store.WithPolicy(cfg.Retention.Policy()))
	if err != nil {
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	db, err := relindex.Open(cfg.Index.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	return st, db, nil
}

func rebuildAll(db *relindex.DB, st *store.Store, logger *slog.Logger) error {
	states, err := st.DiscoverWorkspaces()
	if err != nil {
		return err
	}
	for _, ws := range states {
		if _, err := db.RebuildIfChanged(st, ws.WorkspaceID); err != nil {
			logger.Warn("index rebuild failed",
				slog.String("workspace", ws.WorkspaceID),
				slog.String("error", err.Error()))
		}
	}
	if _, err := db.CleanupOrphans(st); err != nil {
		logger.Warn("orphan cleanup failed", slog.String("error", err.Error()))
	}
	return nil
}

func sweepAll(st *store.Store, logger *slog.Logger) {
	states, err := st.DiscoverWorkspaces()
	if err != nil {
		logger.Warn("sweep discovery failed", slog.String("error", err.Error()))
		return
	}
	for _, ws := range states {
		removed, err := st.SweepExpired(ws.WorkspaceID)
		if err != nil {
			logger.Warn("sweep failed",
				slog.String("workspace", ws.WorkspaceID),
				slog.String("error", err.Error()))
			continue
		}
		if removed > 0 {
			logger.Info("retention sweep removed records",
				slog.String("workspace", ws.WorkspaceID),
				slog.Int("removed", removed))
		}
	}
}
