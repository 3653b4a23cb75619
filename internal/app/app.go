// Package app provides application lifecycle management for the Faceton
// coordinator.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	httpapi "github.com/faceton/faceton/internal/api/http"
	"github.com/faceton/faceton/internal/archive"
	"github.com/faceton/faceton/internal/config"
	"github.com/faceton/faceton/internal/facet"
	"github.com/faceton/faceton/internal/observability"
	"github.com/faceton/faceton/internal/server"
)

// App wires the coordinator's components and manages their lifecycle.
type App struct {
	cfg *config.Config
	log *logrus.Logger

	recycler *facet.Recycler
	reducer  *facet.Reducer
	stats    *observability.MergeStats
	metrics  *observability.Metrics
	archive  archive.Archive

	httpServer *http.Server
	shutdown   *server.ShutdownManager

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an App with the given configuration.
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &App{
		cfg: cfg,
		log: log,
	}, nil
}

// Start initializes all components and starts the HTTP server.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.recycler = facet.NewRecycler(a.cfg.Merge.PoolStripes, a.cfg.Merge.PoolMaxPerStripe)
	a.reducer = facet.NewReducer(a.recycler)
	a.stats = observability.NewMergeStats(a.cfg.Stats.Window)
	a.metrics = observability.NewMetrics(a.recycler)
	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())

	if err := a.initArchive(ctx); err != nil {
		a.cleanup()
		return err
	}

	a.startStatsPruner(ctx)

	if err := a.startHTTPServer(); err != nil {
		a.cleanup()
		return err
	}

	a.log.WithFields(logrus.Fields{
		"addr":            a.cfg.HTTP.Addr,
		"archive_enabled": a.cfg.Archive.Enabled,
		"pool_stripes":    a.cfg.Merge.PoolStripes,
	}).Info("faceton coordinator started")
	return nil
}

// initArchive initializes the configured archive backend, if any.
func (a *App) initArchive(ctx context.Context) error {
	if !a.cfg.Archive.Enabled {
		return nil
	}

	switch a.cfg.Archive.Backend {
	case "sqlite":
		arc, err := archive.NewSQLiteArchive(a.cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open sqlite archive: %w", err)
		}
		a.archive = arc
	case "local":
		store, err := archive.NewLocalStore(a.cfg.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to open local archive: %w", err)
		}
		a.archive = archive.NewObjectArchive(store)
	case "s3":
		store, err := archive.NewS3Store(ctx, a.cfg.Archive.S3.Bucket, archive.S3Config{
			Region:       a.cfg.Archive.S3.Region,
			Endpoint:     a.cfg.Archive.S3.Endpoint,
			UsePathStyle: a.cfg.Archive.S3.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 archive: %w", err)
		}
		a.archive = archive.NewObjectArchive(store)
	default:
		return fmt.Errorf("unsupported archive backend: %s", a.cfg.Archive.Backend)
	}

	a.shutdown.RegisterCloser(a.archive)
	a.log.WithField("backend", a.cfg.Archive.Backend).Info("result archive initialized")
	return nil
}

// startStatsPruner evicts idle facet stats on a fixed cadence.
func (a *App) startStatsPruner(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.stats.Prune()
			}
		}
	}()
}

// startHTTPServer builds the router and starts serving.
func (a *App) startHTTPServer() error {
	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.ContentTypeMiddleware,
	)

	mergeHandler := httpapi.NewMergeHandler(
		a.reducer, a.stats, a.metrics, a.archive,
		a.cfg.Merge.MaxPartialsPerRequest, a.log,
	)
	statsHandler := httpapi.NewStatsHandler(a.stats)

	router := mux.NewRouter()
	router.Handle("/v1/facets/merge", middleware(mergeHandler)).Methods(http.MethodPost)
	router.Handle("/v1/facets/stats", middleware(statsHandler)).Methods(http.MethodGet)

	if a.archive != nil {
		archiveHandler := httpapi.NewArchiveHandler(a.archive)
		router.Handle("/v1/facets/archive",
			middleware(http.HandlerFunc(archiveHandler.List))).Methods(http.MethodGet)
		router.Handle("/v1/facets/archive/{request_id}/{facet}",
			middleware(http.HandlerFunc(archiveHandler.Get))).Methods(http.MethodGet)
	}

	router.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/health", a.healthHandler()).Methods(http.MethodGet)

	a.httpServer = &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.log.WithField("addr", a.cfg.HTTP.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully stops the coordinator and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.log.Info("initiating graceful shutdown")

	if a.cancel != nil {
		a.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	// Close the archive and other registered resources.
	if err := a.shutdown.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("shutdown error")
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		a.log.Warn("shutdown timeout, some goroutines may not have finished")
	}

	a.cleanup()
	a.log.Info("faceton coordinator stopped")
	return nil
}

// cleanup releases resources not covered by the shutdown manager.
func (a *App) cleanup() {
	// Archive closure is registered with the shutdown manager; when Start
	// failed before registration, close it directly.
	if a.archive != nil && a.shutdown != nil && !a.shutdown.IsShuttingDown() {
		a.archive.Close()
	}
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}

// healthHandler reports liveness.
func (a *App) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","service":"faceton"}`)
	}
}
