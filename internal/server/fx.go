// Package server builds the report service from configuration and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-reports/internal/api"
	"github.com/JakeFAU/crawl-reports/internal/artifact"
	"github.com/JakeFAU/crawl-reports/internal/clock/system"
	"github.com/JakeFAU/crawl-reports/internal/config"
	"github.com/JakeFAU/crawl-reports/internal/dashboard"
	"github.com/JakeFAU/crawl-reports/internal/logging"
	memorypublisher "github.com/JakeFAU/crawl-reports/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/crawl-reports/internal/publisher/pubsub"
	gcsstorage "github.com/JakeFAU/crawl-reports/internal/storage/gcs"
	localstorage "github.com/JakeFAU/crawl-reports/internal/storage/local"
	memorystorage "github.com/JakeFAU/crawl-reports/internal/storage/memory"
	pgstore "github.com/JakeFAU/crawl-reports/internal/storage/postgres"
	"github.com/JakeFAU/crawl-reports/internal/telemetry"
)

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	apiServer      *api.Server
	service        *dashboard.Service
	pubsubClient   *pubsub.Client
	gcpPublisher   *gcppublisher.Publisher
	storage        *storage.Client
	snapshots      *pgstore.SnapshotStore
	tracerShutdown func(context.Context) error
}

// Service returns the report service.
func (a *App) Service() *dashboard.Service {
	return a.service
}

// Handler returns the HTTP handler of the API server.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Run serves HTTP until the context is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close releases every client the app opened.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure()
	a.closeObservability(ctx)
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure() {
	if a.gcpPublisher != nil {
		a.gcpPublisher.Close()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.snapshots != nil {
		a.snapshots.Close()
	}
}

// abort unwinds a partially built app.
func (a *App) abort(ctx context.Context) {
	a.closeInfrastructure()
	a.closeObservability(ctx)
}

func (a *App) closeObservability(ctx context.Context) {
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some platforms
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
		Service:     cfg.Application.ServiceName,
		Version:     cfg.Application.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
	)

	app := &App{cfg: cfg, logger: logger}

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Application.ServiceName, cfg.Application.Version)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	blobs, err := setupStorage(ctx, app)
	if err != nil {
		app.abort(ctx)
		return nil, err
	}
	var store artifact.Store = artifact.NewStore(blobs, artifact.Config{Prefix: cfg.Storage.Prefix}, logger.Named("artifact"))
	if cfg.Cache.Enabled {
		store = artifact.NewCachingStore(store, cfg.CacheTTL())
		logger.Info("artifact cache enabled", zap.Duration("ttl", cfg.CacheTTL()))
	}

	opts := []dashboard.Option{
		dashboard.WithLogger(logger.Named("dashboard")),
		dashboard.WithClock(system.New()),
	}
	if err := setupDatabase(ctx, app); err != nil {
		app.abort(ctx)
		return nil, err
	}
	if app.snapshots != nil {
		opts = append(opts, dashboard.WithSnapshots(app.snapshots))
	}
	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.abort(ctx)
		return nil, err
	}
	opts = append(opts, dashboard.WithPublisher(publisher))

	app.service, err = dashboard.New(store, dashboard.Config{
		FetchConcurrency: cfg.Reports.FetchConcurrency,
		Categories:       cfg.Reports.Categories,
		Topic:            cfg.PubSub.TopicName,
	}, opts...)
	if err != nil {
		app.abort(ctx)
		return nil, fmt.Errorf("report service init failed: %w", err)
	}

	app.apiServer = api.NewServer(app.service, *cfg, logger.Named("api"))
	return app, nil
}

func setupStorage(ctx context.Context, app *App) (artifact.Blobs, error) {
	switch app.cfg.Storage.Backend {
	case config.BackendGCS:
		app.logger.Info("using GCS storage backend", zap.String("bucket", app.cfg.Storage.Bucket))
		var err error
		app.storage, err = storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		blobs, err := gcsstorage.New(app.storage, gcsstorage.Config{Bucket: app.cfg.Storage.Bucket})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return blobs, nil
	case config.BackendLocal:
		app.logger.Info("using local storage backend", zap.String("path", app.cfg.Storage.Local.BaseDir))
		blobs, err := localstorage.New(localstorage.Config{BaseDir: app.cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return blobs, nil
	default:
		app.logger.Info("using in-memory storage backend")
		return memorystorage.NewBlobStore(), nil
	}
}

func setupDatabase(ctx context.Context, app *App) error {
	if app.cfg.Database.DSN == "" {
		app.logger.Warn("no DSN specified for database, snapshot history disabled")
		return nil
	}
	snapshots, err := pgstore.NewSnapshotStore(ctx, pgstore.Config{
		DSN:             app.cfg.Database.DSN,
		Table:           app.cfg.Database.Table,
		MaxConns:        app.cfg.Database.MaxConns,
		MinConns:        app.cfg.Database.MinConns,
		MaxConnLifetime: app.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("snapshot store init failed: %w", err)
	}
	app.snapshots = snapshots
	if err := snapshots.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("snapshot schema init failed: %w", err)
	}
	app.logger.Info("snapshot store initialized", zap.String("table", app.cfg.Database.Table))
	return nil
}

func setupPublisher(ctx context.Context, app *App) (dashboard.Publisher, error) {
	if app.cfg.PubSub.TopicName == "" || app.cfg.PubSub.ProjectID == "" {
		app.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.gcpPublisher = gcppublisher.New(app.pubsubClient)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return app.gcpPublisher, nil
}
