// Package server provides the core application server and dependency wiring.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/wordcount-api/internal/api"
	"github.com/JakeFAU/wordcount-api/internal/clock/system"
	"github.com/JakeFAU/wordcount-api/internal/config"
	"github.com/JakeFAU/wordcount-api/internal/fetcher"
	collyfetcher "github.com/JakeFAU/wordcount-api/internal/fetcher/colly"
	streamfetcher "github.com/JakeFAU/wordcount-api/internal/fetcher/stream"
	"github.com/JakeFAU/wordcount-api/internal/id/uuid"
	"github.com/JakeFAU/wordcount-api/internal/logging"
	"github.com/JakeFAU/wordcount-api/internal/metrics"
	"github.com/JakeFAU/wordcount-api/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/wordcount-api/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/wordcount-api/internal/publisher/pubsub"
	wcstorage "github.com/JakeFAU/wordcount-api/internal/storage"
	gcsstorage "github.com/JakeFAU/wordcount-api/internal/storage/gcs"
	memorystorage "github.com/JakeFAU/wordcount-api/internal/storage/memory"
	pgstore "github.com/JakeFAU/wordcount-api/internal/storage/postgres"
	sqlitestore "github.com/JakeFAU/wordcount-api/internal/storage/sqlite"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

const shutdownTimeout = 10 * time.Second

type closablePublisher interface {
	wordcount.Publisher
	Close() error
}

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	service   *wordcount.Service
	store     wordcount.Store
	publisher closablePublisher
	transport *http.Transport
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("creating application",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.Bool("publishing_enabled", cfg.PublishingEnabled()),
	)
	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler returns the API router.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP until ctx is canceled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", a.cfg.Server.Port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until ctx is done.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close(shutdownCtx)
}

// Close releases the store, publisher, and pooled connections.
func (a *App) Close(_ context.Context) error {
	err := a.closeInfrastructure()
	if syncErr := a.logger.Sync(); syncErr != nil {
		a.logger.Debug("logger sync failed", zap.Error(syncErr))
	}
	a.logger.Info("shutdown complete")
	return err
}

func (a *App) closeInfrastructure() error {
	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
		a.publisher = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("record store close failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("close record store: %w", err))
		}
		a.store = nil
	}
	if a.transport != nil {
		a.transport.CloseIdleConnections()
	}
	return errors.Join(errs...)
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
		File: logging.FileOptions{
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	return BuildWithLogger(ctx, cfg, logger)
}

// BuildWithLogger creates the application's dependencies around logger.
func BuildWithLogger(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app init failed: %w", err)
	}
	metrics.Init()

	app.logger.Info("building application dependencies")
	if err := setupStore(ctx, app); err != nil {
		return nil, err
	}
	if err := setupPublisher(ctx, app); err != nil {
		_ = app.closeInfrastructure()
		return nil, err
	}
	whole, streamed, err := setupFetchers(app)
	if err != nil {
		_ = app.closeInfrastructure()
		return nil, err
	}

	var publisher wordcount.Publisher
	if app.publisher != nil {
		publisher = app.publisher
	}
	app.service = wordcount.NewService(
		whole,
		streamed,
		app.store,
		publisher,
		system.New(),
		uuid.New(),
		wordcount.Config{Topic: cfg.PubSub.TopicName},
		app.logger.Named("wordcount"),
	)
	app.apiServer = api.NewServer(app.service, *cfg, app.logger.Named("api"))

	return app, nil
}

func setupStore(ctx context.Context, app *App) error {
	cfg := app.cfg.Storage
	switch cfg.Backend {
	case wcstorage.BackendPostgres:
		app.logger.Info("using postgres record store", zap.String("table", cfg.Postgres.Table))
		store, err := pgstore.NewRecordStore(ctx, pgstore.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: time.Duration(cfg.Postgres.MaxConnLifetimeSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("postgres record store init failed: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return fmt.Errorf("postgres schema init failed: %w", err)
		}
		app.store = store
	case wcstorage.BackendSQLite:
		app.logger.Info("using sqlite record store", zap.String("path", cfg.SQLite.Path))
		store, err := sqlitestore.Open(ctx, cfg.SQLite.Path, app.logger.Named("sqlite"))
		if err != nil {
			return fmt.Errorf("sqlite record store init failed: %w", err)
		}
		app.store = store
	case wcstorage.BackendGCS:
		app.logger.Info("using GCS record store",
			zap.String("bucket", cfg.GCS.Bucket),
			zap.String("prefix", cfg.GCS.Prefix),
		)
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		store, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket: cfg.GCS.Bucket,
			Prefix: cfg.GCS.Prefix,
		}, app.logger.Named("gcs"))
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("gcs record store init failed: %w", err)
		}
		app.store = store
	default:
		app.logger.Warn("using in-memory record store; history is lost on restart")
		app.store = memorystorage.NewRecordStore()
	}
	return nil
}

func setupPublisher(ctx context.Context, app *App) error {
	switch {
	case app.cfg.PubSub.TopicName == "":
		app.logger.Info("completion publishing disabled")
		return nil
	case app.cfg.PubSub.ProjectID == "":
		app.logger.Warn("no Pub/Sub project configured, using in-memory publisher",
			zap.String("topic", app.cfg.PubSub.TopicName),
		)
		app.publisher = memorypublisher.New()
		return nil
	}
	client, err := pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.publisher = gcppublisher.New(client)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return nil
}

func setupFetchers(app *App) (*collyfetcher.Fetcher, *streamfetcher.Fetcher, error) {
	fetchCfg := app.cfg.Fetch()
	transport, err := fetcher.NewTransport(fetchCfg.EnableHTTP2)
	if err != nil {
		return nil, nil, fmt.Errorf("http transport init failed: %w", err)
	}
	app.transport = transport

	var rt http.RoundTripper = transport
	if limit := app.cfg.RateLimit(); limit.RPS > 0 {
		rt = ratelimit.New(limit).Transport(transport)
		app.logger.Info("per-host fetch rate limit enabled",
			zap.Float64("rps", limit.RPS),
			zap.Int("burst", limit.Burst),
		)
	}

	whole, err := collyfetcher.New(fetchCfg, rt, app.logger.Named("colly"))
	if err != nil {
		return nil, nil, fmt.Errorf("colly fetcher init failed: %w", err)
	}
	streamed, err := streamfetcher.New(fetchCfg, rt, app.logger.Named("stream"))
	if err != nil {
		return nil, nil, fmt.Errorf("stream fetcher init failed: %w", err)
	}
	app.logger.Info("fetchers ready",
		zap.String("user_agent", fetchCfg.UserAgent),
		zap.Duration("timeout", fetchCfg.Timeout),
		zap.Int("chunk_size", fetchCfg.ChunkSize),
		zap.Bool("http2", fetchCfg.EnableHTTP2),
	)
	return whole, streamed, nil
}
