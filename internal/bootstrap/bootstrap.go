// Package bootstrap assembles the order sync components from configuration.
// The HTTP server and the CLI share it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/application/ordersync"
	"github.com/betminds/linx-orders/internal/infrastructure/auth"
	"github.com/betminds/linx-orders/internal/infrastructure/cache"
	"github.com/betminds/linx-orders/internal/infrastructure/config"
	"github.com/betminds/linx-orders/internal/infrastructure/linx"
	"github.com/betminds/linx-orders/internal/infrastructure/logger"
	"github.com/betminds/linx-orders/internal/infrastructure/persistence"
	"github.com/betminds/linx-orders/internal/infrastructure/scheduler"
	"github.com/betminds/linx-orders/internal/infrastructure/storage"
	"github.com/betminds/linx-orders/internal/infrastructure/telemetry"
)

// Options selects what New builds.
type Options struct {
	// ConfigFile overrides the config search path.
	ConfigFile string
	// RequireSource fails New when LINX credentials are missing. Otherwise
	// the source-backed runners are left nil.
	RequireSource bool
	// SkipDatabase builds no sink and no sync services (token commands).
	SkipDatabase bool
}

// App holds the wired components. Optional parts are nil when disabled.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Telemetry *telemetry.Providers

	DB     *persistence.Database
	Orders *persistence.GormOrderRepository
	Cache  cache.KnownOrderCache
	Redis  *redis.Client

	Source  *linx.Client
	Archive *storage.S3ReportArchive

	Importer   *ordersync.Importer
	Queue      *ordersync.QueueConsumer
	Reconciler *ordersync.Reconciler

	JWT         *auth.JWTService
	Revocations auth.RevocationList

	poolMetrics metric.Registration
}

// New loads configuration and wires every component. On error the parts
// built so far are released.
func New(ctx context.Context, opts Options) (_ *App, err error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	app.Logger = logger.New(logger.FromAppConfig(cfg.Log))

	app.Telemetry, err = telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Version, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry setup: %w", err)
	}
	if app.Telemetry.Logs.IsEnabled() {
		app.Logger = logger.New(logger.FromAppConfig(cfg.Log),
			app.Telemetry.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	app.Logger = app.Logger.With(zap.String("service", cfg.App.Name), zap.String("env", cfg.App.Env))

	app.JWT = auth.NewJWTService(cfg.Auth)
	app.Redis = app.connectRedis(ctx)
	if app.Redis != nil {
		app.Revocations = auth.NewRedisRevocationList(app.Redis, "")
	} else {
		app.Revocations = auth.NewInMemoryRevocationList()
	}

	if opts.SkipDatabase {
		return app, nil
	}

	if err = app.openSink(); err != nil {
		return nil, err
	}

	if err = cfg.ValidateSource(); err != nil {
		if opts.RequireSource {
			return nil, err
		}
		app.Logger.Warn("LINX source not configured; import and queue runners disabled", zap.Error(err))
	} else {
		app.Source, err = linx.NewClient(&linx.Config{
			BaseURL:           cfg.Linx.BaseURL,
			Username:          cfg.Linx.Username,
			Password:          cfg.Linx.Password,
			TimeoutSeconds:    cfg.Linx.TimeoutSeconds,
			RequestsPerSecond: cfg.Linx.RequestsPerSecond,
			Burst:             cfg.Linx.Burst,
			Location:          cfg.Linx.Location(),
		}, linx.WithLogger(app.Logger.Named("linx")))
		if err != nil {
			return nil, fmt.Errorf("linx client: %w", err)
		}
	}

	if cfg.Storage.Enabled {
		app.Archive, err = storage.NewS3ReportArchive(&cfg.Storage, storage.WithLogger(app.Logger.Named("archive")))
		if err != nil {
			return nil, fmt.Errorf("report archive: %w", err)
		}
		if err = app.Archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("report archive: %w", err)
		}
	}

	if err = app.buildServices(); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) connectRedis(ctx context.Context) *redis.Client {
	if !a.Config.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Address(),
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		a.Logger.Warn("Redis unavailable, token revocations kept in memory", zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}

func (a *App) openSink() error {
	cfg := a.Config

	gormLog := logger.NewGormLogger(a.Logger.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return err
	}
	a.DB = db

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, a.Logger); err != nil {
		return fmt.Errorf("db tracing: %w", err)
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	if a.poolMetrics, err = telemetry.RegisterPoolMetrics(a.Telemetry.ServiceMeter(), sqlDB); err != nil {
		return fmt.Errorf("pool metrics: %w", err)
	}

	a.Orders = persistence.NewGormOrderRepository(db.DB, cfg.Sink.Table)

	a.Cache, err = cache.NewKnownOrderCacheFactory(cfg.Redis, cache.WithLogger(a.Logger)).CreateCache()
	return err
}

func (a *App) buildServices() error {
	cfg := a.Config

	metrics, err := a.Telemetry.SyncMetrics()
	if err != nil {
		return fmt.Errorf("sync metrics: %w", err)
	}

	var knownOrders ordersync.KnownOrderCache
	if a.Cache != nil {
		knownOrders = a.Cache
	}
	guard := ordersync.NewDedupGuard(a.Orders, knownOrders, a.Logger.Named("dedup"))

	reconcilerOpts := []ordersync.ReconcilerOption{ordersync.WithReconcilerMetrics(metrics)}
	importerOpts := []ordersync.ImporterOption{ordersync.WithImporterMetrics(metrics)}
	queueOpts := []ordersync.QueueConsumerOption{ordersync.WithQueueMetrics(metrics)}
	if a.Archive != nil {
		reconcilerOpts = append(reconcilerOpts, ordersync.WithReconcilerArchiver(a.Archive))
		importerOpts = append(importerOpts, ordersync.WithImporterArchiver(a.Archive))
		queueOpts = append(queueOpts, ordersync.WithQueueArchiver(a.Archive))
	}

	a.Reconciler = ordersync.NewReconciler(a.Orders, a.Logger.Named("reconciler"), reconcilerOpts...)

	if a.Source == nil {
		return nil
	}

	loc := cfg.Linx.Location()
	a.Importer = ordersync.NewImporter(a.Source, a.Orders, guard,
		ordersync.NewStrictNormalizer(loc, a.Logger),
		ordersync.ImporterConfig{PageSize: cfg.Import.PageSize, PagePause: cfg.Import.PagePause},
		a.Logger.Named("importer"), importerOpts...)

	a.Queue = ordersync.NewQueueConsumer(a.Source, a.Orders, guard,
		ordersync.NewLenientNormalizer(loc, a.Logger),
		ordersync.QueueConfig{
			QueueID:      cfg.Queue.QueueID,
			PageSize:     cfg.Queue.PageSize,
			SkipExisting: cfg.Queue.SkipExisting,
		},
		a.Logger.Named("queue"), queueOpts...)
	return nil
}

// Runners returns the scheduler runners for the services that were built.
func (a *App) Runners() scheduler.Runners {
	var r scheduler.Runners
	if a.Importer != nil {
		r.Importer = a.Importer
	}
	if a.Queue != nil {
		r.Queue = a.Queue
	}
	if a.Reconciler != nil {
		r.Reconciler = a.Reconciler
	}
	return r
}

// NewScheduler creates a sync scheduler over the built services.
func (a *App) NewScheduler() (*scheduler.SyncScheduler, error) {
	return scheduler.NewSyncScheduler(scheduler.Config{
		JobTimeout:  a.Config.Scheduler.JobTimeout,
		HistorySize: a.Config.Scheduler.HistorySize,
		QueueSize:   a.Config.Scheduler.QueueSize,
	}, a.Runners(), a.Logger.Named("scheduler"))
}

// PeriodicTriggerConfig maps the queue and import sections. Nothing is
// scheduled unless scheduler.enabled is set.
func (a *App) PeriodicTriggerConfig() scheduler.PeriodicTriggerConfig {
	cfg := a.Config
	var pc scheduler.PeriodicTriggerConfig
	if !cfg.Scheduler.Enabled {
		return pc
	}
	if cfg.Queue.Periodic && a.Queue != nil {
		pc.QueueInterval = cfg.Queue.PollInterval
	}
	if cfg.Import.Periodic && a.Importer != nil {
		pc.ImportInterval = cfg.Import.Interval
		pc.MaxOrders = cfg.Import.MaxOrders
	}
	return pc
}

// Close releases every component in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.poolMetrics != nil {
		errs = append(errs, a.poolMetrics.Unregister())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Telemetry != nil {
		errs = append(errs, a.Telemetry.Shutdown(ctx))
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
