package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-threads/internal/data/db"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/config"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/courselock"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/detect"
	"github.com/yungbote/neurobridge-threads/internal/observability"
	"github.com/yungbote/neurobridge-threads/internal/platform/envutil"
	"github.com/yungbote/neurobridge-threads/internal/platform/logger"
	"github.com/yungbote/neurobridge-threads/internal/temporalx/temporalworker"
	"github.com/yungbote/neurobridge-threads/internal/temporalx/threaddetect"
)

// App is the worker process: store, clients, course lock and the Temporal runner.
type App struct {
	Log     *logger.Logger
	DB      *gorm.DB
	Cfg     config.Config
	Clients Clients
	Locker  courselock.Locker
	Worker  *temporalworker.Runner
	Metrics *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading thread engine configuration...")
	cfg := config.LoadConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, err
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := db.AutoMigrateAll(pg.DB()); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	var rdb goredis.UniversalClient
	if clients.Redis != nil {
		rdb = clients.Redis
	}
	locker, err := detect.NewLocker(cfg, pg.DB(), rdb, log)
	if err != nil {
		clients.Close(ctx)
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("init course lock: %w", err)
	}

	a := &App{
		Log:          log,
		DB:           pg.DB(),
		Cfg:          cfg,
		Clients:      clients,
		Locker:       locker,
		Metrics:      observability.Init(log),
		pg:           pg,
		otelShutdown: observability.InitOTel(ctx, log, observability.OtelConfig{Environment: envutil.String("APP_ENV", "")}),
	}

	if clients.Temporal != nil {
		acts := &threaddetect.Activities{
			Log:    log,
			DB:     a.DB,
			Config: cfg,
			Locker: locker,
			Graph:  clients.Neo4j,
		}
		if clients.Publisher != nil {
			acts.Publisher = clients.Publisher
		}
		w, err := temporalworker.NewRunner(log, clients.Temporal, acts)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Worker = w
	}
	return a, nil
}

func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, envutil.String("METRICS_ADDR", ":9464"))
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}

	if a.Worker == nil {
		return fmt.Errorf("temporal is not configured; set TEMPORAL_ADDRESS")
	}
	return a.Worker.Start(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	ctx := context.Background()
	a.Clients.Close(ctx)
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
