package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/db"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/seed"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	apphttp "github.com/mborciuch/10x-bloom-learning-sub000/internal/http"
	jobrt "github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/worker"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Registry *jobrt.Registry
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// New loads configuration, opens Postgres and wires every layer. Callers
// must Close the returned App.
func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients)
	registry, err := wireJobRegistry(log, serviceset)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	handlerset := wireHandlers(theDB, log, serviceset, clients)
	middleware := wireMiddleware(log, cfg, clients)
	router := wireRouter(log, cfg, metrics, handlerset, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Registry:     registry,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Migrate creates or updates every table.
func (a *App) Migrate() error {
	a.Log.Info("Running auto-migrations...")
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("postgres automigrate: %w", err)
	}
	return nil
}

// Seed upserts the bundled exercise templates.
func (a *App) Seed(ctx context.Context) (int, error) {
	n, err := seed.ExerciseTemplates(dbctx.Context{Ctx: ctx}, a.Log, a.Repos.ExerciseTemplate)
	if err != nil {
		return 0, fmt.Errorf("seed exercise templates: %w", err)
	}
	return n, nil
}

func (a *App) prepare(ctx context.Context) error {
	if a.Cfg.AutoMigrate {
		if err := a.Migrate(); err != nil {
			return err
		}
	}
	if a.Cfg.SeedTemplates {
		n, err := a.Seed(ctx)
		if err != nil {
			return err
		}
		a.Log.Info("Exercise templates seeded", "count", n)
	}
	return nil
}

func (a *App) startCollectors(ctx context.Context) {
	if a.Metrics == nil {
		return
	}
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB, "job_run", jobstatus.Statuses)
}

// RunServer serves HTTP until ctx is done. With EmbeddedWorker set the job
// runner shares the process.
func (a *App) RunServer(ctx context.Context) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	a.startCollectors(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		srv := &apphttp.Server{Engine: a.Router}
		return srv.Run(gctx, a.Cfg.HTTPAddr)
	})
	if a.Cfg.EmbeddedWorker {
		g.Go(func() error { return a.runJobs(gctx) })
	}
	return g.Wait()
}

// RunWorker runs only the job runner, exposing metrics on METRICS_ADDR.
func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := a.prepare(ctx); err != nil {
		return err
	}
	a.startCollectors(ctx)
	a.Metrics.StartServer(ctx, a.Log, envutil.String("METRICS_ADDR", ":9090"))
	return a.runJobs(ctx)
}

func (a *App) runJobs(ctx context.Context) error {
	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(
			a.Log,
			a.Cfg.Temporal,
			a.Clients.Temporal,
			a.DB,
			a.Repos.JobRun,
			a.Registry,
			a.Services.JobNotifier,
			a.Cfg.Worker.RetryDelay,
		)
		if err != nil {
			return fmt.Errorf("init temporal worker: %w", err)
		}
		return runner.Run(ctx)
	}
	w := worker.NewWorker(a.DB, a.Log, a.Repos.JobRun, a.Registry, a.Services.JobNotifier, a.Cfg.Worker)
	return w.Run(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.pg != nil {
		_ = a.pg.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
