package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mborciuch/10x-bloom-learning-sub000/internal/data/repos"
	types "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain"
	jobstatus "github.com/mborciuch/10x-bloom-learning-sub000/internal/domain/jobs"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/jobs/runtime"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/observability"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/pkg/dbctx"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/envutil"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/platform/logger"
	"github.com/mborciuch/10x-bloom-learning-sub000/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	RetryDelay   time.Duration
	StaleRunning time.Duration
	// Heartbeat is how often a running job's heartbeat is refreshed and its
	// row checked for cancellation.
	Heartbeat time.Duration
}

func LoadConfig() Config {
	return Config{
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4),
		PollInterval: envutil.Seconds("WORKER_POLL_INTERVAL_SECONDS", time.Second),
		RetryDelay:   envutil.Seconds("WORKER_RETRY_DELAY_SECONDS", 30*time.Second),
		StaleRunning: envutil.Seconds("WORKER_STALE_RUNNING_SECONDS", 30*time.Minute),
		Heartbeat:    envutil.Seconds("WORKER_HEARTBEAT_SECONDS", 5*time.Second),
	}
}

func (c Config) normalized() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 5 * time.Second
	}
	return c
}

type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	cfg      Config
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		cfg:      cfg.normalized(),
	}
}

// Run polls until ctx is done and waits for in-flight jobs to return.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runLoop(ctx, workerID)
		}(i + 1)
	}
	wg.Wait()
	return nil
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain the queue before waiting for the next tick.
			for ctx.Err() == nil && w.RunOnce(ctx) {
			}
		}
	}
}

// RunOnce claims and runs at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx, Tx: w.db}, jobstatus.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "error", err)
		return false
	}
	if job == nil {
		return false
	}
	w.execute(ctx, job)
	return true
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := w.watch(runCtx, cancel, job.ID)
	defer stop()

	start := time.Now()
	jc := runtime.NewContext(runCtx, w.db, job, w.repo, w.notify)
	if err := w.registry.Run(jc); err != nil {
		w.log.Warn("Job run failed", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "error", err)
	}
	status := jc.Job.Status
	if runCtx.Err() != nil && ctx.Err() == nil {
		status = jobstatus.StatusCanceled
	}
	observability.Current().ObserveJob(job.JobType, status, time.Since(start))
}

// watch refreshes the heartbeat and cancels the run when the row is
// canceled from outside.
func (w *Worker) watch(ctx context.Context, cancel context.CancelFunc, jobID uuid.UUID) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(w.cfg.Heartbeat)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				dbc := dbctx.Context{Ctx: ctx, Tx: w.db}
				if err := w.repo.Heartbeat(dbc, jobID); err != nil {
					w.log.Warn("Job heartbeat failed", "job_id", jobID, "error", err)
				}
				rows, err := w.repo.GetByIDs(dbc, []uuid.UUID{jobID})
				if err == nil && len(rows) > 0 && rows[0].Status == jobstatus.StatusCanceled {
					w.log.Info("Job canceled while running", "job_id", jobID)
					cancel()
					return
				}
			}
		}
	}()
	return func() { close(done) }
}
