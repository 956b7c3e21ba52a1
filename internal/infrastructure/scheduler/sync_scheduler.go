package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/application/ordersync"
	"github.com/betminds/linx-orders/internal/infrastructure/logger"
	"github.com/betminds/linx-orders/internal/infrastructure/telemetry"
)

// ImportRunner runs one cursor-paginated import.
type ImportRunner interface {
	Run(ctx context.Context, opts ordersync.RunOptions) (*ordersync.ImportSummary, error)
}

// QueueDrainer runs one queue consumer cycle.
type QueueDrainer interface {
	Drain(ctx context.Context) (*ordersync.DrainResult, error)
}

// DuplicateReconciler removes duplicate sink rows.
type DuplicateReconciler interface {
	Reconcile(ctx context.Context, opts ordersync.ReconcileOptions) (*ordersync.ReconcileResult, error)
}

// Runners are the operations the scheduler can execute. A nil runner makes
// its job kinds unavailable.
type Runners struct {
	Importer   ImportRunner
	Queue      QueueDrainer
	Reconciler DuplicateReconciler
}

// Config holds configuration for the sync scheduler
type Config struct {
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// HistorySize bounds the completed jobs kept in memory
	HistorySize int
	// QueueSize is the number of pending jobs accepted before ErrJobQueueFull
	QueueSize int
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		JobTimeout:  30 * time.Minute,
		HistorySize: 50,
		QueueSize:   16,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JobTimeout <= 0 || c.HistorySize <= 0 || c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// SyncScheduler runs sync jobs one at a time on a single worker.
type SyncScheduler struct {
	config  Config
	runners Runners
	logger  *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	// active holds the pending or running job per exclusion group
	active map[JobKind]*Job

	historyMu sync.RWMutex
	history   []*Job
}

// NewSyncScheduler creates a new sync scheduler
func NewSyncScheduler(config Config, runners Runners, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SyncScheduler{
		config:  config,
		runners: runners,
		logger:  logger,
		active:  make(map[JobKind]*Job),
		history: make([]*Job, 0, config.HistorySize),
	}, nil
}

// Start starts the worker
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.jobs = make(chan *Job, s.config.QueueSize)
	jobs := s.jobs
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.worker(ctx, jobs)

	s.logger.Info("Sync scheduler started",
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.Int("history_size", s.config.HistorySize),
	)
	return nil
}

// Stop cancels the running job and waits for the worker. Jobs still
// pending are marked FAILED.
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	jobs := s.jobs
	close(jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}

	for job := range jobs {
		s.finish(job, func(j *Job) { j.Fail("scheduler stopped") })
	}
	s.logger.Info("Sync scheduler stopped gracefully")
	return nil
}

// IsRunning reports whether the worker accepts jobs.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob queues a job. It is rejected while another job of the same
// kind is pending or running.
func (s *SyncScheduler) SubmitJob(req JobRequest) (*Job, error) {
	if err := s.checkRunner(req.Kind); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil, ErrSchedulerNotRunning
	}
	group := req.Kind.exclusionGroup()
	if current, ok := s.active[group]; ok {
		return current.snapshot(), fmt.Errorf("%w: %s job %s", ErrJobAlreadyInProgress, current.Kind, current.ID)
	}

	job := NewJob(req)
	select {
	case s.jobs <- job:
	default:
		return nil, ErrJobQueueFull
	}
	s.active[group] = job

	s.logger.Debug("Sync job submitted",
		zap.String("job_id", job.ID.String()),
		zap.String("job_kind", string(job.Kind)),
		zap.String("trigger", string(job.Trigger)),
	)
	return job.snapshot(), nil
}

// RunJob submits a job and waits for it to finish. A cancelled ctx stops
// the wait, not the job.
func (s *SyncScheduler) RunJob(ctx context.Context, req JobRequest) (*Job, error) {
	job, err := s.SubmitJob(req)
	if err != nil {
		return job, err
	}

	select {
	case <-job.Done():
		return s.GetJob(job.ID)
	case <-ctx.Done():
		return job, ctx.Err()
	}
}

func (s *SyncScheduler) checkRunner(kind JobKind) error {
	var ok bool
	switch kind {
	case JobKindImport, JobKindImportTest:
		ok = s.runners.Importer != nil
	case JobKindQueueDrain:
		ok = s.runners.Queue != nil
	case JobKindReconcile:
		ok = s.runners.Reconciler != nil
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownJobKind, kind)
	}
	return nil
}

func (s *SyncScheduler) worker(ctx context.Context, jobs <-chan *Job) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job)
		}
	}
}

// jobResult carries what a run produced back to the job under lock.
type jobResult struct {
	imp       *ordersync.ImportSummary
	drain     *ordersync.DrainResult
	reconcile *ordersync.ReconcileResult
	written   int
	failed    int
}

func (s *SyncScheduler) processJob(ctx context.Context, job *Job) {
	s.mu.Lock()
	job.Start()
	s.mu.Unlock()

	log := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("job_kind", string(job.Kind)),
		zap.String("trigger", string(job.Trigger)),
	)
	if job.RequestID != "" {
		log = log.With(zap.String("request_id", job.RequestID))
	}
	log.Info("Sync job started")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	jobCtx = logger.WithContext(jobCtx, log)

	jobCtx, span := telemetry.StartSpan(jobCtx, "scheduler."+string(job.Kind),
		telemetry.AttrJobKind.String(string(job.Kind)),
		attribute.String("sync.job_id", job.ID.String()),
		attribute.String("sync.trigger", string(job.Trigger)),
	)

	var (
		res jobResult
		err error
	)
	telemetry.WithProfilingLabels(jobCtx, map[string]string{"job_kind": string(job.Kind)}, func(ctx context.Context) {
		res, err = s.execute(ctx, job)
	})
	telemetry.EndSpan(span, err)

	s.finish(job, func(j *Job) {
		j.Import, j.Drain, j.Reconcile = res.imp, res.drain, res.reconcile
		j.Complete(res.written, res.failed, err)
	})

	fields := []zap.Field{
		zap.String("status", string(job.Status)),
		zap.Int("written", res.written),
		zap.Int("failed", res.failed),
	}
	if err != nil {
		log.Error("Sync job failed", append(fields, zap.Error(err))...)
		return
	}
	log.Info("Sync job completed", fields...)
}

func (s *SyncScheduler) execute(ctx context.Context, job *Job) (res jobResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync job panicked: %v", r)
		}
	}()

	switch job.Kind {
	case JobKindImport, JobKindImportTest:
		res.imp, err = s.runners.Importer.Run(ctx, ordersync.RunOptions{MaxOrders: job.MaxOrders})
		if res.imp != nil {
			res.written, res.failed = res.imp.Imported, res.imp.Failed
		}
	case JobKindQueueDrain:
		res.drain, err = s.runners.Queue.Drain(ctx)
		if res.drain != nil {
			res.written, res.failed = res.drain.Written, res.drain.Failed
		}
	case JobKindReconcile:
		res.reconcile, err = s.runners.Reconciler.Reconcile(ctx, ordersync.ReconcileOptions{DryRun: job.DryRun})
		if res.reconcile != nil {
			res.written = int(res.reconcile.Removed)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownJobKind, job.Kind)
	}
	return res, err
}

// finish applies the terminal transition, releases the kind and records
// the job in history.
func (s *SyncScheduler) finish(job *Job, apply func(*Job)) {
	s.mu.Lock()
	apply(job)
	group := job.Kind.exclusionGroup()
	if s.active[group] == job {
		delete(s.active, group)
	}
	snap := job.snapshot()
	s.mu.Unlock()

	s.addToHistory(snap)
	close(job.done)
}

// addToHistory adds a completed job to history
func (s *SyncScheduler) addToHistory(job *Job) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*Job{job}, s.history...)
	if len(s.history) > s.config.HistorySize {
		s.history = s.history[:s.config.HistorySize]
	}
}

// GetJobHistory returns recent completed jobs, newest first
func (s *SyncScheduler) GetJobHistory(limit int) []*Job {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*Job, limit)
	copy(result, s.history[:limit])
	return result
}

// ActiveJobs returns the pending and running jobs.
func (s *SyncScheduler) ActiveJobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*Job, 0, len(s.active))
	for _, job := range s.active {
		result = append(result, job.snapshot())
	}
	return result
}

// GetJob looks a job up among active jobs and history.
func (s *SyncScheduler) GetJob(id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	for _, job := range s.active {
		if job.ID == id {
			snap := job.snapshot()
			s.mu.Unlock()
			return snap, nil
		}
	}
	s.mu.Unlock()

	s.historyMu.RLock()
	defer s.historyMu.RUnlock()
	for _, job := range s.history {
		if job.ID == id {
			return job, nil
		}
	}
	return nil, ErrJobNotFound
}
