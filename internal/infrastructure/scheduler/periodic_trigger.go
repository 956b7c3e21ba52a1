package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JobSubmitter accepts sync jobs.
type JobSubmitter interface {
	SubmitJob(req JobRequest) (*Job, error)
}

// PeriodicTriggerConfig holds configuration for the periodic trigger
type PeriodicTriggerConfig struct {
	// QueueInterval is the pause between queue drains; zero disables them
	QueueInterval time.Duration
	// ImportInterval is the pause between catch-up imports; zero disables them
	ImportInterval time.Duration
	// MaxOrders bounds each periodic import. Zero means unlimited.
	MaxOrders int
}

// Enabled reports whether any job kind is scheduled.
func (c PeriodicTriggerConfig) Enabled() bool {
	return c.QueueInterval > 0 || c.ImportInterval > 0
}

// PeriodicTrigger submits queue drains and imports on fixed intervals.
// A tick that finds the same kind still in progress is skipped.
type PeriodicTrigger struct {
	config    PeriodicTriggerConfig
	submitter JobSubmitter
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPeriodicTrigger creates a new periodic trigger
func NewPeriodicTrigger(config PeriodicTriggerConfig, submitter JobSubmitter, logger *zap.Logger) *PeriodicTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodicTrigger{
		config:    config,
		submitter: submitter,
		logger:    logger,
	}
}

// Start starts the trigger loop. It is a no-op when nothing is scheduled.
func (p *PeriodicTrigger) Start(ctx context.Context) error {
	if !p.config.Enabled() {
		return nil
	}

	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.runLoop(ctx)

	p.logger.Info("Periodic sync trigger started",
		zap.Duration("queue_interval", p.config.QueueInterval),
		zap.Duration("import_interval", p.config.ImportInterval),
	)
	return nil
}

// Stop stops the trigger loop
func (p *PeriodicTrigger) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Periodic sync trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *PeriodicTrigger) runLoop(ctx context.Context) {
	defer p.wg.Done()

	queueTick, stopQueue := newTicker(p.config.QueueInterval)
	defer stopQueue()
	importTick, stopImport := newTicker(p.config.ImportInterval)
	defer stopImport()

	for {
		select {
		case <-ctx.Done():
			return
		case <-queueTick:
			p.trigger(JobRequest{Kind: JobKindQueueDrain, Trigger: TriggerPeriodic})
		case <-importTick:
			p.trigger(JobRequest{Kind: JobKindImport, Trigger: TriggerPeriodic, MaxOrders: p.config.MaxOrders})
		}
	}
}

// newTicker returns a nil channel for a non-positive interval, which never
// fires in a select.
func newTicker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func (p *PeriodicTrigger) trigger(req JobRequest) {
	job, err := p.submitter.SubmitJob(req)
	switch {
	case errors.Is(err, ErrJobAlreadyInProgress):
		p.logger.Debug("Skipping periodic job, previous run still active",
			zap.String("job_kind", string(req.Kind)),
		)
	case err != nil:
		p.logger.Warn("Failed to submit periodic job",
			zap.String("job_kind", string(req.Kind)),
			zap.Error(err),
		)
	default:
		p.logger.Debug("Periodic job submitted",
			zap.String("job_kind", string(req.Kind)),
			zap.String("job_id", job.ID.String()),
		)
	}
}
