package ordersync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// ReconcileOptions controls a reconciliation run.
type ReconcileOptions struct {
	// DryRun only counts the rows that would be removed.
	DryRun bool
}

// ReconcileResult reports one reconciliation run.
type ReconcileResult struct {
	RunID      string    `json:"run_id"`
	Duplicates int64     `json:"duplicates"`
	Removed    int64     `json:"removed"`
	DryRun     bool      `json:"dry_run"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Reconciler removes duplicate order rows, keeping the newest created_date
// per order_id.
type Reconciler struct {
	repo     order.Repository
	clock    Clock
	metrics  Metrics
	archiver ReportArchiver
	logger   *zap.Logger
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

func WithReconcilerMetrics(m Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

func WithReconcilerArchiver(a ReportArchiver) ReconcilerOption {
	return func(r *Reconciler) {
		r.archiver = a
	}
}

func WithReconcilerClock(c Clock) ReconcilerOption {
	return func(r *Reconciler) {
		r.clock = c
	}
}

// NewReconciler creates a Reconciler.
func NewReconciler(repo order.Repository, logger *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		repo:    repo,
		clock:   SystemClock,
		metrics: NoopMetrics,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CountDuplicates returns how many rows a reconciliation would delete.
func (r *Reconciler) CountDuplicates(ctx context.Context) (int64, error) {
	n, err := r.repo.CountDuplicates(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return n, nil
}

// Reconcile deletes every row of a duplicated order_id except the one with
// the newest created_date. Orders with a single row are never touched.
func (r *Reconciler) Reconcile(ctx context.Context, opts ReconcileOptions) (*ReconcileResult, error) {
	result := &ReconcileResult{
		RunID:     uuid.New().String(),
		DryRun:    opts.DryRun,
		StartedAt: r.clock.Now(),
	}
	log := r.logger.With(zap.String("run_id", result.RunID))

	err := r.reconcile(ctx, result, log)
	result.FinishedAt = r.clock.Now()
	r.metrics.RecordRun(ctx, ModeReconcile, result.FinishedAt.Sub(result.StartedAt), err)
	if err != nil {
		log.Error("reconciliation failed", zap.Error(err))
		return result, err
	}

	if r.archiver != nil && result.Removed > 0 {
		if aerr := r.archiver.Archive(context.WithoutCancel(ctx), ModeReconcile, result.RunID, result); aerr != nil {
			log.Warn("run report upload failed", zap.Error(aerr))
		}
	}
	return result, nil
}

func (r *Reconciler) reconcile(ctx context.Context, result *ReconcileResult, log *zap.Logger) error {
	duplicates, err := r.CountDuplicates(ctx)
	if err != nil {
		return err
	}
	result.Duplicates = duplicates

	if duplicates == 0 {
		log.Info("no duplicate orders found")
		return nil
	}
	if result.DryRun {
		log.Info("duplicate orders found (dry run)", zap.Int64("duplicates", duplicates))
		return nil
	}

	removed, err := r.repo.RemoveDuplicates(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	result.Removed = removed
	r.metrics.RecordDuplicatesRemoved(ctx, removed)

	log.Info("duplicate orders removed", zap.Int64("duplicates", duplicates), zap.Int64("removed", removed))
	return nil
}
