package ordersync

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/domain/order"
)

const (
	DefaultQueueID       = 31
	DefaultQueuePageSize = 10
	DefaultPollInterval  = 30 * time.Second
)

// QueueConfig holds queue consumption settings.
type QueueConfig struct {
	QueueID  int
	PageSize int
	// SkipExisting acknowledges queue items whose order_id is already in the
	// sink without writing them again.
	SkipExisting bool
}

// DrainResult reports one consumer cycle.
type DrainResult struct {
	RunID       string    `json:"run_id"`
	Polls       int       `json:"polls"`
	Fetched     int       `json:"fetched"`
	Written     int       `json:"written"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Dequeued    int       `json:"dequeued"`
	DequeuedIDs []int64   `json:"dequeued_ids"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Error       string    `json:"error,omitempty"`
}

// QueueConsumer drains the LINX integration queue into the sink.
//
// Items are locked by the search call and acknowledged only after their row
// was written. A failed write leaves the item locked until LINX releases it;
// there is no unlock call.
type QueueConsumer struct {
	source     order.Source
	repo       order.Repository
	guard      *DedupGuard
	normalizer *order.Normalizer
	clock      Clock
	metrics    Metrics
	archiver   ReportArchiver
	cfg        QueueConfig
	logger     *zap.Logger

	tableReady atomic.Bool
}

// QueueConsumerOption configures a QueueConsumer.
type QueueConsumerOption func(*QueueConsumer)

// WithQueueClock replaces the clock used while waiting for items.
func WithQueueClock(c Clock) QueueConsumerOption {
	return func(q *QueueConsumer) {
		q.clock = c
	}
}

// WithQueueMetrics sets the metrics sink.
func WithQueueMetrics(m Metrics) QueueConsumerOption {
	return func(q *QueueConsumer) {
		q.metrics = m
	}
}

// WithQueueArchiver uploads the result of every non-empty cycle.
func WithQueueArchiver(a ReportArchiver) QueueConsumerOption {
	return func(q *QueueConsumer) {
		q.archiver = a
	}
}

// NewQueueConsumer creates a consumer. normalizer should be lenient; guard
// is only consulted when cfg.SkipExisting is set.
func NewQueueConsumer(
	source order.Source,
	repo order.Repository,
	guard *DedupGuard,
	normalizer *order.Normalizer,
	cfg QueueConfig,
	logger *zap.Logger,
	opts ...QueueConsumerOption,
) *QueueConsumer {
	if cfg.QueueID <= 0 {
		cfg.QueueID = DefaultQueueID
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultQueuePageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &QueueConsumer{
		source:     source,
		repo:       repo,
		guard:      guard,
		normalizer: normalizer,
		clock:      SystemClock,
		metrics:    NoopMetrics,
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Drain runs a single cycle: lock a batch, write each order, acknowledge
// the written ones. An empty queue is not an error.
func (q *QueueConsumer) Drain(ctx context.Context) (*DrainResult, error) {
	result, log := q.newResult()

	items, err := q.poll(ctx, result, log)
	if err == nil && len(items) == 0 {
		log.Info("queue is empty", zap.Int("queue_id", q.cfg.QueueID))
	}
	if err == nil {
		err = q.process(ctx, items, result, log)
	}
	return q.finish(ctx, result, err, log)
}

// WaitAndDrain polls until the queue returns a non-empty batch, sleeping
// pollInterval between empty polls, then processes that batch and returns.
// Callers wanting continuous consumption call it again.
func (q *QueueConsumer) WaitAndDrain(ctx context.Context, pollInterval time.Duration) (*DrainResult, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	result, log := q.newResult()

	for {
		items, err := q.poll(ctx, result, log)
		if err != nil {
			return q.finish(ctx, result, err, log)
		}
		if len(items) > 0 {
			return q.finish(ctx, result, q.process(ctx, items, result, log), log)
		}

		log.Debug("queue is empty, waiting", zap.Duration("poll_interval", pollInterval))
		if err := q.clock.Sleep(ctx, pollInterval); err != nil {
			return q.finish(ctx, result, err, log)
		}
	}
}

func (q *QueueConsumer) newResult() (*DrainResult, *zap.Logger) {
	result := &DrainResult{
		RunID:       uuid.New().String(),
		DequeuedIDs: []int64{},
		StartedAt:   q.clock.Now(),
	}
	return result, q.logger.With(zap.String("run_id", result.RunID), zap.Int("queue_id", q.cfg.QueueID))
}

func (q *QueueConsumer) finish(ctx context.Context, result *DrainResult, err error, log *zap.Logger) (*DrainResult, error) {
	result.FinishedAt = q.clock.Now()
	if err != nil {
		result.Error = err.Error()
		log.Error("queue cycle failed", zap.Error(err))
	}
	q.metrics.RecordRun(ctx, ModeQueue, result.FinishedAt.Sub(result.StartedAt), err)

	if result.Fetched > 0 {
		log.Info("queue cycle finished",
			zap.Int("fetched", result.Fetched),
			zap.Int("written", result.Written),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
			zap.Int("dequeued", result.Dequeued),
		)
		if q.archiver != nil {
			if aerr := q.archiver.Archive(context.WithoutCancel(ctx), ModeQueue, result.RunID, result); aerr != nil {
				log.Warn("run report upload failed", zap.Error(aerr))
			}
		}
	}
	return result, err
}

func (q *QueueConsumer) poll(ctx context.Context, result *DrainResult, log *zap.Logger) ([]order.QueueItem, error) {
	if err := q.ensureTable(ctx); err != nil {
		return nil, err
	}

	result.Polls++
	items, err := q.source.SearchQueueItems(ctx, q.cfg.QueueID, q.cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueueFetchFailed, err)
	}
	result.Fetched = len(items)
	if len(items) > 0 {
		q.metrics.RecordPage(ctx, ModeQueue, len(items))
		log.Info("locked queue items", zap.Int("items", len(items)))
	}
	return items, nil
}

func (q *QueueConsumer) ensureTable(ctx context.Context) error {
	if q.tableReady.Load() {
		return nil
	}
	if err := q.repo.EnsureTable(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	q.tableReady.Store(true)
	return nil
}

func (q *QueueConsumer) process(ctx context.Context, items []order.QueueItem, result *DrainResult, log *zap.Logger) error {
	acked := make([]int64, 0, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			// Written items still get acknowledged below.
			break
		}

		outcome, ack := q.processItem(ctx, item, log.With(
			zap.Int64("queue_item_id", item.QueueItemID),
			zap.String("order_number", item.EntityKeyValue),
		))
		switch outcome {
		case OutcomeImported:
			result.Written++
		case OutcomeSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		q.metrics.RecordOrder(ctx, ModeQueue, outcome)
		if ack {
			acked = append(acked, item.QueueItemID)
		}
	}

	if len(acked) == 0 {
		return ctx.Err()
	}
	if err := q.source.DequeueQueueItems(context.WithoutCancel(ctx), acked); err != nil {
		return fmt.Errorf("%w: %w", ErrDequeueFailed, err)
	}
	result.Dequeued = len(acked)
	result.DequeuedIDs = acked
	q.metrics.RecordDequeued(ctx, len(acked))
	return ctx.Err()
}

// processItem returns the item outcome and whether it may be acknowledged.
func (q *QueueConsumer) processItem(ctx context.Context, item order.QueueItem, log *zap.Logger) (Outcome, bool) {
	if item.EntityKeyValue == "" {
		log.Warn("queue item without order number, skipping")
		return OutcomeSkipped, false
	}

	raw, err := q.source.GetOrderByNumber(ctx, item.EntityKeyValue)
	if err != nil {
		log.Error("order detail fetch failed", zap.Error(err))
		return OutcomeFailed, false
	}

	normalized, err := q.normalizer.Normalize(raw)
	if err != nil {
		log.Error("order normalization failed", zap.Error(err))
		return OutcomeFailed, false
	}

	if q.cfg.SkipExisting && q.guard != nil && q.guard.Exists(ctx, normalized.OrderID, false) {
		log.Info("order already in sink, acknowledging without write", zap.String("order_id", normalized.OrderID))
		return OutcomeSkipped, true
	}

	if err := q.repo.Insert(ctx, []*order.NormalizedOrder{normalized}); err != nil {
		log.Error("order write failed, item stays locked", zap.Error(err))
		return OutcomeFailed, false
	}
	if q.guard != nil {
		q.guard.Remember(ctx, normalized)
	}

	log.Info("order written", zap.String("order_id", normalized.OrderID))
	return OutcomeImported, true
}
