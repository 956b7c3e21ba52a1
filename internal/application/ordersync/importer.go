package ordersync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/domain/order"
)

const (
	DefaultPageSize  = 100
	DefaultPagePause = time.Second
)

// ImporterConfig holds bulk import settings.
type ImporterConfig struct {
	PageSize  int
	PagePause time.Duration
}

// RunOptions bounds one import run. MaxOrders <= 0 means unlimited.
type RunOptions struct {
	MaxOrders int
}

// ImportSummary reports one import run. It is returned even when the run
// stops early.
type ImportSummary struct {
	RunID      string    `json:"run_id"`
	Processed  int       `json:"processed"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Pages      int       `json:"pages"`
	Cursor     string    `json:"cursor,omitempty"`
	MaxOrders  int       `json:"max_orders,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Aborted    bool      `json:"aborted"`
	Error      string    `json:"error,omitempty"`
}

// Importer runs cursor-paginated catch-up imports.
type Importer struct {
	source     order.Source
	repo       order.Repository
	guard      *DedupGuard
	normalizer *order.Normalizer
	clock      Clock
	metrics    Metrics
	archiver   ReportArchiver
	cfg        ImporterConfig
	logger     *zap.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImporterClock replaces the clock used for the pause between pages.
func WithImporterClock(c Clock) ImporterOption {
	return func(i *Importer) {
		i.clock = c
	}
}

// WithImporterMetrics sets the metrics sink.
func WithImporterMetrics(m Metrics) ImporterOption {
	return func(i *Importer) {
		i.metrics = m
	}
}

// WithImporterArchiver uploads each run summary.
func WithImporterArchiver(a ReportArchiver) ImporterOption {
	return func(i *Importer) {
		i.archiver = a
	}
}

// NewImporter creates an Importer. normalizer should be strict.
func NewImporter(
	source order.Source,
	repo order.Repository,
	guard *DedupGuard,
	normalizer *order.Normalizer,
	cfg ImporterConfig,
	logger *zap.Logger,
	opts ...ImporterOption,
) *Importer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PagePause < 0 {
		cfg.PagePause = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Importer{
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
		opt(i)
	}
	return i
}

// Run imports every order created after the newest row in the sink.
//
// Per-order failures are counted and skipped. A page fetch failure or a
// cancelled context ends the run; the summary so far is returned together
// with the error.
func (i *Importer) Run(ctx context.Context, opts RunOptions) (*ImportSummary, error) {
	summary := &ImportSummary{
		RunID:     uuid.New().String(),
		MaxOrders: opts.MaxOrders,
		StartedAt: i.clock.Now(),
	}
	log := i.logger.With(zap.String("run_id", summary.RunID))

	err := i.run(ctx, opts, summary, log)

	summary.FinishedAt = i.clock.Now()
	if err != nil {
		summary.Aborted = true
		summary.Error = err.Error()
	}
	i.metrics.RecordRun(ctx, ModeImport, summary.FinishedAt.Sub(summary.StartedAt), err)

	log.Info("import finished",
		zap.Int("processed", summary.Processed),
		zap.Int("imported", summary.Imported),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("pages", summary.Pages),
		zap.Bool("aborted", summary.Aborted),
	)
	i.archive(ctx, summary, log)
	return summary, err
}

func (i *Importer) run(ctx context.Context, opts RunOptions, summary *ImportSummary, log *zap.Logger) error {
	if err := i.repo.EnsureTable(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}

	cursor, err := i.readCursor(ctx)
	if err != nil {
		return err
	}
	summary.Cursor = cursor
	if cursor == "" {
		log.Info("sink is empty, importing all orders")
	} else {
		log.Info("resuming import after cursor", zap.String("cursor", cursor))
	}

	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := i.source.SearchOrders(ctx, order.SearchOrdersRequest{
			PageIndex:    page,
			PageSize:     i.cfg.PageSize,
			CreatedAfter: cursor,
		})
		if err != nil {
			log.Error("order page fetch failed", zap.Int("page_index", page), zap.Error(err))
			return fmt.Errorf("%w: page %d: %w", ErrPageFetchFailed, page, err)
		}
		if len(entries) == 0 {
			log.Info("no more orders", zap.Int("page_index", page))
			return nil
		}

		summary.Pages++
		i.metrics.RecordPage(ctx, ModeImport, len(entries))
		log.Info("processing order page", zap.Int("page_index", page), zap.Int("orders", len(entries)))

		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary.Processed++

			outcome := i.importOrder(ctx, entry, log.With(zap.Int("page_index", page)))
			switch outcome {
			case OutcomeImported:
				summary.Imported++
			case OutcomeSkipped:
				summary.Skipped++
			default:
				summary.Failed++
			}
			i.metrics.RecordOrder(ctx, ModeImport, outcome)

			if opts.MaxOrders > 0 && summary.Imported >= opts.MaxOrders {
				log.Info("max orders reached", zap.Int("max_orders", opts.MaxOrders))
				return nil
			}
		}

		if err := i.clock.Sleep(ctx, i.cfg.PagePause); err != nil {
			return err
		}
	}
}

// readCursor returns the vendor encoded newest created_date, "" when the
// sink has no rows.
func (i *Importer) readCursor(ctx context.Context) (string, error) {
	last, err := i.repo.MaxCreatedDate(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCursorUnavailable, err)
	}
	if last == nil {
		return "", nil
	}
	return order.FormatVendorDate(*last), nil
}

func (i *Importer) importOrder(ctx context.Context, entry order.RawOrder, log *zap.Logger) Outcome {
	orderID := entry.String("OrderID")
	orderNumber := entry.String("OrderNumber")
	log = log.With(zap.String("order_id", orderID), zap.String("order_number", orderNumber))

	if orderID == "" {
		log.Warn("order without OrderID, skipping")
		return OutcomeFailed
	}

	if i.guard.Exists(ctx, orderID, false) {
		log.Debug("order already imported")
		return OutcomeSkipped
	}
	if i.guard.Exists(ctx, orderNumber, true) {
		log.Debug("order number already imported")
		return OutcomeSkipped
	}

	raw, err := i.source.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		log.Error("order detail fetch failed", zap.Error(err))
		return OutcomeFailed
	}

	normalized, err := i.normalizer.Normalize(raw)
	if err != nil {
		var verr *order.ValidationError
		if errors.As(err, &verr) {
			log.Error("order rejected", zap.Strings("missing_fields", verr.Fields))
		} else {
			log.Error("order normalization failed", zap.Error(err))
		}
		return OutcomeFailed
	}

	if err := i.repo.Insert(ctx, []*order.NormalizedOrder{normalized}); err != nil {
		log.Error("order insert failed", zap.Error(err))
		return OutcomeFailed
	}
	i.guard.Remember(ctx, normalized)

	log.Info("order imported")
	return OutcomeImported
}

func (i *Importer) archive(ctx context.Context, summary *ImportSummary, log *zap.Logger) {
	if i.archiver == nil {
		return
	}
	if err := i.archiver.Archive(context.WithoutCancel(ctx), ModeImport, summary.RunID, summary); err != nil {
		log.Warn("run report upload failed", zap.Error(err))
	}
}
