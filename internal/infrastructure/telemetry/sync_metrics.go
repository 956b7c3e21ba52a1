package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/betminds/linx-orders/internal/application/ordersync"
)

// SyncMetrics records importer, queue consumer and reconciler measurements
// as OpenTelemetry instruments.
type SyncMetrics struct {
	orders            *Counter
	pages             *Counter
	pageSize          *Histogram
	dequeued          *Counter
	duplicatesRemoved *Counter
	runs              *Counter
	runDuration       *Histogram
}

var _ ordersync.Metrics = (*SyncMetrics)(nil)

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	var (
		m   SyncMetrics
		err error
	)

	if m.orders, err = NewCounter(meter, "ordersync.orders", "Orders processed by outcome", "{order}"); err != nil {
		return nil, err
	}
	if m.pages, err = NewCounter(meter, "ordersync.pages", "Vendor pages fetched", "{page}"); err != nil {
		return nil, err
	}
	if m.pageSize, err = NewHistogram(meter, HistogramOpts{
		Name:        "ordersync.page.size",
		Description: "Items returned per vendor page",
		Unit:        "{item}",
		Boundaries:  PageSizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.dequeued, err = NewCounter(meter, "ordersync.queue.dequeued", "Queue items acknowledged", "{item}"); err != nil {
		return nil, err
	}
	if m.duplicatesRemoved, err = NewCounter(meter, "ordersync.duplicates.removed", "Duplicate rows deleted", "{row}"); err != nil {
		return nil, err
	}
	if m.runs, err = NewCounter(meter, "ordersync.runs", "Completed sync runs", "{run}"); err != nil {
		return nil, err
	}
	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ordersync.run.duration",
		Description: "Sync run wall time",
		Unit:        "s",
		Boundaries:  RunDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordOrder counts one order outcome.
func (m *SyncMetrics) RecordOrder(ctx context.Context, mode ordersync.Mode, outcome ordersync.Outcome) {
	m.orders.Inc(ctx, AttrMode.String(string(mode)), AttrOutcome.String(string(outcome)))
}

// RecordPage counts a fetched page and its size.
func (m *SyncMetrics) RecordPage(ctx context.Context, mode ordersync.Mode, size int) {
	attrs := AttrMode.String(string(mode))
	m.pages.Inc(ctx, attrs)
	m.pageSize.Record(ctx, float64(size), attrs)
}

// RecordDequeued counts acknowledged queue items.
func (m *SyncMetrics) RecordDequeued(ctx context.Context, n int) {
	if n > 0 {
		m.dequeued.Add(ctx, int64(n))
	}
}

// RecordDuplicatesRemoved counts deleted duplicate rows.
func (m *SyncMetrics) RecordDuplicatesRemoved(ctx context.Context, n int64) {
	if n > 0 {
		m.duplicatesRemoved.Add(ctx, n)
	}
}

// RecordRun counts a finished run and its duration.
func (m *SyncMetrics) RecordRun(ctx context.Context, mode ordersync.Mode, elapsed time.Duration, err error) {
	attrs := []attribute.KeyValue{AttrMode.String(string(mode)), AttrStatus.String(runStatus(err))}
	m.runs.Inc(ctx, attrs...)
	m.runDuration.RecordDuration(ctx, elapsed, attrs...)
}

func runStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
