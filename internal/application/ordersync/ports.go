package ordersync

import (
	"context"
	"time"
)

// Mode identifies which sync path produced a measurement or report.
type Mode string

const (
	ModeImport    Mode = "import"
	ModeQueue     Mode = "queue"
	ModeReconcile Mode = "reconcile"
)

// Outcome is the fate of a single order within a run.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// KnownOrderCache remembers orders already present in the sink. Only
// positive answers are cached.
type KnownOrderCache interface {
	Contains(ctx context.Context, key string) (bool, error)
	Add(ctx context.Context, key string) error
}

// Metrics receives sync measurements.
type Metrics interface {
	RecordOrder(ctx context.Context, mode Mode, outcome Outcome)
	RecordPage(ctx context.Context, mode Mode, size int)
	RecordDequeued(ctx context.Context, n int)
	RecordDuplicatesRemoved(ctx context.Context, n int64)
	RecordRun(ctx context.Context, mode Mode, elapsed time.Duration, err error)
}

// ReportArchiver stores the summary of a finished run.
type ReportArchiver interface {
	Archive(ctx context.Context, mode Mode, runID string, report any) error
}

type noopMetrics struct{}

func (noopMetrics) RecordOrder(context.Context, Mode, Outcome) {}
func (noopMetrics) RecordPage(context.Context, Mode, int) {}
func (noopMetrics) RecordDequeued(context.Context, int) {}
func (noopMetrics) RecordDuplicatesRemoved(context.Context, int64) {}
func (noopMetrics) RecordRun(context.Context, Mode, time.Duration, error) {}

// NoopMetrics discards every measurement.
var NoopMetrics Metrics = noopMetrics{}
