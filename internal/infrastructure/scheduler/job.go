package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/betminds/linx-orders/internal/application/ordersync"
)

// JobKind names the sync operation a job runs.
type JobKind string

const (
	JobKindImport     JobKind = "import"
	JobKindImportTest JobKind = "import_test"
	JobKindQueueDrain JobKind = "queue_drain"
	JobKindReconcile  JobKind = "reconcile"
)

// Valid reports whether k is a known kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindImport, JobKindImportTest, JobKindQueueDrain, JobKindReconcile:
		return true
	}
	return false
}

// exclusionGroup returns the key used for in-progress rejection. Both
// import kinds advance the same cursor, so they share one slot.
func (k JobKind) exclusionGroup() JobKind {
	if k == JobKindImportTest {
		return JobKindImport
	}
	return k
}

// JobStatus represents the status of a sync job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusFailed  JobStatus = "FAILED"
)

// Terminal reports whether the job has finished.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusPartial || s == JobStatusFailed
}

// Trigger records who submitted a job.
type Trigger string

const (
	TriggerHTTP     Trigger = "http"
	TriggerPeriodic Trigger = "periodic"
	TriggerCLI      Trigger = "cli"
)

// JobRequest describes a job to submit.
type JobRequest struct {
	Kind      JobKind
	Trigger   Trigger
	RequestID string
	// MaxOrders bounds import and import_test runs. Zero means unlimited.
	MaxOrders int
	// DryRun applies to reconcile jobs only.
	DryRun bool
}

// Job represents a submitted sync job
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Kind        JobKind    `json:"kind"`
	Trigger     Trigger    `json:"trigger"`
	RequestID   string     `json:"request_id,omitempty"`
	Status      JobStatus  `json:"status"`
	MaxOrders   int        `json:"max_orders,omitempty"`
	DryRun      bool       `json:"dry_run,omitempty"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Exactly one of these is set once the job ran.
	Import    *ordersync.ImportSummary   `json:"import,omitempty"`
	Drain     *ordersync.DrainResult     `json:"drain,omitempty"`
	Reconcile *ordersync.ReconcileResult `json:"reconcile,omitempty"`

	done chan struct{}
}

// NewJob creates a pending job from req.
func NewJob(req JobRequest) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        req.Kind,
		Trigger:     req.Trigger,
		RequestID:   req.RequestID,
		Status:      JobStatusPending,
		MaxOrders:   req.MaxOrders,
		DryRun:      req.DryRun,
		SubmittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Done is closed once the job reaches a terminal status.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the outcome. A run that returned an error but wrote
// rows first is PARTIAL, as is a clean run with per-order failures.
func (j *Job) Complete(written, failed int, err error) {
	now := time.Now()
	j.CompletedAt = &now

	switch {
	case err != nil && written > 0:
		j.Status = JobStatusPartial
		j.Error = err.Error()
	case err != nil:
		j.Status = JobStatusFailed
		j.Error = err.Error()
	case failed > 0:
		j.Status = JobStatusPartial
	default:
		j.Status = JobStatusSuccess
	}
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

func (j *Job) snapshot() *Job {
	c := *j
	return &c
}
