package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrJobNotFound is returned when a job is not found
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrUnknownJobKind is returned for a kind the scheduler has no runner for
	ErrUnknownJobKind = errors.New("unknown sync job kind")

	// ErrJobAlreadyInProgress is returned when a job of the same kind is
	// pending or running
	ErrJobAlreadyInProgress = errors.New("sync job already in progress")
)
