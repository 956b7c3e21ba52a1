package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSubmitter struct {
	mu       sync.Mutex
	requests []JobRequest
	err      error
}

func (r *recordingSubmitter) SubmitJob(req JobRequest) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	return NewJob(req), nil
}

func (r *recordingSubmitter) count(kind JobKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, req := range r.requests {
		if req.Kind == kind {
			n++
		}
	}
	return n
}

func TestPeriodicTrigger_SubmitsEnabledKinds(t *testing.T) {
	submitter := &recordingSubmitter{}
	trigger := NewPeriodicTrigger(PeriodicTriggerConfig{QueueInterval: 5 * time.Millisecond}, submitter, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return submitter.count(JobKindQueueDrain) >= 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	assert.Zero(t, submitter.count(JobKindImport))
	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	assert.Equal(t, TriggerPeriodic, submitter.requests[0].Trigger)
}

func TestPeriodicTrigger_ImportCarriesMaxOrders(t *testing.T) {
	submitter := &recordingSubmitter{}
	trigger := NewPeriodicTrigger(PeriodicTriggerConfig{ImportInterval: 5 * time.Millisecond, MaxOrders: 500}, submitter, nil)

	require.NoError(t, trigger.Start(context.Background()))
	defer trigger.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return submitter.count(JobKindImport) >= 1
	}, time.Second, 5*time.Millisecond)

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	assert.Equal(t, 500, submitter.requests[0].MaxOrders)
}

func TestPeriodicTrigger_KeepsTickingWhenBusy(t *testing.T) {
	submitter := &recordingSubmitter{err: ErrJobAlreadyInProgress}
	trigger := NewPeriodicTrigger(PeriodicTriggerConfig{QueueInterval: 5 * time.Millisecond}, submitter, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	defer trigger.Stop(context.Background())

	assert.Eventually(t, func() bool {
		return submitter.count(JobKindQueueDrain) >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestPeriodicTrigger_DisabledIsNoop(t *testing.T) {
	submitter := &recordingSubmitter{}
	trigger := NewPeriodicTrigger(PeriodicTriggerConfig{}, submitter, zap.NewNop())

	assert.False(t, PeriodicTriggerConfig{}.Enabled())
	require.NoError(t, trigger.Start(context.Background()))
	require.NoError(t, trigger.Stop(context.Background()))
	assert.Zero(t, submitter.count(JobKindQueueDrain))
}

func TestPeriodicTrigger_DrivesScheduler(t *testing.T) {
	s := newTestScheduler(t, DefaultConfig(), Runners{Queue: ctxDrainer{}})
	trigger := NewPeriodicTrigger(PeriodicTriggerConfig{QueueInterval: 5 * time.Millisecond}, s, zap.NewNop())

	require.NoError(t, trigger.Start(context.Background()))
	defer trigger.Stop(context.Background())

	assert.Eventually(t, func() bool {
		history := s.GetJobHistory(1)
		return len(history) == 1 && history[0].Trigger == TriggerPeriodic && history[0].Status == JobStatusSuccess
	}, time.Second, 5*time.Millisecond)
}
