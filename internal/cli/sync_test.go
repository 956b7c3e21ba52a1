package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/application/ordersync"
)

type scriptedWaiter struct {
	results   []error
	calls     int
	intervals []time.Duration
	cancel    context.CancelFunc
}

func (w *scriptedWaiter) WaitAndDrain(ctx context.Context, pollInterval time.Duration) (*ordersync.DrainResult, error) {
	w.calls++
	w.intervals = append(w.intervals, pollInterval)
	if w.calls > len(w.results) {
		w.cancel()
		return &ordersync.DrainResult{}, ctx.Err()
	}
	return &ordersync.DrainResult{}, w.results[w.calls-1]
}

func TestWatchQueue_ContinuesAfterFailedCycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	waiter := &scriptedWaiter{
		results: []error{nil, ordersync.ErrQueueFetchFailed, nil},
		cancel:  cancel,
	}

	err := watchQueue(ctx, waiter, time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 4, waiter.calls)
}

func TestWatchQueue_StopsWhileBackingOff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	waiter := &scriptedWaiter{results: []error{ordersync.ErrQueueFetchFailed}, cancel: cancel}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	done := make(chan error, 1)
	go func() { done <- watchQueue(ctx, waiter, time.Hour, zap.NewNop()) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchQueue did not stop")
	}
	assert.Equal(t, 1, waiter.calls)
}

func TestWatchQueue_NonPositiveIntervalUsesDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waiter := &scriptedWaiter{results: []error{nil}, cancel: cancel}
	require.NoError(t, watchQueue(ctx, waiter, 0, zap.NewNop()))
	require.NotEmpty(t, waiter.intervals)
	for _, d := range waiter.intervals {
		assert.Equal(t, ordersync.DefaultPollInterval, d)
	}
}

func TestWatchCommand_RejectsNonPositiveInterval(t *testing.T) {
	for _, arg := range []string{"0s", "-5s"} {
		t.Run(arg, func(t *testing.T) {
			calls := 0
			cmd := newRootCommand(&RootOptions{NewApp: failingFactory(&calls)})
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{"watch", "--poll-interval=" + arg})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Zero(t, calls)
		})
	}
}

type stubPing struct{ err error }

func (s stubPing) Ping(context.Context) error { return s.err }

type stubSink struct {
	pingErr   error
	ensureErr error
	ensured   bool
}

func (s *stubSink) Ping(context.Context) error { return s.pingErr }

func (s *stubSink) EnsureTable(context.Context) error {
	s.ensured = true
	return s.ensureErr
}

func TestRunCheck(t *testing.T) {
	linxDown := errors.New("linx: SearchOrders: status 503")
	pgDown := errors.New("connection refused")

	tests := []struct {
		name       string
		source     pinger
		sink       *stubSink
		wantSource string
		wantSink   string
		wantErr    bool
		wantEnsure bool
	}{
		{"all ok", stubPing{}, &stubSink{}, "ok", "ok", false, true},
		{"source down", stubPing{err: linxDown}, &stubSink{}, linxDown.Error(), "ok", true, true},
		{"source missing", nil, &stubSink{}, errSourceNotConfigured.Error(), "ok", true, true},
		{"sink down skips ensure", stubPing{}, &stubSink{pingErr: pgDown}, "ok", pgDown.Error(), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := runCheck(context.Background(), tt.source, tt.sink)

			assert.Equal(t, tt.wantSource, report.Source)
			assert.Equal(t, tt.wantSink, report.Sink)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.wantEnsure, tt.sink.ensured)
		})
	}
}
