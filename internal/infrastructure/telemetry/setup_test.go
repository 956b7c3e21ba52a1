package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/betminds/linx-orders/internal/infrastructure/config"
	"github.com/betminds/linx-orders/internal/infrastructure/telemetry"
)

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()

	p, err := telemetry.Setup(ctx, config.TelemetryConfig{
		ServiceName:    "linx-orders-importer",
		MetricsEnabled: true,
		LogsEnabled:    true,
	}, "1.0.0", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, p.Tracer.IsEnabled())
	assert.False(t, p.Meter.IsEnabled())
	assert.False(t, p.Logs.IsEnabled())
	assert.False(t, p.Profiler.IsEnabled())
	assert.False(t, p.Tracer.IsSpanProfilesEnabled())

	m, err := p.SyncMetrics()
	require.NoError(t, err)
	assert.NotNil(t, m)

	assert.NoError(t, p.Tracer.ForceFlush(ctx))
	assert.NoError(t, p.Meter.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
	assert.NoError(t, p.Profiler.Stop())
}

func TestLoggerProvider_ZapCoreDisabled(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	core := lp.ZapCore(zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	var nilProvider *telemetry.LoggerProvider
	assert.False(t, nilProvider.ZapCore(zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("enabled requires an address", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true}, zaptest.NewLogger(t))
		assert.ErrorIs(t, err, telemetry.ErrProfilerAddressRequired)
	})
}

func TestWithProfilingLabels(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	var called int
	telemetry.WithProfilingLabels(ctx, map[string]string{"job_kind": "import", "empty": ""}, func(inner context.Context) {
		called++
		assert.Equal(t, "v", inner.Value(key{}))
	})
	telemetry.WithProfilingLabels(ctx, nil, func(context.Context) { called++ })

	assert.Equal(t, 2, called)
}
