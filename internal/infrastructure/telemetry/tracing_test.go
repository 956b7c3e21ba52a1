package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartSpan_EndSpan(t *testing.T) {
	recorder := newRecorder(t)

	ctx, span := StartSpan(context.Background(), "ordersync.import", AttrRunID.String("run-1"))
	assert.NotEmpty(t, GetTraceID(ctx))
	EndSpan(span, errors.New("page fetch failed"))

	_, second := StartSpan(context.Background(), "ordersync.reconcile")
	EndSpan(second, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "ordersync.import", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "run-1", attrMap(spans[0].Attributes())[AttrRunID].AsString())
	assert.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestSlowQueryCallback(t *testing.T) {
	recorder := newRecorder(t)

	ctx, span := StartSpan(context.Background(), "sink")
	ctx = context.WithValue(ctx, queryStartKey, time.Now().Add(-time.Second))
	db := &gorm.DB{
		Config:       &gorm.Config{},
		Error:        errors.New("relation does not exist"),
		RowsAffected: 3,
	}
	db.Statement = &gorm.Statement{DB: db, Context: ctx, Table: "linx_orders"}

	slowQueryCallback(100 * time.Millisecond)(db)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, int64(3), attrs["db.rows_affected"].AsInt64())
	assert.Equal(t, "linx_orders", attrs["db.sql.table"].AsString())
	assert.True(t, attrs["db.slow_query"].AsBool())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestRegisterDBTracing_Disabled(t *testing.T) {
	assert.NoError(t, RegisterDBTracing(&gorm.DB{}, DBTracingConfig{}, nil))
}
