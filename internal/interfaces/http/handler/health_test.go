package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betminds/linx-orders/internal/interfaces/http/dto"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubRunning bool

func (s stubRunning) IsRunning() bool { return bool(s) }

func TestHealthHandler_Root(t *testing.T) {
	h := NewHealthHandler("linx-orders-importer", "1.0.0", stubPinger{}, stubRunning(true))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.Root(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"linx-orders-importer","version":"1.0.0"}`, w.Body.String())
}

func TestHealthHandler_Healthz(t *testing.T) {
	tests := []struct {
		name       string
		sinkErr    error
		running    bool
		wantStatus int
		want       dto.HealthResponse
	}{
		{
			name:       "all up",
			running:    true,
			wantStatus: http.StatusOK,
			want:       dto.HealthResponse{Status: "ok", Sink: "ok", Scheduler: "running"},
		},
		{
			name:       "sink down",
			sinkErr:    errors.New("connection refused"),
			running:    true,
			wantStatus: http.StatusServiceUnavailable,
			want:       dto.HealthResponse{Status: "degraded", Sink: "unreachable", Scheduler: "running", Error: "connection refused"},
		},
		{
			name:       "scheduler stopped",
			running:    false,
			wantStatus: http.StatusServiceUnavailable,
			want:       dto.HealthResponse{Status: "degraded", Sink: "ok", Scheduler: "stopped"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("svc", "v", stubPinger{err: tt.sinkErr}, stubRunning(tt.running))

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
			h.Healthz(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			var got dto.HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}
