package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/betminds/linx-orders/internal/application/ordersync"
	"github.com/betminds/linx-orders/internal/infrastructure/scheduler"
	"github.com/betminds/linx-orders/internal/interfaces/http/dto"
	"github.com/betminds/linx-orders/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockJobRunner struct{ mock.Mock }

func (m *mockJobRunner) SubmitJob(req scheduler.JobRequest) (*scheduler.Job, error) {
	args := m.Called(req)
	job, _ := args.Get(0).(*scheduler.Job)
	return job, args.Error(1)
}

func (m *mockJobRunner) RunJob(ctx context.Context, req scheduler.JobRequest) (*scheduler.Job, error) {
	args := m.Called(ctx, req)
	job, _ := args.Get(0).(*scheduler.Job)
	return job, args.Error(1)
}

func (m *mockJobRunner) GetJob(id uuid.UUID) (*scheduler.Job, error) {
	args := m.Called(id)
	job, _ := args.Get(0).(*scheduler.Job)
	return job, args.Error(1)
}

func (m *mockJobRunner) GetJobHistory(limit int) []*scheduler.Job {
	args := m.Called(limit)
	jobs, _ := args.Get(0).([]*scheduler.Job)
	return jobs
}

func (m *mockJobRunner) ActiveJobs() []*scheduler.Job {
	args := m.Called()
	jobs, _ := args.Get(0).([]*scheduler.Job)
	return jobs
}

func newSyncRouter(runner JobRunner) *gin.Engine {
	h := NewSyncHandler(runner, SyncHandlerConfig{TestMaxOrders: 5})
	r := gin.New()
	r.Use(middleware.RequestID())
	r.POST("/import", h.Import)
	r.POST("/import-test", h.ImportTest)
	r.POST("/queue/drain", h.DrainQueue)
	r.POST("/reconcile", h.Reconcile)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:id", h.GetJob)
	return r
}

func serve(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, dto.Response) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp dto.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func kindIs(kind scheduler.JobKind, maxOrders int) any {
	return mock.MatchedBy(func(req scheduler.JobRequest) bool {
		return req.Kind == kind && req.MaxOrders == maxOrders && req.Trigger == scheduler.TriggerHTTP && req.RequestID != ""
	})
}

func completedJob(kind scheduler.JobKind) *scheduler.Job {
	job := scheduler.NewJob(scheduler.JobRequest{Kind: kind, Trigger: scheduler.TriggerHTTP})
	job.Start()
	job.Complete(5, 0, nil)
	return job
}

func TestSyncHandler_Import(t *testing.T) {
	runner := new(mockJobRunner)
	job := completedJob(scheduler.JobKindImport)
	job.Import = &ordersync.ImportSummary{RunID: "run-1", Imported: 5}
	runner.On("RunJob", mock.Anything, kindIs(scheduler.JobKindImport, 0)).Return(job, nil)

	rec, resp := serve(newSyncRouter(runner), http.MethodPost, "/import", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "SUCCESS", data["status"])
	assert.Equal(t, "run-1", data["import"].(map[string]any)["run_id"])
	runner.AssertExpectations(t)
}

func TestSyncHandler_ImportTest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		maxOrders int
	}{
		{"no body uses default", "", 5},
		{"explicit max orders", `{"max_orders": 12}`, 12},
		{"empty object uses default", `{}`, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(mockJobRunner)
			runner.On("RunJob", mock.Anything, kindIs(scheduler.JobKindImportTest, tt.maxOrders)).
				Return(completedJob(scheduler.JobKindImportTest), nil)

			rec, _ := serve(newSyncRouter(runner), http.MethodPost, "/import-test", tt.body)
			assert.Equal(t, http.StatusOK, rec.Code)
			runner.AssertExpectations(t)
		})
	}
}

func TestSyncHandler_ImportTest_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"zero is below minimum", `{"max_orders": 0}`, dto.ErrCodeValidation},
		{"negative is below minimum", `{"max_orders": -3}`, dto.ErrCodeValidation},
		{"wrong type", `{"max_orders": "five"}`, dto.ErrCodeInvalidJSON},
		{"malformed json", `{"max_orders":`, dto.ErrCodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(mockJobRunner)
			rec, resp := serve(newSyncRouter(runner), http.MethodPost, "/import-test", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			if tt.wantCode == dto.ErrCodeValidation {
				assert.Contains(t, resp.Error.Message, "max_orders")
			}
			runner.AssertNotCalled(t, "RunJob", mock.Anything, mock.Anything)
		})
	}
}

func TestSyncHandler_RunFailure(t *testing.T) {
	runner := new(mockJobRunner)
	job := scheduler.NewJob(scheduler.JobRequest{Kind: scheduler.JobKindQueueDrain})
	job.Start()
	job.Complete(0, 0, ordersync.ErrQueueFetchFailed)
	runner.On("RunJob", mock.Anything, kindIs(scheduler.JobKindQueueDrain, 0)).Return(job, nil)

	rec, resp := serve(newSyncRouter(runner), http.MethodPost, "/queue/drain", "")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeRunFailed, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "queue fetch failed")
	assert.Equal(t, "FAILED", resp.Data.(map[string]any)["status"])
}

func TestSyncHandler_SubmitErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		job        *scheduler.Job
		wantStatus int
		wantCode   string
	}{
		{"in progress", fmt.Errorf("%w: import", scheduler.ErrJobAlreadyInProgress), completedJob(scheduler.JobKindImport), http.StatusConflict, dto.ErrCodeJobInProgress},
		{"queue full", scheduler.ErrJobQueueFull, nil, http.StatusTooManyRequests, dto.ErrCodeQueueFull},
		{"not running", scheduler.ErrSchedulerNotRunning, nil, http.StatusServiceUnavailable, dto.ErrCodeUnavailable},
		{"no runner", scheduler.ErrUnknownJobKind, nil, http.StatusNotImplemented, dto.ErrCodeNotImplemented},
		{"unexpected", errors.New("boom"), nil, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := new(mockJobRunner)
			runner.On("RunJob", mock.Anything, mock.Anything).Return(tt.job, tt.err)

			rec, resp := serve(newSyncRouter(runner), http.MethodPost, "/import", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.job != nil, resp.Data != nil)
		})
	}
}

func TestSyncHandler_Async(t *testing.T) {
	runner := new(mockJobRunner)
	job := scheduler.NewJob(scheduler.JobRequest{Kind: scheduler.JobKindReconcile, DryRun: true})
	runner.On("SubmitJob", mock.MatchedBy(func(req scheduler.JobRequest) bool {
		return req.Kind == scheduler.JobKindReconcile && req.DryRun
	})).Return(job, nil)

	rec, resp := serve(newSyncRouter(runner), http.MethodPost, "/reconcile?async=true", `{"dry_run": true}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "PENDING", resp.Data.(map[string]any)["status"])
	runner.AssertNotCalled(t, "RunJob", mock.Anything, mock.Anything)
}

func TestSyncHandler_CallerGivesUp(t *testing.T) {
	runner := new(mockJobRunner)
	job := scheduler.NewJob(scheduler.JobRequest{Kind: scheduler.JobKindImport})
	runner.On("RunJob", mock.Anything, mock.Anything).Return(job, context.Canceled)

	rec, _ := serve(newSyncRouter(runner), http.MethodPost, "/import", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestSyncHandler_ListJobs(t *testing.T) {
	runner := new(mockJobRunner)
	runner.On("ActiveJobs").Return([]*scheduler.Job{scheduler.NewJob(scheduler.JobRequest{Kind: scheduler.JobKindQueueDrain})})
	runner.On("GetJobHistory", 2).Return([]*scheduler.Job{completedJob(scheduler.JobKindImport)})

	rec, resp := serve(newSyncRouter(runner), http.MethodGet, "/jobs?limit=2", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := resp.Data.(map[string]any)
	assert.Len(t, data["active"], 1)
	assert.Len(t, data["history"], 1)

	rec, _ = serve(newSyncRouter(runner), http.MethodGet, "/jobs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_GetJob(t *testing.T) {
	runner := new(mockJobRunner)
	job := completedJob(scheduler.JobKindReconcile)
	runner.On("GetJob", job.ID).Return(job, nil)
	missing := uuid.New()
	runner.On("GetJob", missing).Return(nil, scheduler.ErrJobNotFound)
	r := newSyncRouter(runner)

	rec, resp := serve(r, http.MethodGet, "/jobs/"+job.ID.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, job.ID.String(), resp.Data.(map[string]any)["id"])

	rec, _ = serve(r, http.MethodGet, "/jobs/"+missing.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(r, http.MethodGet, "/jobs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
