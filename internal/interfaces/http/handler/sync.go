package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/betminds/linx-orders/internal/infrastructure/scheduler"
	"github.com/betminds/linx-orders/internal/interfaces/http/dto"
	"github.com/betminds/linx-orders/internal/interfaces/http/middleware"
)

// JobRunner is the scheduler surface the sync handler drives.
type JobRunner interface {
	SubmitJob(req scheduler.JobRequest) (*scheduler.Job, error)
	RunJob(ctx context.Context, req scheduler.JobRequest) (*scheduler.Job, error)
	GetJob(id uuid.UUID) (*scheduler.Job, error)
	GetJobHistory(limit int) []*scheduler.Job
	ActiveJobs() []*scheduler.Job
}

// SyncHandlerConfig holds defaults applied to trigger requests
type SyncHandlerConfig struct {
	// MaxOrders bounds POST /import. Zero means unlimited.
	MaxOrders int
	// TestMaxOrders is the POST /import-test default.
	TestMaxOrders int
}

// SyncHandler triggers sync jobs. Triggers wait for the job and answer
// with its record; ?async=true answers 202 right after submission.
type SyncHandler struct {
	BaseHandler
	runner JobRunner
	config SyncHandlerConfig
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(runner JobRunner, config SyncHandlerConfig) *SyncHandler {
	if config.TestMaxOrders <= 0 {
		config.TestMaxOrders = 5
	}
	registerJSONFieldNames()
	return &SyncHandler{runner: runner, config: config}
}

// Import runs a full catch-up import.
//
//	@ID           postImport
//	@Summary      Run a catch-up import
//	@Description  Imports every order created after the newest stored row
//	@Tags         sync
//	@Produce      json
//	@Security     BearerAuth
//	@Param        async  query     bool  false  "Answer 202 right after submission"
//	@Success      200    {object}  dto.Response{data=scheduler.Job}
//	@Success      202    {object}  dto.Response{data=scheduler.Job}
//	@Failure      401    {object}  dto.Response
//	@Failure      409    {object}  dto.Response
//	@Failure      502    {object}  dto.Response{data=scheduler.Job}
//	@Router       /import [post]
func (h *SyncHandler) Import(c *gin.Context) {
	h.trigger(c, scheduler.JobRequest{Kind: scheduler.JobKindImport, MaxOrders: h.config.MaxOrders})
}

// ImportTest runs a bounded import. Body: {"max_orders": n}, n >= 1.
//
//	@ID           postImportTest
//	@Summary      Run a bounded import
//	@Description  Imports at most max_orders orders
//	@Tags         sync
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        request  body      dto.ImportTestRequest  false  "Order limit"
//	@Param        async    query     bool                   false  "Answer 202 right after submission"
//	@Success      200      {object}  dto.Response{data=scheduler.Job}
//	@Success      202      {object}  dto.Response{data=scheduler.Job}
//	@Failure      400      {object}  dto.Response
//	@Failure      401      {object}  dto.Response
//	@Failure      409      {object}  dto.Response
//	@Router       /import-test [post]
func (h *SyncHandler) ImportTest(c *gin.Context) {
	var req dto.ImportTestRequest
	if !h.bindOptional(c, &req) {
		return
	}
	maxOrders := h.config.TestMaxOrders
	if req.MaxOrders != nil {
		maxOrders = *req.MaxOrders
	}
	h.trigger(c, scheduler.JobRequest{Kind: scheduler.JobKindImportTest, MaxOrders: maxOrders})
}

// DrainQueue runs one queue consumer cycle.
//
//	@ID           postQueueDrain
//	@Summary      Drain the integration queue once
//	@Description  Fetches one page of integration queue items, upserts the orders and dequeues the written items
//	@Tags         sync
//	@Produce      json
//	@Security     BearerAuth
//	@Param        async  query     bool  false  "Answer 202 right after submission"
//	@Success      200    {object}  dto.Response{data=scheduler.Job}
//	@Success      202    {object}  dto.Response{data=scheduler.Job}
//	@Failure      401    {object}  dto.Response
//	@Failure      501    {object}  dto.Response
//	@Router       /queue/drain [post]
func (h *SyncHandler) DrainQueue(c *gin.Context) {
	h.trigger(c, scheduler.JobRequest{Kind: scheduler.JobKindQueueDrain})
}

// Reconcile removes duplicate rows. Body: {"dry_run": bool}.
//
//	@ID           postReconcile
//	@Summary      Remove duplicate rows
//	@Description  Keeps the newest row per order_id and deletes the rest
//	@Tags         sync
//	@Accept       json
//	@Produce      json
//	@Security     BearerAuth
//	@Param        request  body      dto.ReconcileRequest  false  "Reconcile options"
//	@Param        async    query     bool                  false  "Answer 202 right after submission"
//	@Success      200      {object}  dto.Response{data=scheduler.Job}
//	@Success      202      {object}  dto.Response{data=scheduler.Job}
//	@Failure      400      {object}  dto.Response
//	@Failure      401      {object}  dto.Response
//	@Router       /reconcile [post]
func (h *SyncHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !h.bindOptional(c, &req) {
		return
	}
	h.trigger(c, scheduler.JobRequest{Kind: scheduler.JobKindReconcile, DryRun: req.DryRun})
}

// ListJobs returns active jobs and recent history. Query: limit.
//
//	@ID           listJobs
//	@Summary      List sync jobs
//	@Description  Returns the running jobs and the most recent finished ones
//	@Tags         jobs
//	@Produce      json
//	@Security     BearerAuth
//	@Param        limit  query     int  false  "Maximum history entries, 0 for all"
//	@Success      200    {object}  dto.Response{data=dto.JobListResponse}
//	@Failure      400    {object}  dto.Response
//	@Failure      401    {object}  dto.Response
//	@Router       /jobs [get]
func (h *SyncHandler) ListJobs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.BadRequest(c, dto.ErrCodeInvalidInput, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	h.Success(c, dto.JobListResponse{
		Active:  h.runner.ActiveJobs(),
		History: h.runner.GetJobHistory(limit),
	})
}

// GetJob returns one job by id.
//
//	@ID           getJob
//	@Summary      Get a sync job
//	@Description  Returns one job record by id
//	@Tags         jobs
//	@Produce      json
//	@Security     BearerAuth
//	@Param        id   path      string  true  "Job ID"  format(uuid)
//	@Success      200  {object}  dto.Response{data=scheduler.Job}
//	@Failure      400  {object}  dto.Response
//	@Failure      404  {object}  dto.Response
//	@Router       /jobs/{id} [get]
func (h *SyncHandler) GetJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, dto.ErrCodeInvalidInput, "job id must be a UUID")
		return
	}
	job, err := h.runner.GetJob(id)
	if err != nil {
		h.NotFound(c, "job not found")
		return
	}
	h.Success(c, job)
}

func (h *SyncHandler) trigger(c *gin.Context, req scheduler.JobRequest) {
	req.Trigger = scheduler.TriggerHTTP
	req.RequestID = middleware.GetRequestID(c)

	if c.Query("async") == "true" {
		job, err := h.runner.SubmitJob(req)
		if err != nil {
			h.submitError(c, job, err)
			return
		}
		h.Accepted(c, job)
		return
	}

	job, err := h.runner.RunJob(c.Request.Context(), req)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The caller gave up; the job keeps running.
		h.Accepted(c, job)
	case err != nil:
		h.submitError(c, job, err)
	case job.Error != "":
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeRunFailed),
			dto.NewJobErrorResponse(dto.ErrCodeRunFailed, job.Error, req.RequestID, job))
	default:
		h.Success(c, job)
	}
}

func (h *SyncHandler) submitError(c *gin.Context, job *scheduler.Job, err error) {
	var code string
	switch {
	case errors.Is(err, scheduler.ErrJobAlreadyInProgress):
		code = dto.ErrCodeJobInProgress
	case errors.Is(err, scheduler.ErrJobQueueFull):
		code = dto.ErrCodeQueueFull
	case errors.Is(err, scheduler.ErrSchedulerNotRunning):
		code = dto.ErrCodeUnavailable
	case errors.Is(err, scheduler.ErrUnknownJobKind):
		code = dto.ErrCodeNotImplemented
	default:
		code = dto.ErrCodeInternal
	}

	if job != nil {
		c.JSON(dto.GetHTTPStatus(code), dto.NewJobErrorResponse(code, err.Error(), middleware.GetRequestID(c), job))
		return
	}
	h.ErrorWithCode(c, code, err.Error())
}

// bindOptional decodes a JSON body when one was sent. It writes the 400
// response itself and returns false on failure.
func (h *SyncHandler) bindOptional(c *gin.Context, obj any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	err := c.ShouldBindJSON(obj)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		h.BadRequest(c, dto.ErrCodeValidation, formatValidationErrors(verrs))
		return false
	}
	h.BadRequest(c, dto.ErrCodeInvalidJSON, "request body is not valid JSON")
	return false
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return strings.Join(msgs, "; ")
}

var tagNameOnce sync.Once

// registerJSONFieldNames makes validation errors report json field names.
func registerJSONFieldNames() {
	tagNameOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}
