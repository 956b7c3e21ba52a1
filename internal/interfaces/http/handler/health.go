package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/betminds/linx-orders/internal/interfaces/http/dto"
)

// Pinger checks a dependency connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunningChecker reports whether the job runner accepts work.
type RunningChecker interface {
	IsRunning() bool
}

const healthCheckTimeout = 5 * time.Second

// HealthHandler serves the service banner and the readiness check
type HealthHandler struct {
	BaseHandler
	service   string
	version   string
	sink      Pinger
	scheduler RunningChecker
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service, version string, sink Pinger, scheduler RunningChecker) *HealthHandler {
	return &HealthHandler{
		service:   service,
		version:   version,
		sink:      sink,
		scheduler: scheduler,
	}
}

// Root answers GET / with the service banner.
//
//	@ID           getRoot
//	@Summary      Service banner
//	@Description  Returns the service name and version
//	@Tags         health
//	@Produce      json
//	@Success      200  {object}  dto.ServiceInfoResponse
//	@Router       / [get]
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServiceInfoResponse{
		Status:  "healthy",
		Service: h.service,
		Version: h.version,
	})
}

// Healthz pings the sink and reports 503 when it or the scheduler is down.
//
//	@ID           getHealthz
//	@Summary      Readiness check
//	@Description  Pings the sink database and checks the job scheduler
//	@Tags         health
//	@Produce      json
//	@Success      200  {object}  dto.HealthResponse
//	@Failure      503  {object}  dto.HealthResponse
//	@Router       /healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "ok", Sink: "ok", Scheduler: "running"}
	status := http.StatusOK

	if err := h.sink.Ping(ctx); err != nil {
		resp.Status, resp.Sink, resp.Error = "degraded", "unreachable", err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.scheduler != nil && !h.scheduler.IsRunning() {
		resp.Status, resp.Scheduler = "degraded", "stopped"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}
