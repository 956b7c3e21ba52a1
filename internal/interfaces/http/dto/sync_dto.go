package dto

import "github.com/betminds/linx-orders/internal/infrastructure/scheduler"

// ImportTestRequest is the optional body of POST /import-test.
type ImportTestRequest struct {
	MaxOrders *int `json:"max_orders" binding:"omitempty,min=1"`
}

// ReconcileRequest is the optional body of POST /reconcile.
type ReconcileRequest struct {
	DryRun bool `json:"dry_run"`
}

// ServiceInfoResponse is returned by GET /.
type ServiceInfoResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Sink      string `json:"sink"`
	Scheduler string `json:"scheduler"`
	Error     string `json:"error,omitempty"`
}

// JobListResponse is returned by GET /jobs.
type JobListResponse struct {
	Active  []*scheduler.Job `json:"active"`
	History []*scheduler.Job `json:"history"`
}
