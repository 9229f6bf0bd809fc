package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orderdesk/backend/internal/infrastructure/scheduler"
)

// SystemHandler handles health and monitoring endpoints
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	scheduler *scheduler.SyncScheduler
}

// NewSystemHandler creates a new SystemHandler. The scheduler may be nil
// when periodic sync is disabled.
func NewSystemHandler(sched *scheduler.SyncScheduler) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		scheduler: sched,
	}
}

// RegisterRoutes mounts the system endpoints on the given group
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	system.GET("/health", h.Health)
	system.GET("/sync-jobs", h.SyncJobs)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health reports liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, HealthResponse{
		Status:    "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// SyncJobResponse represents one scheduled sync run
type SyncJobResponse struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	OrderCount  int        `json:"order_count"`
}

// SyncJobs returns the recent scheduled sync history, newest first
func (h *SystemHandler) SyncJobs(c *gin.Context) {
	if h.scheduler == nil {
		h.Success(c, []SyncJobResponse{})
		return
	}

	jobs := h.scheduler.GetJobHistory(20)
	resp := make([]SyncJobResponse, len(jobs))
	for i, job := range jobs {
		resp[i] = SyncJobResponse{
			ID:          job.ID.String(),
			Status:      string(job.Status),
			Error:       job.Error,
			StartedAt:   job.StartedAt,
			CompletedAt: job.CompletedAt,
			OrderCount:  job.OrderCount,
		}
	}
	h.Success(c, resp)
}
