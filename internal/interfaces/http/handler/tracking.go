package handler

import (
	"github.com/gin-gonic/gin"

	trackingapp "github.com/orderdesk/backend/internal/application/tracking"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// TrackingHandler handles return initiation and tracking refresh endpoints
type TrackingHandler struct {
	BaseHandler
	trackingService *trackingapp.Service
}

// NewTrackingHandler creates a new TrackingHandler
func NewTrackingHandler(trackingService *trackingapp.Service) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
	}
}

// RegisterRoutes mounts the tracking endpoints on the given group
func (h *TrackingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/:id/return", h.RequestReturn)
	rg.POST("/orders/:id/tracking/refresh", h.Refresh)
	rg.POST("/tracking/refresh", h.BatchRefresh)
}

// RequestReturn initiates a return with the carrier for selected lines
func (h *TrackingHandler) RequestReturn(c *gin.Context) {
	var req dto.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	rec, err := h.trackingService.RequestReturn(c.Request.Context(), c.Param("id"), req.ToReturnLines())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromRecord(rec))
}

// Refresh pulls the latest carrier status for one order
func (h *TrackingHandler) Refresh(c *gin.Context) {
	rec, err := h.trackingService.RefreshTracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromRecord(rec))
}

// BatchRefresh refreshes tracking for many orders, reporting per-order
// outcomes
func (h *TrackingHandler) BatchRefresh(c *gin.Context) {
	var req dto.BatchRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	report, err := h.trackingService.RefreshTrackingBatch(c.Request.Context(), req.Identifiers)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := dto.BatchRefreshResponse{
		Updated: report.Updated,
		Failed:  make(map[string]string, len(report.Failed)),
	}
	for id, ferr := range report.Failed {
		resp.Failed[id] = ferr.Error()
	}
	h.Success(c, resp)
}
