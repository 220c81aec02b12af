package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
)

// DashboardReporter computes the organization dashboard
type DashboardReporter interface {
	Stats(ctx context.Context, orgID uuid.UUID) (*models.DashboardStats, error)
	RecentIncidents(ctx context.Context, orgID uuid.UUID, limit int) ([]models.IncidentWithEmployee, error)
	IncidentDeliveries(ctx context.Context, orgID, incidentID uuid.UUID) (*services.IncidentDeliveries, error)
}

// DashboardHandler serves organization statistics
type DashboardHandler struct {
	dashboard DashboardReporter
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboard DashboardReporter) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GetStats handles GET /api/v1/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		respondServiceError(c, "GetDashboardStats", err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetRecentIncidents handles GET /api/v1/dashboard/recent-incidents?limit=N
func (h *DashboardHandler) GetRecentIncidents(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	incidents, err := h.dashboard.RecentIncidents(c.Request.Context(), actor.OrganizationID, limit)
	if err != nil {
		respondServiceError(c, "GetRecentIncidents", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(incidents), "incidents": incidents})
}

// GetIncidentDeliveries handles GET /api/v1/dashboard/incidents/:id/deliveries
func (h *DashboardHandler) GetIncidentDeliveries(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	incidentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	deliveries, err := h.dashboard.IncidentDeliveries(c.Request.Context(), actor.OrganizationID, incidentID)
	if err != nil {
		respondServiceError(c, "GetIncidentDeliveries", err)
		return
	}

	c.JSON(http.StatusOK, deliveries)
}
