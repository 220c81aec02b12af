package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/internal/utils"
)

// OrganizationAccount manages an organization's own account
type OrganizationAccount interface {
	Profile(ctx context.Context, orgID uuid.UUID) (*services.OrganizationProfile, error)
	UpdateSettings(ctx context.Context, orgID uuid.UUID, req models.UpdateSettingsRequest) (*models.Organization, error)
	ChangePassword(ctx context.Context, orgID uuid.UUID, current, next string) error
	DeleteAccount(ctx context.Context, orgID uuid.UUID, password string) error
}

// OrganizationHandler handles organization account requests
type OrganizationHandler struct {
	organizations OrganizationAccount
	audit         AuditLogger
}

// NewOrganizationHandler creates a new organization handler. audit may be nil.
func NewOrganizationHandler(organizations OrganizationAccount, audit AuditLogger) *OrganizationHandler {
	return &OrganizationHandler{organizations: organizations, audit: audit}
}

// GetProfile handles GET /api/v1/organization/profile
func (h *OrganizationHandler) GetProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := h.organizations.Profile(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		respondServiceError(c, "GetOrganizationProfile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateSettings handles PUT /api/v1/organization/settings
func (h *OrganizationHandler) UpdateSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	org, err := h.organizations.UpdateSettings(c.Request.Context(), actor.OrganizationID, req)
	if err != nil {
		respondServiceError(c, "UpdateSettings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Settings updated successfully",
		"organization": org,
	})
}

// ChangePassword handles PUT /api/v1/organization/password
func (h *OrganizationHandler) ChangePassword(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.organizations.ChangePassword(c.Request.Context(), actor.OrganizationID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(c, "ChangePassword", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteAccount handles DELETE /api/v1/organization/account
func (h *OrganizationHandler) DeleteAccount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.organizations.DeleteAccount(c.Request.Context(), actor.OrganizationID, req.Password); err != nil {
		respondServiceError(c, "DeleteAccount", err)
		return
	}

	safeLogAccountDeleted(c.Request.Context(), h.audit, actor.OrganizationID, utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{"message": "Organization account deleted successfully"})
}
