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

// EmployeeManager is the employee directory used by organizations and employees
type EmployeeManager interface {
	Create(ctx context.Context, orgID uuid.UUID, req models.CreateEmployeeRequest) (*models.Employee, error)
	List(ctx context.Context, orgID uuid.UUID) ([]models.Employee, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Employee, error)
	Update(ctx context.Context, actor services.Actor, id uuid.UUID, req models.UpdateEmployeeRequest) (*models.Employee, error)
	GetProfile(ctx context.Context, employeeID uuid.UUID) (*services.EmployeeProfile, error)
	UpdateProfile(ctx context.Context, employeeID uuid.UUID, req models.UpdateProfileRequest) (*models.Employee, error)
	Deactivate(ctx context.Context, orgID, id uuid.UUID) error
	QRCode(ctx context.Context, orgID, id uuid.UUID) (*services.QRCodeInfo, error)
	RegenerateQR(ctx context.Context, orgID, id uuid.UUID) (*services.QRCodeInfo, error)
}

// EmployeeHandler handles employee management requests
type EmployeeHandler struct {
	employees EmployeeManager
	audit     AuditLogger
}

// NewEmployeeHandler creates a new employee handler. audit may be nil.
func NewEmployeeHandler(employees EmployeeManager, audit AuditLogger) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, audit: audit}
}

// CreateEmployee handles POST /api/v1/employees
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	employee, err := h.employees.Create(c.Request.Context(), actor.OrganizationID, req)
	if err != nil {
		respondServiceError(c, "CreateEmployee", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Employee created successfully",
		"employee": employee,
	})
}

// ListEmployees handles GET /api/v1/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	employees, err := h.employees.List(c.Request.Context(), actor.OrganizationID)
	if err != nil {
		respondServiceError(c, "ListEmployees", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(employees), "employees": employees})
}

// GetEmployee handles GET /api/v1/employees/:id
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	employee, err := h.employees.Get(c.Request.Context(), actor.OrganizationID, id)
	if err != nil {
		respondServiceError(c, "GetEmployee", err)
		return
	}

	c.JSON(http.StatusOK, employee)
}

// UpdateEmployee handles PUT /api/v1/employees/:id for the owning
// organization or the employee themselves
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	employee, err := h.employees.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondServiceError(c, "UpdateEmployee", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Employee updated successfully",
		"employee": employee,
	})
}

// DeleteEmployee handles DELETE /api/v1/employees/:id (soft delete)
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.employees.Deactivate(c.Request.Context(), actor.OrganizationID, id); err != nil {
		respondServiceError(c, "DeleteEmployee", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Employee deactivated successfully"})
}

// GetMyProfile handles GET /api/v1/employees/profile/me
func (h *EmployeeHandler) GetMyProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	profile, err := h.employees.GetProfile(c.Request.Context(), actor.ID)
	if err != nil {
		respondServiceError(c, "GetMyProfile", err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMyProfile handles PUT /api/v1/employees/profile/me
func (h *EmployeeHandler) UpdateMyProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	employee, err := h.employees.UpdateProfile(c.Request.Context(), actor.ID, req)
	if err != nil {
		respondServiceError(c, "UpdateMyProfile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Profile updated successfully",
		"employee": employee,
	})
}

// GetQRCode handles GET /api/v1/employees/:id/qr
func (h *EmployeeHandler) GetQRCode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	info, err := h.employees.QRCode(c.Request.Context(), actor.OrganizationID, id)
	if err != nil {
		respondServiceError(c, "GetQRCode", err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// RegenerateQRCode handles POST /api/v1/employees/:id/regenerate-qr
func (h *EmployeeHandler) RegenerateQRCode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	info, err := h.employees.RegenerateQR(c.Request.Context(), actor.OrganizationID, id)
	if err != nil {
		respondServiceError(c, "RegenerateQRCode", err)
		return
	}

	safeLogQRRegenerated(c.Request.Context(), h.audit, actor.OrganizationID, id, utils.GetRealIP(c), utils.GetUserAgent(c))

	c.JSON(http.StatusOK, gin.H{
		"message": "QR token regenerated successfully",
		"qrToken": info.QRToken,
		"qrUrl":   info.QRURL,
	})
}
