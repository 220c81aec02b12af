package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/internal/utils"
	"github.com/safeqr/emergency-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// Authenticator registers and signs in organizations and employees
type Authenticator interface {
	RegisterOrganization(ctx context.Context, req models.RegisterOrganizationRequest) (*services.OrganizationSession, error)
	LoginOrganization(ctx context.Context, email, password string) (*services.OrganizationSession, error)
	LoginEmployee(ctx context.Context, email, password string) (*services.EmployeeSession, error)
}

// LoginGuard throttles repeated failed logins
type LoginGuard interface {
	Check(ctx context.Context, email, ip string) error
	RecordFailure(ctx context.Context, email, ip string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth  Authenticator
	guard LoginGuard
	audit AuditLogger
}

// NewAuthHandler creates a new auth handler. guard and audit may be nil.
func NewAuthHandler(auth Authenticator, guard LoginGuard, audit AuditLogger) *AuthHandler {
	return &AuthHandler{auth: auth, guard: guard, audit: audit}
}

// OrganizationAuthResponse is returned after organization register or login
type OrganizationAuthResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Plan      models.Plan `json:"plan"`
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expiresIn"`
}

// EmployeeAuthResponse is returned after employee login
type EmployeeAuthResponse struct {
	ID             string `json:"id"`
	EmployeeCode   string `json:"employeeId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Department     string `json:"department"`
	Role           string `json:"role"`
	OrganizationID string `json:"organizationId"`
	Token          string `json:"token"`
	ExpiresIn      int64  `json:"expiresIn"`
}

func organizationAuthResponse(session *services.OrganizationSession) OrganizationAuthResponse {
	return OrganizationAuthResponse{
		ID:        session.Organization.ID.String(),
		Name:      session.Organization.Name,
		Email:     session.Organization.Email,
		Plan:      session.Organization.Plan,
		Token:     session.Token,
		ExpiresIn: session.ExpiresIn,
	}
}

// RegisterOrganization handles POST /api/v1/auth/organization/register
func (h *AuthHandler) RegisterOrganization(c *gin.Context) {
	var req models.RegisterOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.auth.RegisterOrganization(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "conflict",
				Message: "Organization already exists",
				Code:    "EMAIL_TAKEN",
			})
			return
		}
		respondServiceError(c, "RegisterOrganization", err)
		return
	}

	c.JSON(http.StatusCreated, organizationAuthResponse(session))
}

// LoginOrganization handles POST /api/v1/auth/organization/login
func (h *AuthHandler) LoginOrganization(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	role := string(jwt.RoleOrganization)

	if !h.allowLogin(c, req.Email, clientIP) {
		return
	}

	session, err := h.auth.LoginOrganization(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.recordFailure(c.Request.Context(), req.Email, clientIP)
			safeLogLogin(c.Request.Context(), h.audit, nil, nil, role, req.Email, false, clientIP, userAgent)
		}
		respondServiceError(c, "LoginOrganization", err)
		return
	}

	orgID := session.Organization.ID
	safeLogLogin(c.Request.Context(), h.audit, &orgID, &orgID, role, session.Organization.Email, true, clientIP, userAgent)

	c.JSON(http.StatusOK, organizationAuthResponse(session))
}

// LoginEmployee handles POST /api/v1/auth/employee/login
func (h *AuthHandler) LoginEmployee(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	role := string(jwt.RoleEmployee)

	if !h.allowLogin(c, req.Email, clientIP) {
		return
	}

	session, err := h.auth.LoginEmployee(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.recordFailure(c.Request.Context(), req.Email, clientIP)
			safeLogLogin(c.Request.Context(), h.audit, nil, nil, role, req.Email, false, clientIP, userAgent)
		}
		respondServiceError(c, "LoginEmployee", err)
		return
	}

	employee := session.Employee
	safeLogLogin(c.Request.Context(), h.audit, &employee.ID, &employee.OrganizationID, role, employee.Email, true, clientIP, userAgent)

	c.JSON(http.StatusOK, EmployeeAuthResponse{
		ID:             employee.ID.String(),
		EmployeeCode:   employee.EmployeeCode,
		Name:           employee.Name,
		Email:          employee.Email,
		Department:     employee.Department,
		Role:           employee.Role,
		OrganizationID: employee.OrganizationID.String(),
		Token:          session.Token,
		ExpiresIn:      session.ExpiresIn,
	})
}

// allowLogin writes a 429 and returns false when the email or IP is
// throttled. A failing throttle store lets the attempt through.
func (h *AuthHandler) allowLogin(c *gin.Context, email, clientIP string) bool {
	if h.guard == nil {
		return true
	}

	err := h.guard.Check(c.Request.Context(), email, clientIP)
	if err == nil {
		return true
	}

	var rateErr *services.RateLimitError
	if errors.As(err, &rateErr) {
		retryAfter := int(time.Until(rateErr.RetryAfter).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "too_many_requests",
			Message: rateErr.Message,
			Code:    "RATE_LIMIT_EXCEEDED",
		})
		return false
	}

	logrus.WithError(err).WithField("ip", clientIP).Warn("Login throttle check failed")
	return true
}

func (h *AuthHandler) recordFailure(ctx context.Context, email, clientIP string) {
	if h.guard == nil {
		return
	}
	if err := h.guard.RecordFailure(ctx, email, clientIP); err != nil {
		logrus.WithError(err).WithField("ip", clientIP).Warn("Failed to record login failure")
	}
}
