package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/middleware"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/safeqr/emergency-backend/pkg/validator"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondServiceError maps service sentinels to HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without its detail.
func respondServiceError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: "Resource not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: "Access denied"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "Invalid credentials"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error(), Code: "EMAIL_TAKEN"})
	case errors.Is(err, services.ErrEmployeeCodeTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error(), Code: "EMPLOYEE_ID_TAKEN"})
	case errors.Is(err, services.ErrIncorrectPassword):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_password", Message: "Password is incorrect"})
	case errors.Is(err, services.ErrInvalidStatus), errors.Is(err, validator.ErrInvalidBloodGroup),
		errors.Is(err, services.ErrInvalidContactPhone), errors.Is(err, services.ErrTooManyContacts):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error()})
	default:
		logrus.WithError(err).WithField("operation", operation).Error("Request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Something went wrong"})
	}
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request body: " + err.Error(),
	})
}

// uuidParam parses a path parameter, writing a 400 when it is malformed
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_id", Message: "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

// currentActor returns the caller set by AuthMiddleware
func currentActor(c *gin.Context) (services.Actor, bool) {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "User not authenticated"})
		return services.Actor{}, false
	}
	return services.Actor{ID: userCtx.ID, OrganizationID: userCtx.OrganizationID, Role: userCtx.Role}, true
}
