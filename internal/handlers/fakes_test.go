package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safeqr/emergency-backend/internal/middleware"
	"github.com/safeqr/emergency-backend/internal/models"
	"github.com/safeqr/emergency-backend/internal/services"
	"github.com/stretchr/testify/require"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asUser stands in for AuthMiddleware
func asUser(user middleware.UserContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, user)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 14)")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

type auditCall struct {
	Action  string
	Success bool
	Email   string
}

type fakeAudit struct {
	calls []auditCall
	err   error
}

func (f *fakeAudit) LogSOSTrigger(ctx context.Context, incident *models.Incident, alertsSent, totalContacts int, ipAddress, userAgent string) error {
	f.calls = append(f.calls, auditCall{Action: services.ActionSOSTriggered, Success: alertsSent > 0})
	return f.err
}

func (f *fakeAudit) LogLogin(ctx context.Context, actorID, orgID *uuid.UUID, role, email string, success bool, ipAddress, userAgent string) error {
	action := services.ActionLoginFailed
	if success {
		action = services.ActionLoginSuccess
	}
	f.calls = append(f.calls, auditCall{Action: action, Success: success, Email: email})
	return f.err
}

func (f *fakeAudit) LogQRRegenerated(ctx context.Context, orgID, employeeID uuid.UUID, ipAddress, userAgent string) error {
	f.calls = append(f.calls, auditCall{Action: services.ActionQRRegenerated, Success: true})
	return f.err
}

func (f *fakeAudit) LogAccountDeleted(ctx context.Context, orgID uuid.UUID, ipAddress, userAgent string) error {
	f.calls = append(f.calls, auditCall{Action: services.ActionAccountDeleted, Success: true})
	return f.err
}
