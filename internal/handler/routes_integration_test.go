package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/eduportal-api/internal/middleware"
	"github.com/noah-isme/eduportal-api/internal/models"
)

func TestRoutesIntegration(t *testing.T) {
	router := buildTestRouter()

	t.Run("calendar open to students", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/classes/c1/sessions", nil)
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"upcoming"`)
	})

	t.Run("calendar unauthorized", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/classes/c1/sessions", nil)
		resp := performRequest(router, req)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("students cannot create sessions", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/api/v1/classes/c1/sessions", bytes.NewBufferString(`{"title":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleStudent))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusForbidden, resp.Code)
	})

	t.Run("teacher saves attendance", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, "/api/v1/classes/c1/attendance", bytes.NewBufferString(`{"entries":[{"studentId":"s","date":"2024-03-04","status":"PRESENT"}]}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Test-Role", string(models.RoleTeacher))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"created":1`)
	})

	t.Run("admin deletes a recurrence group", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, "/api/v1/recurrence-groups/g-1", nil)
		req.Header.Set("X-Test-Role", string(models.RoleAdmin))
		resp := performRequest(router, req)
		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"deletedIds"`)
	})
}

func buildTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	fakeAuth := func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "test-user", Role: models.UserRole(role)})
		c.Next()
	}

	Routes{
		Sessions:   NewSessionHandler(&sessionServiceMock{}),
		Attendance: NewAttendanceHandler(&attendanceServiceMock{}),
		Auth:       fakeAuth,
		Logger:     zap.NewNop(),
	}.Register(router.Group("/api/v1"))
	return router
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
