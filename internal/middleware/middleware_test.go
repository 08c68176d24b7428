package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/eduportal-api/internal/models"
	appErrors "github.com/noah-isme/eduportal-api/pkg/errors"
)

type tokenValidatorStub struct {
	claims *models.JWTClaims
	token  string
}

func (s tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != s.token {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observerStub struct {
	paths    []string
	statuses []int
}

func (s *observerStub) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.paths = append(s.paths, path)
	s.statuses = append(s.statuses, status)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(claims *models.JWTClaims, roles ...models.UserRole) *gin.Engine {
	r := gin.New()
	r.GET("/classes/:classId", JWT(tokenValidatorStub{claims: claims, token: "good"}), RequireRoles(roles...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/classes/class-1", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAndRoles(t *testing.T) {
	teacher := &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher}
	student := &models.JWTClaims{UserID: "s1", Role: models.RoleStudent}

	assert.Equal(t, http.StatusUnauthorized, serve(protectedRouter(teacher, SessionEditors...), "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(protectedRouter(teacher, SessionEditors...), "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(protectedRouter(teacher, SessionEditors...), "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, serve(protectedRouter(teacher, SessionEditors...), "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(protectedRouter(student, SessionEditors...), "bearer good").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	obs := &observerStub{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/classes/:classId", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	serve(r, "")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"/classes/:classId", "unmatched"}, obs.paths)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusNotFound}, obs.statuses)
}

func TestResponseMeta(t *testing.T) {
	r := gin.New()
	r.Use(ResponseMeta())
	r.GET("/x", func(c *gin.Context) {
		MarkCached(c, true)
		c.JSON(http.StatusOK, gin.H{"meta": Meta(c)})
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var body struct {
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"cached": true}, body.Meta)
}

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})
		c.Next()
	})
	r.DELETE("/sessions/:id", Audit(zap.New(core), "delete", "class_session"), func(c *gin.Context) {
		if c.Param("id") == "missing" {
			_ = c.Error(errors.New("not found"))
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	})

	for _, id := range []string{"s-1", "missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	}

	entries := logs.FilterMessage("audit").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "s-1", fields["param_id"])
	assert.Equal(t, "t1", fields["user_id"])
	assert.Equal(t, "class_session", fields["resource"])
}
