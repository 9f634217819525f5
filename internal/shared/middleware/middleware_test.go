package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtpkg "themepark-backend/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(manager *jwtpkg.Manager) *gin.Engine {
	r := gin.New()
	auth := AuthMiddleware(manager)

	r.GET("/me", auth, func(c *gin.Context) {
		actor, err := GetActor(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"visitor_id": actor.VisitorID, "is_admin": actor.IsAdmin})
	})
	r.GET("/admin", auth, AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func doRequest(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	manager := jwtpkg.NewManager("test-secret", time.Hour)
	r := newAuthRouter(manager)

	visitorID := uuid.New()
	visitorToken, err := manager.GenerateAccessToken(visitorID.String(), jwtpkg.RoleVisitor)
	require.NoError(t, err)
	adminToken, err := manager.GenerateAccessToken(uuid.NewString(), jwtpkg.RoleAdmin)
	require.NoError(t, err)
	badSubject, err := manager.GenerateAccessToken("not-a-uuid", jwtpkg.RoleVisitor)
	require.NoError(t, err)
	foreign, err := jwtpkg.NewManager("other-secret", time.Hour).GenerateAccessToken(visitorID.String(), jwtpkg.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", http.StatusUnauthorized},
		{"not a bearer token", "/me", "Token " + visitorToken, http.StatusUnauthorized},
		{"signed with another secret", "/me", "Bearer " + foreign, http.StatusUnauthorized},
		{"visitor id is not a uuid", "/me", "Bearer " + badSubject, http.StatusUnauthorized},
		{"visitor", "/me", "Bearer " + visitorToken, http.StatusOK},
		{"visitor on admin route", "/admin", "Bearer " + visitorToken, http.StatusForbidden},
		{"admin on admin route", "/admin", "Bearer " + adminToken, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.path, tt.header)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestGetActor(t *testing.T) {
	manager := jwtpkg.NewManager("test-secret", time.Hour)
	r := newAuthRouter(manager)

	visitorID := uuid.New()
	token, err := manager.GenerateAccessToken(visitorID.String(), jwtpkg.RoleAdmin)
	require.NoError(t, err)

	w := doRequest(r, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"visitor_id":"`+visitorID.String()+`","is_admin":true}`, w.Body.String())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err = GetActor(c)
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)

	r := gin.New()
	r.Use(ClientIPMiddleware(), RateLimit(limiter))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("203.0.113.7"))
	assert.Equal(t, http.StatusOK, call("203.0.113.7"))
	assert.Equal(t, http.StatusTooManyRequests, call("203.0.113.7"))

	// separate bucket per client
	assert.Equal(t, http.StatusOK, call("203.0.113.8"))
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	limiter.get("a", start)
	limiter.get("b", start.Add(time.Minute))
	limiter.get("c", start.Add(limiter.idleTTL+30*time.Second))

	_, hasA := limiter.limiters["a"]
	_, hasB := limiter.limiters["b"]
	assert.False(t, hasA)
	assert.True(t, hasB)
	assert.Len(t, limiter.limiters, 2)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), RequestID())
	r.GET("/boom", func(c *gin.Context) { panic("ticket printer on fire") })
	r.GET("/late-boom", func(c *gin.Context) {
		c.Status(http.StatusAccepted)
		c.Writer.WriteHeaderNow()
		panic("after headers")
	})
	r.GET("/abort", func(c *gin.Context) { panic(http.ErrAbortHandler) })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"SYS500"`)
	assert.NotContains(t, w.Body.String(), "printer")

	req = httptest.NewRequest(http.MethodGet, "/late-boom", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/abort", nil)
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		r.ServeHTTP(httptest.NewRecorder(), req)
	})
}
