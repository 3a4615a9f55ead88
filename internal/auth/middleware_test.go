package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearer(t *testing.T, userID, gymID int, scopes ...string) string {
	t.Helper()
	token, err := GenerateToken(userID, gymID, scopes, testIssuer, testSecret, AccessTokenTTL)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestAuthMiddlewareHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"Empty header", "", http.StatusUnauthorized},
		{"Invalid format", "Token abc", http.StatusUnauthorized},
		{"Empty token", "Bearer ", http.StatusUnauthorized},
		{"Garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("GET", "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			c.Request = req

			handler := AuthMiddleware(testIssuer, testSecret)
			handler(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(testIssuer, testSecret)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		id, _ := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id.UserID})
	})
	router.GET("/gyms/:gymID/x", chain...)
	return router
}

func do(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	req.Header.Set("Authorization", authorization)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_SetsIdentity(t *testing.T) {
	w := do(newRouter(), "/gyms/3/x", bearer(t, 9, 3))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":9}`, w.Body.String())
}

func TestRequireGym(t *testing.T) {
	router := newRouter(RequireGym())

	assert.Equal(t, http.StatusOK, do(router, "/gyms/3/x", bearer(t, 9, 3)).Code)
	assert.Equal(t, http.StatusNotFound, do(router, "/gyms/4/x", bearer(t, 9, 3)).Code)
	assert.Equal(t, http.StatusNotFound, do(router, "/gyms/abc/x", bearer(t, 9, 3)).Code)
}

func TestRequireScope(t *testing.T) {
	router := newRouter(RequireScope(ScopeScheduleWrite))

	assert.Equal(t, http.StatusOK, do(router, "/gyms/3/x", bearer(t, 9, 3, ScopeScheduleWrite)).Code)
	assert.Equal(t, http.StatusForbidden, do(router, "/gyms/3/x", bearer(t, 9, 3, ScopeAttendanceWrite)).Code)
	assert.Equal(t, http.StatusForbidden, do(router, "/gyms/3/x", bearer(t, 9, 3)).Code)
}

func TestRequireScope_WithoutIdentity(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	RequireScope(ScopeGymAdmin)(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	_, ok := GetUserID(c)
	assert.False(t, ok)
}
