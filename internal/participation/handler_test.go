package participation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymflow/internal/auth"
)

const (
	testIssuer = "gymflow-identity"
	testSecret = "test-secret"
)

func setupRouter(store *fakeStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestService(store, nil, nil, morning))

	router := gin.New()
	g := router.Group("/gyms/:gymID", auth.AuthMiddleware(testIssuer, testSecret), auth.RequireGym())
	g.POST("/sessions/:sessionID/register", h.Register)
	g.POST("/sessions/:sessionID/unregister", h.Unregister)
	g.POST("/sessions/:sessionID/attendance", auth.RequireScope(auth.ScopeAttendanceWrite), h.MarkAttendance)
	g.POST("/sessions/:sessionID/no-show", auth.RequireScope(auth.ScopeAttendanceWrite), h.MarkNoShow)
	g.GET("/sessions/:sessionID/participants", auth.RequireScope(auth.ScopeAttendanceWrite), h.Participants)
	g.GET("/me/participations", h.MyParticipations)
	g.GET("/me/last-attendance", h.MyLastAttendance)
	g.GET("/me/dashboard", h.MyDashboard)
	return router
}

func serveAs(t *testing.T, router *gin.Engine, method, path, body string, userID int, scopes ...string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.GenerateToken(userID, 1, scopes, testIssuer, testSecret, time.Hour)
	require.NoError(t, err)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_RegisterAndUnregister(t *testing.T) {
	store := newFakeStore(sessionRow(10, 1))
	router := setupRouter(store)

	w := serveAs(t, router, "POST", "/gyms/1/sessions/10/register", "", 1)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p Participation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, StatusRegistered, p.Status)

	w = serveAs(t, router, "POST", "/gyms/1/sessions/10/register", "", 2)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_FULL")

	w = serveAs(t, router, "POST", "/gyms/1/sessions/10/unregister", `{"reason":"late shift"}`, 1)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "late shift")

	w = serveAs(t, router, "POST", "/gyms/1/sessions/10/unregister", "", 1)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_REGISTERED")
}

func TestHandler_OtherGymIsNotFound(t *testing.T) {
	router := setupRouter(newFakeStore(sessionRow(10, 1)))

	w := serveAs(t, router, "POST", "/gyms/2/sessions/10/register", "", 1)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_MarkAttendanceNeedsScope(t *testing.T) {
	store := newFakeStore(sessionRow(10, 3))
	router := setupRouter(store)
	require.Equal(t, http.StatusCreated, serveAs(t, router, "POST", "/gyms/1/sessions/10/register", "", 5).Code)

	w := serveAs(t, router, "POST", "/gyms/1/sessions/10/attendance", `{"member_id":5}`, 9)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serveAs(t, router, "POST", "/gyms/1/sessions/10/attendance", `{"member_id":5}`, 9, auth.ScopeAttendanceWrite)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"attended"`)

	w = serveAs(t, router, "POST", "/gyms/1/sessions/10/no-show", `{}`, 9, auth.ScopeAttendanceWrite)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveAs(t, router, "GET", "/gyms/1/sessions/10/participants", "", 9, auth.ScopeAttendanceWrite)
	require.Equal(t, http.StatusOK, w.Code)
	var roster []RosterEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	assert.Len(t, roster, 1)
}

func TestHandler_MeViews(t *testing.T) {
	router := setupRouter(newFakeStore(sessionRow(10, 3)))

	w := serveAs(t, router, "GET", "/gyms/1/me/last-attendance", "", 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"last_attendance":null}`, w.Body.String())

	w = serveAs(t, router, "GET", "/gyms/1/me/participations", "", 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = serveAs(t, router, "GET", "/gyms/1/me/dashboard", "", 1)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"upcoming_registrations":0`)
}
