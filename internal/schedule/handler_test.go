package schedule

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupRouter(repo *MockRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestService(repo, nil))

	router := gin.New()
	g := router.Group("/gyms/:gymID/sessions")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/recurring", h.CreateRecurring)
	g.GET("/:sessionID", h.Get)
	g.PUT("/:sessionID", h.Update)
	g.POST("/:sessionID/cancel", h.Cancel)
	g.POST("/:sessionID/complete", h.Complete)
	g.GET("/:sessionID/availability", h.Availability)
	g.POST("/:sessionID/reconcile", h.Reconcile)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepository)
	start := time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)
	repo.On("Create", mock.Anything, mock.Anything).Return(row(10, start), nil)
	router := setupRouter(repo)

	w := serve(router, "POST", "/gyms/1/sessions", `{"class_id":4,"trainer_id":7,"start_time":"2025-07-04T14:00:00"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "2025-07-04T14:00:00", body["start_local"])
	assert.Equal(t, "2025-07-04T20:00:00Z", body["start_time"])
	assert.Equal(t, float64(2), body["capacity"])

	w = serve(router, "POST", "/gyms/1/sessions", `{"class_id":4,"trainer_id":7,"start_time":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, "POST", "/gyms/1/sessions", `{"class_id":4,"trainer_id":7,"start_time":"2025-07-06T10:00:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_INVALID")
}

func TestHandler_GetNotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 1, 99).Return(nil, noRows)
	router := setupRouter(repo)

	w := serve(router, "GET", "/gyms/1/sessions/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_NOT_FOUND")

	assert.Equal(t, http.StatusBadRequest, serve(router, "GET", "/gyms/1/sessions/abc", "").Code)
}

func TestHandler_Availability(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 1, 10).Return(row(10, time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)), nil)
	repo.On("CountRegistered", mock.Anything, 10).Return(1, nil)
	router := setupRouter(repo)

	w := serve(router, "GET", "/gyms/1/sessions/10/availability", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body Availability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.AvailableSpots)
	assert.False(t, body.IsFull)
	assert.Equal(t, "Spin", body.ClassName)
}

func TestHandler_CancelNotScheduled(t *testing.T) {
	repo := new(MockRepository)
	done := row(10, time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC))
	done.Status = StatusCompleted
	repo.On("LockSession", mock.Anything, 1, 10).Return(done, nil)
	router := setupRouter(repo)

	w := serve(router, "POST", "/gyms/1/sessions/10/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_NOT_SCHEDULED")
}

func TestHandler_Reconcile(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 1, 10).Return(row(10, time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)), nil)
	repo.On("RecomputeParticipants", mock.Anything, 10).Return(2, nil)
	router := setupRouter(repo)

	w := serve(router, "POST", "/gyms/1/sessions/10/reconcile", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"session_id":10,"current_participants":2}`, w.Body.String())

	repo.On("Get", mock.Anything, 2, 10).Return(nil, noRows)
	w = serve(router, "POST", "/gyms/2/sessions/10/reconcile", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListBadStatus(t *testing.T) {
	router := setupRouter(new(MockRepository))

	w := serve(router, "GET", "/gyms/1/sessions?status=pending", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
