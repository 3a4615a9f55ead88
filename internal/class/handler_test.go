package class

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupRouter(repo *MockRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(repo, nil, time.Minute))

	router := gin.New()
	router.GET("/gyms/:gymID/classes", h.List)
	router.POST("/gyms/:gymID/classes", h.Create)
	router.GET("/gyms/:gymID/classes/:classID", h.Get)
	router.PUT("/gyms/:gymID/classes/:classID", h.Update)
	router.DELETE("/gyms/:gymID/classes/:classID", h.Delete)
	return router
}

func serve(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_Create(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(spin(), nil)
	router := setupRouter(repo)

	w := serve(router, "POST", "/gyms/1/classes", `{"name":"Spin","duration":45,"max_capacity":2,"category":"spinning"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, "POST", "/gyms/1/classes", `{"name":"Spin","duration":45,"max_capacity":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetNotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 1, 9).Return(nil, noRows)
	router := setupRouter(repo)

	w := serve(router, "GET", "/gyms/1/classes/9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CLASS_NOT_FOUND")
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepository)
	repo.On("List", mock.Anything, 1, ListFilter{Category: CategorySpinning, ActiveOnly: true, Limit: 10}).Return([]Class{*spin()}, nil)
	router := setupRouter(repo)

	w := serve(router, "GET", "/gyms/1/classes?category=spinning&active_only=true&limit=10", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Spin"`)
}

func TestHandler_Delete(t *testing.T) {
	repo := new(MockRepository)
	repo.On("Get", mock.Anything, 1, 4).Return(spin(), nil)
	repo.On("HasSessions", mock.Anything, 1, 4).Return(true, nil)
	repo.On("Deactivate", mock.Anything, 1, 4).Return(nil)
	router := setupRouter(repo)

	w := serve(router, "DELETE", "/gyms/1/classes/4", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":4,"deleted":false,"deactivated":true}`, w.Body.String())
}
