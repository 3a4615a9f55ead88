package gym

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestHandler_GetGym(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockRepo := new(MockRepository)
	mockRepo.On("GetGymByID", mock.Anything, 1).Return(&Gym{ID: 1, Name: "Gym A", Timezone: "UTC"}, nil)
	mockRepo.On("GetGymByID", mock.Anything, 2).Return(nil, notFound())

	router := gin.New()
	router.GET("/gyms/:gymID", NewHandler(NewService(mockRepo)).GetGym)

	tests := []struct {
		path string
		want int
	}{
		{"/gyms/1", http.StatusOK},
		{"/gyms/2", http.StatusNotFound},
		{"/gyms/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
}
