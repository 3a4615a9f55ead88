package gym

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// GetGym returns the caller's gym, including its timezone.
func (h *Handler) GetGym(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	gym, err := h.service.GetGym(c.Request.Context(), gymID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gym)
}
