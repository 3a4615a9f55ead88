package checkin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// CheckIn is called by the front-desk scanner. Rejections carry the status
// of their error kind with a success=false body.
func (h *Handler) CheckIn(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	res, err := h.service.ProcessCheckIn(c.Request.Context(), gymID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(res.Status(), res)
}

func (h *Handler) MyToken(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return
	}

	token, err := h.service.Token(c.Request.Context(), gymID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, token)
}
