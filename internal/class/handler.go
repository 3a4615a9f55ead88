package class

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

func (h *Handler) Create(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var req CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	class, err := h.service.Create(c.Request.Context(), gymID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, class)
}

func (h *Handler) Get(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	id, ok := api.IntParam(c, "classID")
	if !ok {
		return
	}

	class, err := h.service.Get(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

func (h *Handler) List(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var f ListFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		api.RespondBindError(c, err)
		return
	}

	classes, err := h.service.List(c.Request.Context(), gymID, f)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, classes)
}

func (h *Handler) Update(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	id, ok := api.IntParam(c, "classID")
	if !ok {
		return
	}

	var req UpdateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	class, err := h.service.Update(c.Request.Context(), gymID, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, class)
}

func (h *Handler) Delete(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	id, ok := api.IntParam(c, "classID")
	if !ok {
		return
	}

	result, err := h.service.Delete(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
