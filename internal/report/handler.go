package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (h *Handler) RosterXLSX(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	export, err := h.service.RosterWorkbook(c.Request.Context(), gymID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.FileName)
	c.Data(http.StatusOK, xlsxContentType, export.Data)
}
