package hours

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymflow/internal/api"
	"gymflow/internal/tz"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{
		service: service,
	}
}

// EffectiveHours handles GET /gyms/:gymID/hours?date=YYYY-MM-DD
func (h *Handler) EffectiveHours(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	date, err := tz.ParseDate(c.Query("date"))
	if err != nil {
		api.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	hours, err := h.service.Resolve(c.Request.Context(), gymID, date)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

func (h *Handler) HoursRange(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	days, err := h.service.ResolveRange(c.Request.Context(), gymID, start.Time, end.Time)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, days)
}

func (h *Handler) Weekly(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	rows, err := h.service.Weekly(c.Request.Context(), gymID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *Handler) UpdateWeekly(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	weekday, err := strconv.Atoi(c.Param("weekday"))
	if err != nil {
		api.BadRequest(c, "invalid weekday")
		return
	}

	var req UpdateWeeklyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	row, err := h.service.UpdateWeekly(c.Request.Context(), gymID, weekday, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *Handler) ListSpecial(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	start, end, ok := dateRange(c)
	if !ok {
		return
	}

	rows, err := h.service.ListSpecial(c.Request.Context(), gymID, start.Time, end.Time)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *Handler) CreateSpecial(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var req SpecialHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	row, err := h.service.CreateSpecial(c.Request.Context(), gymID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, row)
}

func (h *Handler) UpdateSpecial(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	id, ok := api.IntParam(c, "id")
	if !ok {
		return
	}

	var req SpecialHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	row, err := h.service.UpdateSpecial(c.Request.Context(), gymID, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *Handler) DeleteSpecial(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	id, ok := api.IntParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteSpecial(c.Request.Context(), gymID, id); err != nil {
		api.RespondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func dateRange(c *gin.Context) (Date, Date, bool) {
	start, err := tz.ParseDate(c.Query("start"))
	if err != nil {
		api.BadRequest(c, "start must be YYYY-MM-DD")
		return Date{}, Date{}, false
	}
	end, err := tz.ParseDate(c.Query("end"))
	if err != nil {
		api.BadRequest(c, "end must be YYYY-MM-DD")
		return Date{}, Date{}, false
	}
	return Date{start}, Date{end}, true
}
