package participation

import (
	"context"
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

func caller(c *gin.Context) (gymID, userID int, ok bool) {
	if gymID, ok = api.IntParam(c, "gymID"); !ok {
		return 0, 0, false
	}
	if userID, ok = auth.GetUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Unauthorized", Code: "UNAUTHORIZED"})
		return 0, 0, false
	}
	return gymID, userID, true
}

func (h *Handler) Register(c *gin.Context) {
	gymID, userID, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	p, err := h.service.Register(c.Request.Context(), gymID, userID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Unregister(c *gin.Context) {
	gymID, userID, ok := caller(c)
	if !ok {
		return
	}
	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			api.RespondBindError(c, err)
			return
		}
	}

	p, err := h.service.Cancel(c.Request.Context(), gymID, userID, sessionID, req.Reason)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	h.markMember(c, h.service.MarkAttendance)
}

func (h *Handler) MarkNoShow(c *gin.Context) {
	h.markMember(c, h.service.MarkNoShow)
}

func (h *Handler) markMember(c *gin.Context, mark func(ctx context.Context, gymID, memberID, sessionID int) (*Participation, error)) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	var req MemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	p, err := mark(c.Request.Context(), gymID, req.MemberID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Participants(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}
	sessionID, ok := api.IntParam(c, "sessionID")
	if !ok {
		return
	}

	roster, err := h.service.Roster(c.Request.Context(), gymID, sessionID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

func (h *Handler) MyParticipations(c *gin.Context) {
	gymID, userID, ok := caller(c)
	if !ok {
		return
	}

	var f HistoryFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		api.RespondBindError(c, err)
		return
	}

	history, err := h.service.History(c.Request.Context(), gymID, userID, f)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, history)
}

func (h *Handler) MyLastAttendance(c *gin.Context) {
	gymID, userID, ok := caller(c)
	if !ok {
		return
	}

	last, err := h.service.LastAttendance(c.Request.Context(), gymID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"last_attendance": last})
}

func (h *Handler) MyDashboard(c *gin.Context) {
	gymID, userID, ok := caller(c)
	if !ok {
		return
	}

	dashboard, err := h.service.Dashboard(c.Request.Context(), gymID, userID)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}
