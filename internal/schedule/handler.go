package schedule

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

func ids(c *gin.Context) (gymID, sessionID int, ok bool) {
	if gymID, ok = api.IntParam(c, "gymID"); !ok {
		return 0, 0, false
	}
	if sessionID, ok = api.IntParam(c, "sessionID"); !ok {
		return 0, 0, false
	}
	return gymID, sessionID, true
}

func (h *Handler) Create(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	session, err := h.service.Create(c.Request.Context(), gymID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *Handler) CreateRecurring(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var req RecurringSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	result, err := h.service.CreateRecurring(c.Request.Context(), gymID, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	session, err := h.service.Get(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) List(c *gin.Context) {
	gymID, ok := api.IntParam(c, "gymID")
	if !ok {
		return
	}

	var q ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.RespondBindError(c, err)
		return
	}

	sessions, err := h.service.List(c.Request.Context(), gymID, q)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) Update(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	var req UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	session, err := h.service.Update(c.Request.Context(), gymID, id, req)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) Cancel(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	session, err := h.service.Cancel(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) Complete(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	session, err := h.service.Complete(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *Handler) Availability(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	availability, err := h.service.Availability(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, availability)
}

type ReconcileResponse struct {
	SessionID           int `json:"session_id"`
	CurrentParticipants int `json:"current_participants"`
}

// Reconcile rewrites the session's participant counter from its REGISTERED rows.
func (h *Handler) Reconcile(c *gin.Context) {
	gymID, id, ok := ids(c)
	if !ok {
		return
	}

	n, err := h.service.UpdateParticipantCount(c.Request.Context(), gymID, id)
	if err != nil {
		api.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReconcileResponse{SessionID: id, CurrentParticipants: n})
}
