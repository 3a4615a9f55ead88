package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gymflow/internal/auth"
	"gymflow/internal/checkin"
	"gymflow/internal/class"
	"gymflow/internal/config"
	"gymflow/internal/gym"
	"gymflow/internal/hours"
	"gymflow/internal/logger"
	"gymflow/internal/participation"
	"gymflow/internal/report"
	"gymflow/internal/schedule"
)

// Handlers groups every domain handler the router mounts.
type Handlers struct {
	Gym           *gym.Handler
	Hours         *hours.Handler
	Class         *class.Handler
	Schedule      *schedule.Handler
	Participation *participation.Handler
	CheckIn       *checkin.Handler
	Report        *report.Handler
	System        *SystemHandler
}

func NewRouter(cfg *config.Config, h Handlers, limiter *RateLimiter) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLoggingMiddleware(), MetricsMiddleware(), corsMiddleware())

	router.GET("/health", h.System.Health)
	router.GET("/metrics", Metrics())

	g := router.Group("/gyms/:gymID")
	g.Use(
		auth.AuthMiddleware(cfg.JWTIssuer, cfg.JWTSecret),
		auth.RequireGym(),
		limiter.Middleware(),
	)

	admin := auth.RequireScope(auth.ScopeGymAdmin)
	scheduleWrite := auth.RequireScope(auth.ScopeScheduleWrite)
	attendanceWrite := auth.RequireScope(auth.ScopeAttendanceWrite)

	g.GET("", h.Gym.GetGym)

	g.GET("/hours", h.Hours.EffectiveHours)
	g.GET("/hours/range", h.Hours.HoursRange)
	g.GET("/hours/weekly", h.Hours.Weekly)
	g.PUT("/hours/weekly/:weekday", admin, h.Hours.UpdateWeekly)
	g.GET("/hours/special", h.Hours.ListSpecial)
	g.POST("/hours/special", admin, h.Hours.CreateSpecial)
	g.PUT("/hours/special/:id", admin, h.Hours.UpdateSpecial)
	g.DELETE("/hours/special/:id", admin, h.Hours.DeleteSpecial)

	g.GET("/classes", h.Class.List)
	g.POST("/classes", scheduleWrite, h.Class.Create)
	g.GET("/classes/:classID", h.Class.Get)
	g.PUT("/classes/:classID", scheduleWrite, h.Class.Update)
	g.DELETE("/classes/:classID", scheduleWrite, h.Class.Delete)

	g.GET("/sessions", h.Schedule.List)
	g.POST("/sessions", scheduleWrite, h.Schedule.Create)
	g.POST("/sessions/recurring", scheduleWrite, h.Schedule.CreateRecurring)
	g.GET("/sessions/:sessionID", h.Schedule.Get)
	g.PUT("/sessions/:sessionID", scheduleWrite, h.Schedule.Update)
	g.POST("/sessions/:sessionID/cancel", scheduleWrite, h.Schedule.Cancel)
	g.POST("/sessions/:sessionID/complete", scheduleWrite, h.Schedule.Complete)
	g.POST("/sessions/:sessionID/reconcile", scheduleWrite, h.Schedule.Reconcile)
	g.GET("/sessions/:sessionID/availability", h.Schedule.Availability)

	g.POST("/sessions/:sessionID/register", h.Participation.Register)
	g.POST("/sessions/:sessionID/unregister", h.Participation.Unregister)
	g.POST("/sessions/:sessionID/attendance", attendanceWrite, h.Participation.MarkAttendance)
	g.POST("/sessions/:sessionID/no-show", attendanceWrite, h.Participation.MarkNoShow)
	g.GET("/sessions/:sessionID/participants", attendanceWrite, h.Participation.Participants)
	g.GET("/sessions/:sessionID/roster.xlsx", attendanceWrite, h.Report.RosterXLSX)

	g.GET("/me/participations", h.Participation.MyParticipations)
	g.GET("/me/last-attendance", h.Participation.MyLastAttendance)
	g.GET("/me/dashboard", h.Participation.MyDashboard)
	g.GET("/me/check-in-token", h.CheckIn.MyToken)

	g.POST("/check-in", attendanceWrite, h.CheckIn.CheckIn)

	return router
}

// Server owns the HTTP listener.
type Server struct {
	http *http.Server
}

func New(cfg *config.Config, router *gin.Engine) *Server {
	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves in the background; a listener failure is logged.
func (s *Server) Start() {
	go func() {
		logger.Info("Server starting", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down server")
	return s.http.Shutdown(ctx)
}
