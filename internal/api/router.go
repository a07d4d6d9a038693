package api

import (
	"github.com/gin-gonic/gin"

	"maintenance-service/internal/config"
	"maintenance-service/internal/logging"
)

func NewRouter(cfg config.Config, logger *logging.Logger, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	r.GET("/health", h.Health)
	r.GET("/ws/:user_id", h.Subscribe)

	api := r.Group(cfg.API.BasePath)
	{
		// Manual sweep triggers (admin action path; same idempotent
		// operations the cron trigger drives)
		api.POST("/sweeps/schedule", h.TriggerSchedule)
		api.POST("/sweeps/overdue", h.TriggerOverdue)
		api.POST("/sweeps/escalation", h.TriggerEscalation)

		// Tasks
		api.POST("/tasks", h.ScheduleTask)
		api.GET("/tasks/overdue", h.ListOverdueTasks)
		api.GET("/tasks/:id/escalations", h.ListTaskEscalations)

		// Escalation rules
		api.POST("/escalation-rules", h.CreateRule)
		api.GET("/escalation-rules", h.ListRules)
		api.GET("/escalation-rules/:id", h.GetRule)
		api.PUT("/escalation-rules/:id", h.UpdateRule)
		api.DELETE("/escalation-rules/:id", h.DeleteRule)

		// Notifications
		api.GET("/notifications/user/:user_id", h.GetNotificationsByUserID)
		api.PUT("/notifications/:id/read", h.MarkNotificationRead)
	}
	return r
}
