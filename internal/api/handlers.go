package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"maintenance-service/internal/db"
	"maintenance-service/internal/dispatch"
	"maintenance-service/internal/escalation"
	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/schedule"
)

type Handler struct {
	db        *db.DB
	scheduler *schedule.Scheduler
	detector  *schedule.OverdueDetector
	engine    *escalation.Engine
	ws        *dispatch.WSManager
	logger    *logging.Logger
}

func NewHandler(db *db.DB, scheduler *schedule.Scheduler, detector *schedule.OverdueDetector, engine *escalation.Engine, ws *dispatch.WSManager, logger *logging.Logger) *Handler {
	return &Handler{
		db:        db,
		scheduler: scheduler,
		detector:  detector,
		engine:    engine,
		ws:        ws,
		logger:    logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type triggerScheduleRequest struct {
	AssetIDs []string `json:"asset_ids,omitempty"`
}

// TriggerSchedule runs the scheduling sweep, optionally restricted to a
// subset of assets.
func (h *Handler) TriggerSchedule(c *gin.Context) {
	var req triggerScheduleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	ids := make([]uuid.UUID, 0, len(req.AssetIDs))
	for _, raw := range req.AssetIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset ID: " + raw})
			return
		}
		ids = append(ids, id)
	}

	result, err := h.scheduler.ScheduleDue(c.Request.Context(), ids...)
	if err != nil {
		h.logger.Errorf("Manual scheduling sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scheduling sweep failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriggerOverdue runs the overdue sweep.
func (h *Handler) TriggerOverdue(c *gin.Context) {
	n, err := h.detector.SweepOverdue(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Errorf("Manual overdue sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Overdue sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitioned": n})
}

// TriggerEscalation runs the escalation sweep.
func (h *Handler) TriggerEscalation(c *gin.Context) {
	notifications, err := h.engine.Evaluate(c.Request.Context(), time.Now())
	if err != nil {
		h.logger.Errorf("Manual escalation sweep failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Escalation sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": len(notifications), "notifications": notifications})
}

type scheduleTaskRequest struct {
	AssetID    string          `json:"asset_id" binding:"required"`
	Kind       models.TaskKind `json:"kind" binding:"required"`
	Date       string          `json:"date" binding:"required"` // YYYY-MM-DD
	AssigneeID *int            `json:"assignee_id,omitempty"`
	TemplateID *string         `json:"template_id,omitempty"`
}

// ScheduleTask is the manual, single-task scheduling path.
func (h *Handler) ScheduleTask(c *gin.Context) {
	var req scheduleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid asset_id"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}
	var templateID *uuid.UUID
	if req.TemplateID != nil {
		id, err := uuid.Parse(*req.TemplateID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template_id"})
			return
		}
		templateID = &id
	}

	task, err := h.scheduler.ScheduleOne(c.Request.Context(), assetID, req.Kind, date, req.AssigneeID, templateID)
	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) || errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Errorf("Manual scheduling failed for asset %s: %v", assetID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to schedule task"})
		return
	}
	c.JSON(http.StatusCreated, task)
}

// ListOverdueTasks returns all Overdue tasks, optionally filtered by kind.
func (h *Handler) ListOverdueTasks(c *gin.Context) {
	var kind *models.TaskKind
	if k := c.Query("kind"); k != "" {
		tk := models.TaskKind(k)
		kind = &tk
	}
	tasks, err := h.db.ListOverdue(c.Request.Context(), kind)
	if err != nil {
		h.logger.Errorf("Failed to list overdue tasks: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list overdue tasks"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// ListTaskEscalations returns a task's escalation history.
func (h *Handler) ListTaskEscalations(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}
	records, err := h.db.ListEscalationsByTask(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Errorf("Failed to list escalations for task %s: %v", taskID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list escalations"})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req models.EscalationRuleCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for rule: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if *req.DaysOverdue < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days_overdue must be >= 0"})
		return
	}

	rule := models.EscalationRule{
		EntityType:      req.EntityType,
		DaysOverdue:     *req.DaysOverdue,
		EscalationLevel: req.EscalationLevel,
		NotifyUserIDs:   req.NotifyUserIDs,
		IsActive:        true,
	}
	if err := h.db.CreateRule(c.Request.Context(), &rule); err != nil {
		h.logger.Errorf("Failed to create rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}
	h.logger.Infof("Created escalation rule %s (%s, level %d at %d days)", rule.ID, rule.EntityType, rule.EscalationLevel, rule.DaysOverdue)
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.db.ListRules(c.Request.Context())
	if err != nil {
		h.logger.Errorf("Failed to list rules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rules"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) GetRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}
	rule, err := h.db.GetRule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		h.logger.Errorf("Failed to get rule %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}
	var upd models.EscalationRuleUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	rule, err := h.db.UpdateRule(c.Request.Context(), id, upd)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		h.logger.Errorf("Failed to update rule %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}
	if err := h.db.DeleteRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		h.logger.Errorf("Failed to delete rule %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *Handler) GetNotificationsByUserID(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, err := h.db.ListNotificationsByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Errorf("Failed to get notifications for user_id %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}
	userID, err := strconv.Atoi(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	if err := h.db.MarkNotificationRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		h.logger.Errorf("Failed to mark notification %s read: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark notification read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscribe upgrades the connection and registers it for in-app push.
func (h *Handler) Subscribe(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed for user %d: %v", userID, err)
		return
	}
	h.ws.AddConnection(userID, conn)

	go func() {
		defer func() {
			h.ws.RemoveConnection(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
