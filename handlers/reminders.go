package handlers

import (
	"net/http"

	"revenue-svc/middleware"
	"revenue-svc/reminder"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	scheduler *reminder.Scheduler
	logger    *zap.Logger
}

func NewReminderHandler(scheduler *reminder.Scheduler, logger *zap.Logger) *ReminderHandler {
	return &ReminderHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// RunReminders is the scheduler entry point, hit by the external cron.
func (h *ReminderHandler) RunReminders(c *gin.Context) {
	total, err := h.scheduler.Run(c.Request.Context())
	if err != nil {
		traceID := middleware.GetTraceID(c.Request.Context())
		h.logger.Error("Reminder run failed", zap.String("trace_id", traceID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reminder run failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_reminders_sent": total})
}
