package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/landsalelk/landsalelk-sub006/internal/services"
)

// TaskHandler exposes the periodic sweeps as on-demand service endpoints,
// mirroring the scheduled task bodies for manual or external triggering.
type TaskHandler struct {
	expiryService services.IExpiryService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(expiryService services.IExpiryService) *TaskHandler {
	return &TaskHandler{expiryService: expiryService}
}

// ExpireListings handles POST /v1/tasks/expire-listings.
func (h *TaskHandler) ExpireListings(c *gin.Context) {
	result, err := h.expiryService.ExpireListings(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"checked_at":        result.CheckedAt.Format(time.RFC3339),
		"expired_found":     result.Found,
		"expired_processed": result.Processed,
		"errors":            result.Errors,
	})
}

// ExpireSubscriptions handles POST /v1/tasks/expire-subscriptions.
func (h *TaskHandler) ExpireSubscriptions(c *gin.Context) {
	result, err := h.expiryService.ExpireSubscriptions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"checked_at":    result.CheckedAt.Format(time.RFC3339),
		"expired_found": result.Found,
		"deactivated":   result.Processed,
		"notified":      result.Notified,
		"errors":        result.Errors,
	})
}

// SendReminders handles POST /v1/tasks/send-reminders.
func (h *TaskHandler) SendReminders(c *gin.Context) {
	result, err := h.expiryService.RemindExpiring(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": result.Found,
		"sent":      result.Processed,
		"failed":    result.Errors,
	})
}
