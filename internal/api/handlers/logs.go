package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/services"
)

// LogsHandler exposes the activity log
type LogsHandler struct {
	logService *services.LogService
}

// NewLogsHandler creates a new LogsHandler instance
func NewLogsHandler(logService *services.LogService) *LogsHandler {
	return &LogsHandler{logService: logService}
}

// ListLogs returns recent activity log entries
// GET /api/logs
func (h *LogsHandler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	opts := services.LogListOptions{
		Module: c.Query("module"),
		Level:  c.Query("level"),
		Limit:  limit,
		Offset: offset,
	}

	logs, err := h.logService.ListLogs(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve logs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"logs": logs},
	})
}
