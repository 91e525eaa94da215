package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"github.com/momo0222/momail-backend/internal/services"
)

// DemoHandler injects simulated mail into the demo provider. Only
// registered when the server runs in demo mode.
type DemoHandler struct {
	provider   *mail.DemoProvider
	logService *services.LogService
}

// NewDemoHandler creates a new DemoHandler instance
func NewDemoHandler(provider *mail.DemoProvider, logService *services.LogService) *DemoHandler {
	return &DemoHandler{
		provider:   provider,
		logService: logService,
	}
}

// SimulateRequest represents an injected demo message
type SimulateRequest struct {
	From    string `json:"from" binding:"required"`
	Name    string `json:"name"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// Simulate injects one unread message into the simulated mailbox
// POST /api/demo/simulate
func (h *DemoHandler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "from, subject and body are required",
			},
		})
		return
	}

	id := h.provider.SimulateIncoming(req.From, req.Name, req.Subject, req.Body)
	h.logService.LogInfo(models.LogModuleAPI, "simulate", "Demo message injected", map[string]interface{}{
		"message_id": id,
		"from":       req.From,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message_id": id},
	})
}

// ListSent returns outgoing mail recorded by the demo provider
// GET /api/demo/sent
func (h *DemoHandler) ListSent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"sent": h.provider.Sent()},
	})
}
