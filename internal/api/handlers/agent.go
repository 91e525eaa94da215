package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/services"
)

// AgentHandler handles triage agent lifecycle and chat requests
type AgentHandler struct {
	agentService  *services.AgentService
	actionService *services.ActionService
	emailService  *services.EmailService
	chatService   *services.ChatService
	logService    *services.LogService
}

// NewAgentHandler creates a new AgentHandler instance
func NewAgentHandler(agentService *services.AgentService, actionService *services.ActionService, emailService *services.EmailService, chatService *services.ChatService, logService *services.LogService) *AgentHandler {
	return &AgentHandler{
		agentService:  agentService,
		actionService: actionService,
		emailService:  emailService,
		chatService:   chatService,
		logService:    logService,
	}
}

// ProposeRequest represents the request to manually triage one message
type ProposeRequest struct {
	MessageID string `json:"message_id" binding:"required"`
}

// ChatRequest represents a natural-language mailbox request
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Start launches the background triage loop
// POST /api/agent/start
func (h *AgentHandler) Start(c *gin.Context) {
	if err := h.agentService.Start(); err != nil {
		if errors.Is(err, services.ErrAgentAlreadyRunning) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AGENT_RUNNING",
					"message": "Agent is already running",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to start agent",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent started",
	})
}

// Stop signals the triage loop to exit
// POST /api/agent/stop
func (h *AgentHandler) Stop(c *gin.Context) {
	if err := h.agentService.Stop(); err != nil {
		if errors.Is(err, services.ErrAgentNotRunning) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "AGENT_NOT_RUNNING",
					"message": "Agent is not running",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to stop agent",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Agent stopped",
	})
}

// GetStatus reports whether the loop is running plus ledger and
// mailbox counts
// GET /api/agent/status
func (h *AgentHandler) GetStatus(c *gin.Context) {
	actionStats, err := h.actionService.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute status",
			},
		})
		return
	}

	unprocessed, err := h.emailService.CountUnprocessed()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute status",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"running":            h.agentService.IsRunning(),
			"actions":            actionStats,
			"unprocessed_emails": unprocessed,
		},
	})
}

// Triage runs one triage pass immediately
// POST /api/agent/triage
func (h *AgentHandler) Triage(c *gin.Context) {
	proposed, err := h.agentService.RunCycle()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROVIDER_ERROR",
				"message": "Triage cycle failed: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"proposed": proposed},
	})
}

// Propose triages a single message by its provider ID
// POST /api/agent/propose
func (h *AgentHandler) Propose(c *gin.Context) {
	var req ProposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "message_id is required",
			},
		})
		return
	}

	action, err := h.agentService.Propose(req.MessageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROPOSE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    action,
	})
}

// Chat answers a natural-language mailbox request
// POST /api/agent/chat
func (h *AgentHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "message is required",
			},
		})
		return
	}

	result, err := h.chatService.Chat(req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Chat request failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
