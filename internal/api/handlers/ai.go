package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/ai"
	"github.com/momo0222/momail-backend/internal/mail"
	"github.com/momo0222/momail-backend/internal/services"
)

// AIHandler handles AI drafting requests
type AIHandler struct {
	client       *ai.Client
	emailService *services.EmailService
	logService   *services.LogService
}

// NewAIHandler creates a new AIHandler instance
func NewAIHandler(client *ai.Client, emailService *services.EmailService, logService *services.LogService) *AIHandler {
	return &AIHandler{
		client:       client,
		emailService: emailService,
		logService:   logService,
	}
}

// DraftReplyRequest represents the request to draft a reply for a
// stored email
type DraftReplyRequest struct {
	EmailID      string `json:"email_id" binding:"required"`
	Tone         string `json:"tone"`
	Instructions string `json:"instructions"`
}

// GenerateEmailRequest represents the request to draft a fresh email
type GenerateEmailRequest struct {
	To           string `json:"to" binding:"required"`
	Subject      string `json:"subject" binding:"required"`
	Tone         string `json:"tone"`
	Instructions string `json:"instructions"`
}

// DraftReply drafts reply text for a stored email without sending it
// POST /api/ai/draft-reply
func (h *AIHandler) DraftReply(c *gin.Context) {
	var req DraftReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "email_id is required",
			},
		})
		return
	}

	email, err := h.emailService.GetEmail(req.EmailID)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load email",
			},
		})
		return
	}

	msg := mail.NormalizedMessage{
		ID:       email.ID,
		ThreadID: email.ThreadID,
		From:     email.FromAddr,
		FromName: email.FromName,
		To:       email.ToAddr,
		Subject:  email.Subject,
		Snippet:  email.Snippet,
		Body:     email.Body,
	}

	draft, err := h.client.DraftReply(msg, req.Tone, req.Instructions)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AI_ERROR",
				"message": "Failed to draft reply: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"draft": draft},
	})
}

// GenerateEmail drafts a fresh email body without sending it
// POST /api/ai/generate
func (h *AIHandler) GenerateEmail(c *gin.Context) {
	var req GenerateEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "to and subject are required",
			},
		})
		return
	}

	draft, err := h.client.GenerateEmail(req.To, req.Subject, req.Tone, req.Instructions)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AI_ERROR",
				"message": "Failed to generate email: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"draft": draft},
	})
}
