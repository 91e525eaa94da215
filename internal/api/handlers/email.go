package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/services"
)

// EmailHandler handles email related requests
type EmailHandler struct {
	emailService *services.EmailService
	logService   *services.LogService
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(emailService *services.EmailService, logService *services.LogService) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		logService:   logService,
	}
}

// ReplyRequest represents the request to reply to a stored email
type ReplyRequest struct {
	Body string `json:"body" binding:"required"`
}

// ComposeRequest represents the request to send a fresh email
type ComposeRequest struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Body    string `json:"body" binding:"required"`
}

// ListEmails returns stored emails with pagination and filtering
// GET /api/emails
func (h *EmailHandler) ListEmails(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	sortOrder := c.DefaultQuery("order", "desc")

	opts := services.EmailListOptions{
		Classification: c.Query("classification"),
		Sender:         c.Query("sender"),
		Search:         c.Query("search"),
		Page:           page,
		Limit:          limit,
		SortOrder:      sortOrder,
	}
	if raw := c.Query("processed"); raw != "" {
		processed := raw == "true" || raw == "1"
		opts.Processed = &processed
	}

	result, err := h.emailService.ListEmails(opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve emails",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total":  result.Total,
			"page":   result.Page,
			"limit":  result.Limit,
			"emails": result.Emails,
		},
	})
}

// GetEmail returns a specific email with its action history
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
	email, err := h.emailService.GetEmail(c.Param("id"))
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
				"message": "Failed to retrieve email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    email,
	})
}

// ListThreads returns the most recently active threads
// GET /api/emails/threads
func (h *EmailHandler) ListThreads(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	threads, err := h.emailService.ListThreads(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve threads",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"threads": threads},
	})
}

// GetThread returns all stored messages of a thread in arrival order.
// Opening a thread resolves its incoming messages.
// GET /api/emails/threads/:thread_id
func (h *EmailHandler) GetThread(c *gin.Context) {
	threadID := c.Param("thread_id")

	emails, err := h.emailService.GetThread(threadID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve thread",
			},
		})
		return
	}

	if err := h.emailService.ResolveThread(threadID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to resolve thread",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"emails": emails},
	})
}

// GetStats returns mailbox statistics
// GET /api/emails/stats
func (h *EmailHandler) GetStats(c *gin.Context) {
	stats, err := h.emailService.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to compute statistics",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// Reply sends a manual reply to a stored email
// POST /api/emails/:id/reply
func (h *EmailHandler) Reply(c *gin.Context) {
	var req ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Reply body is required",
			},
		})
		return
	}

	sent, err := h.emailService.SendReply(c.Param("id"), req.Body)
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
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROVIDER_ERROR",
				"message": "Failed to send reply: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sent,
	})
}

// Compose sends a fresh outgoing email
// POST /api/emails/send
func (h *EmailHandler) Compose(c *gin.Context) {
	var req ComposeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "to, subject and body are required",
			},
		})
		return
	}

	sent, err := h.emailService.Compose(req.To, req.Subject, req.Body)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROVIDER_ERROR",
				"message": "Failed to send email: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    sent,
	})
}

// MarkAsRead marks the message read at the provider
// PUT /api/emails/:id/read
func (h *EmailHandler) MarkAsRead(c *gin.Context) {
	if err := h.emailService.MarkRead(c.Param("id")); err != nil {
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
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "PROVIDER_ERROR",
				"message": "Failed to mark email as read",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email marked as read",
	})
}

// DeleteEmail removes a stored email and its action history
// DELETE /api/emails/:id
func (h *EmailHandler) DeleteEmail(c *gin.Context) {
	if err := h.emailService.DeleteEmail(c.Param("id")); err != nil {
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
				"message": "Failed to delete email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email deleted",
	})
}
