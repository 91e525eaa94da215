package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/services"
)

// BulkHandler handles multi-email operations
type BulkHandler struct {
	bulkService *services.BulkService
	logService  *services.LogService
}

// NewBulkHandler creates a new BulkHandler instance
func NewBulkHandler(bulkService *services.BulkService, logService *services.LogService) *BulkHandler {
	return &BulkHandler{
		bulkService: bulkService,
		logService:  logService,
	}
}

// SenderRequest represents a bulk request targeting one sender
type SenderRequest struct {
	Sender string `json:"sender" binding:"required"`
}

// IDsRequest represents a bulk request targeting explicit email IDs
type IDsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// ArchiveBySender archives every unresolved email from a sender
// POST /api/bulk/archive
func (h *BulkHandler) ArchiveBySender(c *gin.Context) {
	var req SenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "sender is required",
			},
		})
		return
	}

	result, err := h.bulkService.ArchiveBySender(req.Sender)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Bulk archive failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// MarkRead marks a batch of messages read at the provider
// POST /api/bulk/read
func (h *BulkHandler) MarkRead(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "ids is required",
			},
		})
		return
	}

	result, err := h.bulkService.MarkRead(req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Bulk mark read failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// Delete removes a batch of stored emails
// POST /api/bulk/delete
func (h *BulkHandler) Delete(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "ids is required",
			},
		})
		return
	}

	result, err := h.bulkService.Delete(req.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Bulk delete failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// DeleteBySender removes every stored email from a sender
// POST /api/bulk/delete-by-sender
func (h *BulkHandler) DeleteBySender(c *gin.Context) {
	var req SenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "sender is required",
			},
		})
		return
	}

	result, err := h.bulkService.DeleteBySender(req.Sender)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Bulk delete failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ExecuteAllPending approves and executes every pending action
// POST /api/bulk/execute
func (h *BulkHandler) ExecuteAllPending(c *gin.Context) {
	result, err := h.bulkService.ExecuteAllPending()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Bulk execute failed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}
