package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/services"
)

// ActionHandler handles action ledger requests
type ActionHandler struct {
	actionService *services.ActionService
	executor      *services.Executor
	logService    *services.LogService
}

// NewActionHandler creates a new ActionHandler instance
func NewActionHandler(actionService *services.ActionService, executor *services.Executor, logService *services.LogService) *ActionHandler {
	return &ActionHandler{
		actionService: actionService,
		executor:      executor,
		logService:    logService,
	}
}

// ApproveRequest represents the request to approve a pending action.
// EditedReply optionally replaces the suggested reply content.
type ApproveRequest struct {
	EditedReply string `json:"edited_reply"`
}

// parseActionID extracts the numeric action ID from the route, writing
// the validation error response itself when the ID is malformed.
func parseActionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid action ID",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// actionError maps a service error to the right response
func actionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrActionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Action not found",
			},
		})
	case errors.Is(err, services.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_TRANSITION",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrEmailNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Email not found",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Operation failed",
			},
		})
	}
}

// ListActions returns actions, filtered by status and kind
// GET /api/actions
func (h *ActionHandler) ListActions(c *gin.Context) {
	status := models.ActionStatus(c.Query("status"))
	kind := models.ActionKind(c.Query("kind"))

	if status != "" && !status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid status filter",
			},
		})
		return
	}
	if kind != "" && !kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid kind filter",
			},
		})
		return
	}

	actions, err := h.actionService.ListByStatus(status, kind)
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"actions": actions},
	})
}

// ListPending returns pending actions awaiting review, oldest first
// GET /api/actions/pending
func (h *ActionHandler) ListPending(c *gin.Context) {
	actions, err := h.actionService.ListPending()
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"actions": actions},
	})
}

// GetAction returns one ledger entry
// GET /api/actions/:id
func (h *ActionHandler) GetAction(c *gin.Context) {
	id, ok := parseActionID(c)
	if !ok {
		return
	}

	action, err := h.actionService.GetAction(id)
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    action,
	})
}

// Approve moves a pending action to approved, optionally with an
// edited reply
// POST /api/actions/:id/approve
func (h *ActionHandler) Approve(c *gin.Context) {
	id, ok := parseActionID(c)
	if !ok {
		return
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
			},
		})
		return
	}

	action, err := h.actionService.Approve(id, req.EditedReply)
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    action,
	})
}

// Reject moves a pending action to rejected
// POST /api/actions/:id/reject
func (h *ActionHandler) Reject(c *gin.Context) {
	id, ok := parseActionID(c)
	if !ok {
		return
	}

	action, err := h.actionService.Reject(id)
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    action,
	})
}

// Execute runs an approved action through the execution gateway. A
// provider failure comes back as a failed action, not an error status.
// POST /api/actions/:id/execute
func (h *ActionHandler) Execute(c *gin.Context) {
	id, ok := parseActionID(c)
	if !ok {
		return
	}

	action, err := h.executor.Execute(id)
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    action,
	})
}

// DeleteAction removes a ledger entry
// DELETE /api/actions/:id
func (h *ActionHandler) DeleteAction(c *gin.Context) {
	id, ok := parseActionID(c)
	if !ok {
		return
	}

	if err := h.actionService.Delete(id); err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Action deleted",
	})
}

// GetStats returns ledger counts by status and kind
// GET /api/actions/stats
func (h *ActionHandler) GetStats(c *gin.Context) {
	stats, err := h.actionService.Stats()
	if err != nil {
		actionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}
