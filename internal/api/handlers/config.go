package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momo0222/momail-backend/internal/services"
)

// ConfigHandler handles agent configuration requests
type ConfigHandler struct {
	configService *services.ConfigService
	logService    *services.LogService
}

// NewConfigHandler creates a new ConfigHandler instance
func NewConfigHandler(configService *services.ConfigService, logService *services.LogService) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
		logService:    logService,
	}
}

// GetConfig returns the stored agent configuration
// GET /api/config
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	config, err := h.configService.GetConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to load configuration",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    config,
	})
}

// UpdateConfig applies a partial configuration update
// PUT /api/config
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	var update services.ConfigUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
			},
		})
		return
	}

	config, err := h.configService.UpdateConfig(update)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    config,
	})
}
