package services

import (
	"errors"
	"fmt"

	"github.com/momo0222/momail-backend/internal/database/models"
	"gorm.io/gorm"
)

// ConfigService manages the agent's single-row policy configuration.
// Reads are frequent (the triage loop re-reads the interval every
// iteration); updates are rare administrative calls with last-writer-wins
// semantics.
type ConfigService struct {
	db         *gorm.DB
	logService *LogService
}

// NewConfigService creates a new ConfigService instance
func NewConfigService(db *gorm.DB, logService *LogService) *ConfigService {
	return &ConfigService{
		db:         db,
		logService: logService,
	}
}

// GetConfig fetches the agent configuration, creating the default row on
// first read.
func (s *ConfigService) GetConfig() (*models.AgentConfig, error) {
	var config models.AgentConfig
	err := s.db.Where("id = ?", models.AgentConfigID).First(&config).Error
	if err == nil {
		return &config, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	defaults := models.DefaultAgentConfig()
	if err := s.db.Create(defaults).Error; err != nil {
		// A concurrent first read may have created the row already
		if err2 := s.db.Where("id = ?", models.AgentConfigID).First(&config).Error; err2 == nil {
			return &config, nil
		}
		return nil, err
	}
	return defaults, nil
}

// ConfigUpdate carries a partial configuration update; nil fields are
// left unchanged.
type ConfigUpdate struct {
	AutoReplyWhitelist *string `json:"auto_reply_whitelist"`
	AutoReplyBlacklist *string `json:"auto_reply_blacklist"`
	CheckInterval      *int    `json:"check_interval"`
	DryRunMode         *bool   `json:"dry_run_mode"`
	EnableAutoReply    *bool   `json:"enable_auto_reply"`
	EnableSpamFilter   *bool   `json:"enable_spam_filter"`
	EnableLearning     *bool   `json:"enable_learning"`
}

// UpdateConfig applies a partial update and returns the stored
// configuration. Conflicting simultaneous edits resolve last-writer-wins.
func (s *ConfigService) UpdateConfig(update ConfigUpdate) (*models.AgentConfig, error) {
	config, err := s.GetConfig()
	if err != nil {
		return nil, err
	}

	if update.CheckInterval != nil && *update.CheckInterval <= 0 {
		return nil, fmt.Errorf("check_interval must be a positive number of seconds, got %d", *update.CheckInterval)
	}

	if update.AutoReplyWhitelist != nil {
		config.AutoReplyWhitelist = *update.AutoReplyWhitelist
	}
	if update.AutoReplyBlacklist != nil {
		config.AutoReplyBlacklist = *update.AutoReplyBlacklist
	}
	if update.CheckInterval != nil {
		config.CheckInterval = *update.CheckInterval
	}
	if update.DryRunMode != nil {
		config.DryRunMode = *update.DryRunMode
	}
	if update.EnableAutoReply != nil {
		config.EnableAutoReply = *update.EnableAutoReply
	}
	if update.EnableSpamFilter != nil {
		config.EnableSpamFilter = *update.EnableSpamFilter
	}
	if update.EnableLearning != nil {
		config.EnableLearning = *update.EnableLearning
	}

	if err := s.db.Save(config).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleConfig, "update", "Agent configuration updated", map[string]interface{}{
		"check_interval": config.CheckInterval,
		"dry_run_mode":   config.DryRunMode,
	})

	return config, nil
}
