package models

import (
	"strings"
)

// AgentConfigID is the primary key of the single AgentConfig row.
const AgentConfigID = 1

// DefaultCheckInterval is the triage loop interval in seconds used when
// no configuration is stored yet.
const DefaultCheckInterval = 60

// AgentConfig stores the agent's policy configuration (whitelist,
// blacklist, settings). Single-row table; exactly one record exists and
// it is created with defaults on first read.
type AgentConfig struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// Whitelist/Blacklist, comma separated sender substrings
	AutoReplyWhitelist string `gorm:"type:text;default:''" json:"auto_reply_whitelist"`
	AutoReplyBlacklist string `gorm:"type:text" json:"auto_reply_blacklist"`

	// Agent settings
	CheckInterval int  `gorm:"default:60" json:"check_interval"` // seconds
	DryRunMode    bool `gorm:"default:false" json:"dry_run_mode"`

	// Feature flags (EnableLearning is reserved, not consulted by the
	// decision policy)
	EnableAutoReply  bool `gorm:"default:true" json:"enable_auto_reply"`
	EnableSpamFilter bool `gorm:"default:true" json:"enable_spam_filter"`
	EnableLearning   bool `gorm:"default:false" json:"enable_learning"`
}

// DefaultBlacklist covers generic no-reply senders that should never get
// an automatic reply.
const DefaultBlacklist = "noreply@,no-reply@,donotreply@"

// DefaultAgentConfig returns the configuration created on first read.
func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		ID:                 AgentConfigID,
		AutoReplyWhitelist: "",
		AutoReplyBlacklist: DefaultBlacklist,
		CheckInterval:      DefaultCheckInterval,
		DryRunMode:         false,
		EnableAutoReply:    true,
		EnableSpamFilter:   true,
		EnableLearning:     false,
	}
}

// GetWhitelist parses the whitelist into normalized entries.
func (c *AgentConfig) GetWhitelist() []string {
	return parseSenderList(c.AutoReplyWhitelist)
}

// GetBlacklist parses the blacklist into normalized entries.
func (c *AgentConfig) GetBlacklist() []string {
	return parseSenderList(c.AutoReplyBlacklist)
}

// parseSenderList splits a comma separated list into trimmed, lower-cased
// entries, dropping empty ones.
func parseSenderList(raw string) []string {
	if raw == "" {
		return nil
	}
	var entries []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			entries = append(entries, part)
		}
	}
	return entries
}

// JoinSenderList is the inverse of parseSenderList, used when persisting
// an updated list.
func JoinSenderList(entries []string) string {
	var cleaned []string
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			cleaned = append(cleaned, e)
		}
	}
	return strings.Join(cleaned, ",")
}
