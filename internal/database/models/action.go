package models

import (
	"time"
)

// Action stores an operation the agent wants to take on an email.
// The triage loop creates actions in state pending; a human approves or
// rejects them; the executor advances approved actions to executed or
// failed. Rejected, executed and failed are terminal.
type Action struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	EmailID string `gorm:"index;size:255;not null" json:"email_id"`

	Kind   ActionKind   `gorm:"size:20;not null" json:"action_type"`
	Status ActionStatus `gorm:"size:20;index;default:'pending'" json:"status"`

	// Reply content (only for Kind == reply). SuggestedReply is the
	// agent's draft and is never overwritten; ActualReply is what was
	// (or would be) sent, possibly edited by the human.
	SuggestedReply string `gorm:"type:text" json:"suggested_reply,omitempty"`
	ActualReply    string `gorm:"type:text" json:"actual_reply,omitempty"`

	Reason      string `gorm:"type:text" json:"reason"`
	ErrorDetail string `gorm:"type:text" json:"error_detail,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"` // set on terminal transition
}

// ActionKind represents what the agent wants to do with an email
type ActionKind string

const (
	ActionReply   ActionKind = "reply"
	ActionArchive ActionKind = "archive"
	ActionNotify  ActionKind = "notify"
	ActionSkip    ActionKind = "skip"
)

// IsValid checks if the action kind is valid
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionReply, ActionArchive, ActionNotify, ActionSkip:
		return true
	}
	return false
}

// ActionStatus represents the lifecycle state of an action
type ActionStatus string

const (
	StatusPending  ActionStatus = "pending"
	StatusApproved ActionStatus = "approved"
	StatusRejected ActionStatus = "rejected"
	StatusExecuted ActionStatus = "executed"
	StatusFailed   ActionStatus = "failed"
)

// IsValid checks if the action status is valid
func (s ActionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusExecuted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case StatusRejected, StatusExecuted, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine allows moving from s
// to target. Allowed edges: pending -> approved|rejected,
// approved -> executed|failed.
func (s ActionStatus) CanTransitionTo(target ActionStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved:
		return target == StatusExecuted || target == StatusFailed
	}
	return false
}
