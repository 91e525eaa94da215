package models

import (
	"time"
)

// Email represents an email message tracked by the agent.
// The primary key is the provider-assigned message ID, which is stable
// across fetches.
type Email struct {
	ID             string    `gorm:"primaryKey;size:255" json:"id"`
	ThreadID       string    `gorm:"index;size:255" json:"thread_id"`
	FromAddr       string    `gorm:"index;size:255" json:"from_address"` // normalized, lower-cased
	FromName       string    `gorm:"size:255" json:"from_name"`
	FromRaw        string    `gorm:"size:500" json:"from_raw"` // original From header
	ToAddr         string    `gorm:"size:255" json:"to_address"`
	Subject        string    `gorm:"size:500" json:"subject"`
	Snippet        string    `gorm:"type:text" json:"snippet"`
	Body           string    `gorm:"type:text" json:"body"`
	Classification string    `gorm:"index;size:20" json:"classification"` // urgent, routine, spam, personal, sent
	Processed      bool      `gorm:"default:false;index" json:"processed"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Actions []Action `gorm:"foreignKey:EmailID" json:"actions,omitempty"`
}

// Classification values assigned by the classifier. The classifier may
// return an arbitrary string for unexpected model output; these constants
// cover the closed set the decision policy branches on.
const (
	ClassificationUrgent   = "urgent"
	ClassificationRoutine  = "routine"
	ClassificationSpam     = "spam"
	ClassificationPersonal = "personal"
	ClassificationSent     = "sent" // outgoing mail saved by the agent
)
