package services

import (
	"errors"
	"fmt"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

// EmailService handles stored email queries and user-initiated mail
// operations (manual replies, composing). The background triage loop
// writes rows through AgentService; this service is the read and
// outbound side.
type EmailService struct {
	db         *gorm.DB
	provider   mail.Provider
	logService *LogService
}

// NewEmailService creates a new EmailService instance
func NewEmailService(db *gorm.DB, provider mail.Provider, logService *LogService) *EmailService {
	return &EmailService{
		db:         db,
		provider:   provider,
		logService: logService,
	}
}

// EmailListOptions represents options for listing emails
type EmailListOptions struct {
	Classification string
	Sender         string
	Processed      *bool
	Search         string
	Page           int
	Limit          int
	SortOrder      string // "asc" or "desc"
}

// EmailListResult represents the result of listing emails
type EmailListResult struct {
	Total  int64          `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Emails []models.Email `json:"emails"`
}

// ListEmails lists stored emails with pagination and filtering
func (s *EmailService) ListEmails(opts EmailListOptions) (*EmailListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit == 0 {
		opts.Limit = 20
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}

	query := s.db.Model(&models.Email{})

	if opts.Classification != "" {
		query = query.Where("classification = ?", opts.Classification)
	}
	if opts.Sender != "" {
		query = query.Where("from_addr LIKE ?", "%"+opts.Sender+"%")
	}
	if opts.Processed != nil {
		query = query.Where("processed = ?", *opts.Processed)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("subject LIKE ? OR from_addr LIKE ? OR body LIKE ?", pattern, pattern, pattern)
	}

	var total int64
	query.Count(&total)

	order := "created_at DESC"
	if opts.SortOrder == "asc" {
		order = "created_at ASC"
	}
	query = query.Order(order)

	if opts.Limit > 0 {
		offset := (opts.Page - 1) * opts.Limit
		query = query.Offset(offset).Limit(opts.Limit)
	}

	var emails []models.Email
	if err := query.Find(&emails).Error; err != nil {
		return nil, err
	}

	return &EmailListResult{
		Total:  total,
		Page:   opts.Page,
		Limit:  opts.Limit,
		Emails: emails,
	}, nil
}

// GetEmail retrieves one stored email with its action history
func (s *EmailService) GetEmail(id string) (*models.Email, error) {
	var email models.Email
	if err := s.db.Preload("Actions").Where("id = ?", id).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrEmailNotFound, id)
		}
		return nil, err
	}
	return &email, nil
}

// GetThread returns all stored messages of a thread in arrival order,
// replies we sent included.
func (s *EmailService) GetThread(threadID string) ([]models.Email, error) {
	var emails []models.Email
	if err := s.db.Where("thread_id = ?", threadID).
		Order("created_at ASC").Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// ThreadSummary is one row of the thread overview.
type ThreadSummary struct {
	ThreadID string `json:"thread_id"`
	Subject  string `json:"subject"`
	FromAddr string `json:"from_addr"`
	Count    int64  `json:"count"`
	Unread   int64  `json:"unread"` // unresolved incoming messages
}

// ListThreads returns the most recently active threads, newest first.
func (s *EmailService) ListThreads(limit int) ([]ThreadSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var summaries []ThreadSummary
	err := s.db.Model(&models.Email{}).
		Select("thread_id, MAX(subject) AS subject, MAX(from_addr) AS from_addr, COUNT(*) AS count, " +
			"SUM(CASE WHEN processed = false AND classification <> 'sent' THEN 1 ELSE 0 END) AS unread").
		Where("thread_id <> ''").
		Group("thread_id").
		Order("MAX(created_at) DESC").
		Limit(limit).
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ResolveThread marks every incoming message of a thread handled, both
// in the store and best-effort at the provider. Used when the user opens
// a thread; a provider failure is logged but does not undo the local
// resolution.
func (s *EmailService) ResolveThread(threadID string) error {
	var unresolved []models.Email
	if err := s.db.Where("thread_id = ? AND processed = ? AND classification <> ?",
		threadID, false, models.ClassificationSent).Find(&unresolved).Error; err != nil {
		return err
	}
	if len(unresolved) == 0 {
		return nil
	}

	ids := make([]string, 0, len(unresolved))
	for _, e := range unresolved {
		ids = append(ids, e.ID)
	}
	if err := s.db.Model(&models.Email{}).Where("id IN ?", ids).
		Update("processed", true).Error; err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.provider.MarkRead(id); err != nil {
			s.logService.LogWarn(models.LogModuleEmail, "resolve_thread", "Failed to mark message read at provider", map[string]interface{}{
				"email_id": id,
				"error":    err.Error(),
			})
		}
	}
	return nil
}

// CountUnprocessed counts emails the agent has seen but the user has
// not resolved yet.
func (s *EmailService) CountUnprocessed() (int64, error) {
	var count int64
	err := s.db.Model(&models.Email{}).Where("processed = ?", false).Count(&count).Error
	return count, err
}

// SendReply sends a manual reply to a stored email, records the
// outgoing message and marks the original handled.
func (s *EmailService) SendReply(emailID, body string) (*models.Email, error) {
	email, err := s.GetEmail(emailID)
	if err != nil {
		return nil, err
	}

	subject := ReplySubject(email.Subject)
	sent, err := s.provider.Send(email.FromAddr, subject, body, email.ThreadID)
	if err != nil {
		return nil, err
	}

	threadID := sent.ThreadID
	if threadID == "" {
		threadID = email.ThreadID
	}
	record := &models.Email{
		ID:             sent.ID,
		ThreadID:       threadID,
		FromAddr:       s.provider.Address(),
		ToAddr:         email.FromAddr,
		Subject:        subject,
		Snippet:        snippetOf(body),
		Body:           body,
		Classification: models.ClassificationSent,
		Processed:      true,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Email{}).Where("id = ?", emailID).
		Update("processed", true).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleEmail, "reply", "Manual reply sent", map[string]interface{}{
		"email_id": emailID,
		"to":       email.FromAddr,
	})
	return record, nil
}

// Compose sends a fresh outgoing email and records it.
func (s *EmailService) Compose(to, subject, body string) (*models.Email, error) {
	sent, err := s.provider.Send(to, subject, body, "")
	if err != nil {
		return nil, err
	}

	record := &models.Email{
		ID:             sent.ID,
		ThreadID:       sent.ThreadID,
		FromAddr:       s.provider.Address(),
		ToAddr:         to,
		Subject:        subject,
		Snippet:        snippetOf(body),
		Body:           body,
		Classification: models.ClassificationSent,
		Processed:      true,
	}
	if err := s.db.Create(record).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleEmail, "compose", "Email sent", map[string]interface{}{
		"email_id": sent.ID,
		"to":       to,
	})
	return record, nil
}

// MarkRead marks the message read at the provider.
func (s *EmailService) MarkRead(emailID string) error {
	if _, err := s.GetEmail(emailID); err != nil {
		return err
	}
	return s.provider.MarkRead(emailID)
}

// DeleteEmail removes a stored email and its action history.
func (s *EmailService) DeleteEmail(id string) error {
	email, err := s.GetEmail(id)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email_id = ?", id).Delete(&models.Action{}).Error; err != nil {
			return err
		}
		return tx.Delete(email).Error
	})
}

// SenderStat is one row of the per-sender breakdown.
type SenderStat struct {
	FromAddr string `json:"from_addr"`
	Count    int64  `json:"count"`
}

// EmailStats summarizes the stored mailbox for the stats endpoint.
type EmailStats struct {
	Total            int64            `json:"total"`
	Unprocessed      int64            `json:"unprocessed"`
	ByClassification map[string]int64 `json:"by_classification"`
	TopSenders       []SenderStat     `json:"top_senders"`
}

// Stats aggregates mailbox counts by classification and sender.
func (s *EmailService) Stats() (*EmailStats, error) {
	stats := &EmailStats{
		ByClassification: make(map[string]int64),
	}

	if err := s.db.Model(&models.Email{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Email{}).Where("processed = ?", false).
		Count(&stats.Unprocessed).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Classification string
		Count          int64
	}
	if err := s.db.Model(&models.Email{}).
		Select("classification, COUNT(*) AS count").
		Group("classification").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		label := row.Classification
		if label == "" {
			label = "unclassified"
		}
		stats.ByClassification[label] = row.Count
	}

	if err := s.db.Model(&models.Email{}).
		Select("from_addr, COUNT(*) AS count").
		Where("classification <> ?", models.ClassificationSent).
		Group("from_addr").
		Order("count DESC").
		Limit(10).
		Scan(&stats.TopSenders).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
