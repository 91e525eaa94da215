package services

import (
	"fmt"
	"time"

	"github.com/momo0222/momail-backend/internal/ai"
	"github.com/momo0222/momail-backend/internal/database/models"
	"gorm.io/gorm"
)

// chatResultLimit caps how many emails a chat answer carries.
const chatResultLimit = 10

// IntentParser turns a natural-language mailbox request into structured
// search parameters. Satisfied by *ai.Client; tests inject stubs.
type IntentParser interface {
	ParseSearchIntent(message string) (ai.SearchIntent, error)
}

// ChatService answers natural-language mailbox requests: it parses the
// request into a search intent, runs the matching database query and
// optionally performs a bulk action the user asked for.
type ChatService struct {
	db         *gorm.DB
	parser     IntentParser
	bulk       *BulkService
	logService *LogService
}

// NewChatService creates a new ChatService instance
func NewChatService(db *gorm.DB, parser IntentParser, bulk *BulkService, logService *LogService) *ChatService {
	return &ChatService{
		db:         db,
		parser:     parser,
		bulk:       bulk,
		logService: logService,
	}
}

// ChatResult is the answer to one chat request.
type ChatResult struct {
	Reply  string          `json:"reply"`
	Intent ai.SearchIntent `json:"intent"`
	Emails []models.Email  `json:"emails"`
	Bulk   *BulkResult     `json:"bulk,omitempty"`
}

// Chat handles one natural-language request. When the parser fails the
// raw message is used as a keyword search, so the user always gets an
// answer.
func (s *ChatService) Chat(message string) (*ChatResult, error) {
	intent, err := s.parser.ParseSearchIntent(message)
	if err != nil {
		s.logService.LogWarn(models.LogModuleAgent, "chat", "Intent parsing failed, falling back to keyword search", map[string]interface{}{
			"error": err.Error(),
		})
		intent = ai.SearchIntent{Query: message, Action: "search"}
	}

	emails, err := s.search(intent)
	if err != nil {
		return nil, err
	}

	result := &ChatResult{
		Intent: intent,
		Emails: emails,
	}

	switch intent.Action {
	case "archive":
		if intent.Sender == "" {
			result.Reply = "Tell me whose emails to archive, e.g. \"archive everything from deals.com\"."
			return result, nil
		}
		bulkResult, err := s.bulk.ArchiveBySender(intent.Sender)
		if err != nil {
			return nil, err
		}
		result.Bulk = bulkResult
		result.Reply = fmt.Sprintf("Archived %d of %d emails from %s.", bulkResult.Done, bulkResult.Matched, intent.Sender)

	case "delete":
		if intent.Sender == "" {
			result.Reply = "Tell me whose emails to delete, e.g. \"delete everything from deals.com\"."
			return result, nil
		}
		bulkResult, err := s.bulk.DeleteBySender(intent.Sender)
		if err != nil {
			return nil, err
		}
		result.Bulk = bulkResult
		result.Reply = fmt.Sprintf("Deleted %d of %d emails from %s.", bulkResult.Done, bulkResult.Matched, intent.Sender)

	case "mark_read":
		ids := make([]string, 0, len(emails))
		for _, e := range emails {
			ids = append(ids, e.ID)
		}
		bulkResult, err := s.bulk.MarkRead(ids)
		if err != nil {
			return nil, err
		}
		result.Bulk = bulkResult
		result.Reply = fmt.Sprintf("Marked %d emails as read.", bulkResult.Done)

	default:
		if len(emails) == 0 {
			result.Reply = "No emails match that request."
		} else {
			result.Reply = fmt.Sprintf("Found %d matching emails.", len(emails))
		}
	}

	return result, nil
}

// search runs the database query described by an intent, newest first.
func (s *ChatService) search(intent ai.SearchIntent) ([]models.Email, error) {
	query := s.db.Model(&models.Email{})

	if intent.Sender != "" {
		pattern := "%" + intent.Sender + "%"
		query = query.Where("from_addr LIKE ? OR from_name LIKE ?", pattern, pattern)
	}
	if intent.Classification != "" {
		query = query.Where("classification = ?", intent.Classification)
	}
	if cutoff, ok := timeRangeCutoff(intent.TimeRange, time.Now()); ok {
		query = query.Where("created_at >= ?", cutoff)
	}
	if intent.Query != "" {
		pattern := "%" + intent.Query + "%"
		query = query.Where("subject LIKE ? OR body LIKE ?", pattern, pattern)
	}

	var emails []models.Email
	if err := query.Order("created_at DESC").Limit(chatResultLimit).Find(&emails).Error; err != nil {
		return nil, err
	}
	return emails, nil
}

// timeRangeCutoff maps a parsed time range label to the earliest
// matching timestamp. Unknown labels apply no time filter.
func timeRangeCutoff(timeRange string, now time.Time) (time.Time, bool) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch timeRange {
	case "today":
		return midnight, true
	case "yesterday":
		return midnight.AddDate(0, 0, -1), true
	case "last_week":
		return midnight.AddDate(0, 0, -7), true
	case "last_month":
		return midnight.AddDate(0, -1, 0), true
	default:
		return time.Time{}, false
	}
}
