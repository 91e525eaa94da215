package services

import (
	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

// BulkService implements multi-email operations. Side effects go
// through the Executor so the ledger stays the single record of what
// happened, and every per-item failure is reported instead of aborting
// the batch.
type BulkService struct {
	db         *gorm.DB
	provider   mail.Provider
	actions    *ActionService
	executor   *Executor
	logService *LogService
}

// NewBulkService creates a new BulkService instance
func NewBulkService(db *gorm.DB, provider mail.Provider, actions *ActionService, executor *Executor, logService *LogService) *BulkService {
	return &BulkService{
		db:         db,
		provider:   provider,
		actions:    actions,
		executor:   executor,
		logService: logService,
	}
}

// BulkItemResult reports the outcome for one email or action in a batch.
type BulkItemResult struct {
	EmailID  string `json:"email_id,omitempty"`
	ActionID uint   `json:"action_id,omitempty"`
	Status   string `json:"status"` // ok, skipped, failed
	Error    string `json:"error,omitempty"`
}

// BulkResult summarizes a batch operation.
type BulkResult struct {
	Matched int              `json:"matched"`
	Done    int              `json:"done"`
	Skipped int              `json:"skipped"`
	Failed  int              `json:"failed"`
	Items   []BulkItemResult `json:"items"`
}

func (r *BulkResult) add(item BulkItemResult) {
	switch item.Status {
	case "ok":
		r.Done++
	case "skipped":
		r.Skipped++
	default:
		r.Failed++
	}
	r.Items = append(r.Items, item)
}

// ArchiveBySender archives every unresolved email from a matching
// sender. Each email gets an approved archive action executed through
// the gateway; emails that already have an outstanding action are
// skipped, so repeating the call is safe.
func (s *BulkService) ArchiveBySender(sender string) (*BulkResult, error) {
	var emails []models.Email
	if err := s.db.Where("from_addr LIKE ? AND processed = ?", "%"+sender+"%", false).
		Where("classification <> ?", models.ClassificationSent).
		Find(&emails).Error; err != nil {
		return nil, err
	}

	result := &BulkResult{Matched: len(emails)}
	for _, email := range emails {
		outstanding, err := s.actions.HasOutstanding(email.ID)
		if err != nil {
			result.add(BulkItemResult{EmailID: email.ID, Status: "failed", Error: err.Error()})
			continue
		}
		if outstanding {
			result.add(BulkItemResult{EmailID: email.ID, Status: "skipped"})
			continue
		}

		action := &models.Action{
			EmailID: email.ID,
			Kind:    models.ActionArchive,
			Status:  models.StatusApproved,
			Reason:  "Bulk archive by sender: " + sender,
		}
		if err := s.actions.Create(action); err != nil {
			result.add(BulkItemResult{EmailID: email.ID, Status: "failed", Error: err.Error()})
			continue
		}

		executed, err := s.executor.Execute(action.ID)
		if err != nil {
			result.add(BulkItemResult{EmailID: email.ID, ActionID: action.ID, Status: "failed", Error: err.Error()})
			continue
		}
		if executed.Status == models.StatusFailed {
			result.add(BulkItemResult{EmailID: email.ID, ActionID: action.ID, Status: "failed", Error: executed.ErrorDetail})
			continue
		}
		result.add(BulkItemResult{EmailID: email.ID, ActionID: action.ID, Status: "ok"})
	}

	s.logService.LogInfo(models.LogModuleEmail, "bulk_archive", "Bulk archive completed", map[string]interface{}{
		"sender":  sender,
		"matched": result.Matched,
		"done":    result.Done,
		"failed":  result.Failed,
	})
	return result, nil
}

// MarkRead marks a batch of messages read at the provider.
func (s *BulkService) MarkRead(ids []string) (*BulkResult, error) {
	result := &BulkResult{Matched: len(ids)}
	for _, id := range ids {
		if err := s.provider.MarkRead(id); err != nil {
			result.add(BulkItemResult{EmailID: id, Status: "failed", Error: err.Error()})
			continue
		}
		result.add(BulkItemResult{EmailID: id, Status: "ok"})
	}
	return result, nil
}

// Delete removes a batch of stored emails and their action history.
func (s *BulkService) Delete(ids []string) (*BulkResult, error) {
	result := &BulkResult{Matched: len(ids)}
	for _, id := range ids {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("email_id = ?", id).Delete(&models.Action{}).Error; err != nil {
				return err
			}
			res := tx.Where("id = ?", id).Delete(&models.Email{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrEmailNotFound
			}
			return nil
		})
		if err != nil {
			result.add(BulkItemResult{EmailID: id, Status: "failed", Error: err.Error()})
			continue
		}
		result.add(BulkItemResult{EmailID: id, Status: "ok"})
	}

	s.logService.LogInfo(models.LogModuleEmail, "bulk_delete", "Bulk delete completed", map[string]interface{}{
		"matched": result.Matched,
		"done":    result.Done,
		"failed":  result.Failed,
	})
	return result, nil
}

// DeleteBySender removes every stored email from a matching sender.
func (s *BulkService) DeleteBySender(sender string) (*BulkResult, error) {
	var ids []string
	if err := s.db.Model(&models.Email{}).
		Where("from_addr LIKE ?", "%"+sender+"%").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return s.Delete(ids)
}

// ExecuteAllPending approves and executes every pending action in one
// sweep, oldest first. Per-item failures are reported; the sweep never
// aborts early.
func (s *BulkService) ExecuteAllPending() (*BulkResult, error) {
	pending, err := s.actions.ListPending()
	if err != nil {
		return nil, err
	}

	result := &BulkResult{Matched: len(pending)}
	for _, action := range pending {
		if _, err := s.actions.Approve(action.ID, ""); err != nil {
			result.add(BulkItemResult{EmailID: action.EmailID, ActionID: action.ID, Status: "failed", Error: err.Error()})
			continue
		}
		executed, err := s.executor.Execute(action.ID)
		if err != nil {
			result.add(BulkItemResult{EmailID: action.EmailID, ActionID: action.ID, Status: "failed", Error: err.Error()})
			continue
		}
		if executed.Status == models.StatusFailed {
			result.add(BulkItemResult{EmailID: action.EmailID, ActionID: action.ID, Status: "failed", Error: executed.ErrorDetail})
			continue
		}
		result.add(BulkItemResult{EmailID: action.EmailID, ActionID: action.ID, Status: "ok"})
	}

	s.logService.LogInfo(models.LogModuleAction, "bulk_execute", "Executed all pending actions", map[string]interface{}{
		"matched": result.Matched,
		"done":    result.Done,
		"failed":  result.Failed,
	})
	return result, nil
}
