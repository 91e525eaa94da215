package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/momo0222/momail-backend/internal/database/models"
	"gorm.io/gorm"
)

// ActionService is the ledger of proposed and executed actions. It owns
// every lifecycle transition: the triage loop only creates pending
// actions, the approval API moves pending to approved/rejected, and the
// executor moves approved to executed/failed. Transitions are applied as
// conditional updates on the current status so that concurrent callers
// cannot advance the same action twice.
type ActionService struct {
	db         *gorm.DB
	logService *LogService
}

// NewActionService creates a new ActionService instance
func NewActionService(db *gorm.DB, logService *LogService) *ActionService {
	return &ActionService{
		db:         db,
		logService: logService,
	}
}

// CreateProposal records a new pending action for an email.
func (s *ActionService) CreateProposal(emailID string, kind models.ActionKind, suggestedReply, reason string) (*models.Action, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid action kind: %s", kind)
	}

	action := &models.Action{
		EmailID:        emailID,
		Kind:           kind,
		Status:         models.StatusPending,
		SuggestedReply: suggestedReply,
		Reason:         reason,
	}
	if err := s.db.Create(action).Error; err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleAction, "propose", "Action proposed", map[string]interface{}{
		"action_id": action.ID,
		"email_id":  emailID,
		"kind":      kind,
		"reason":    reason,
	})

	return action, nil
}

// Create records an action in an explicit state. Reserved for bulk
// administrative paths that record already-performed work (bulk archive);
// the triage loop must use CreateProposal.
func (s *ActionService) Create(action *models.Action) error {
	if !action.Kind.IsValid() {
		return fmt.Errorf("invalid action kind: %s", action.Kind)
	}
	if !action.Status.IsValid() {
		return fmt.Errorf("invalid action status: %s", action.Status)
	}
	if action.Status.IsTerminal() && action.ProcessedAt == nil {
		now := time.Now()
		action.ProcessedAt = &now
	}
	return s.db.Create(action).Error
}

// GetAction fetches one action by ID.
func (s *ActionService) GetAction(id uint) (*models.Action, error) {
	var action models.Action
	if err := s.db.First(&action, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrActionNotFound, id)
		}
		return nil, err
	}
	return &action, nil
}

// ListPending returns all actions awaiting review, oldest first.
func (s *ActionService) ListPending() ([]models.Action, error) {
	var actions []models.Action
	err := s.db.Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&actions).Error
	return actions, err
}

// ListByStatus returns actions filtered by status and kind; empty
// filters match everything.
func (s *ActionService) ListByStatus(status models.ActionStatus, kind models.ActionKind) ([]models.Action, error) {
	query := s.db.Model(&models.Action{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var actions []models.Action
	err := query.Order("created_at ASC").Find(&actions).Error
	return actions, err
}

// HasOutstanding reports whether the email has a non-terminal (pending
// or approved) action. The triage loop must not propose a second action
// while one is outstanding.
func (s *ActionService) HasOutstanding(emailID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Action{}).
		Where("email_id = ? AND status IN ?", emailID, []models.ActionStatus{models.StatusPending, models.StatusApproved}).
		Count(&count).Error
	return count > 0, err
}

// Approve transitions a pending action to approved. An edited reply, if
// provided, becomes the content used at execution time; the original
// suggestion is preserved for audit.
func (s *ActionService) Approve(id uint, editedReply string) (*models.Action, error) {
	updates := map[string]interface{}{"status": models.StatusApproved}
	if editedReply != "" {
		updates["actual_reply"] = editedReply
	}

	action, err := s.transition(id, models.StatusPending, models.StatusApproved, updates)
	if err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleAction, "approve", "Action approved", map[string]interface{}{
		"action_id": action.ID,
		"email_id":  action.EmailID,
		"edited":    editedReply != "",
	})

	return action, nil
}

// Reject transitions a pending action to rejected.
func (s *ActionService) Reject(id uint) (*models.Action, error) {
	now := time.Now()
	action, err := s.transition(id, models.StatusPending, models.StatusRejected, map[string]interface{}{
		"status":       models.StatusRejected,
		"processed_at": &now,
	})
	if err != nil {
		return nil, err
	}

	s.logService.LogInfo(models.LogModuleAction, "reject", "Action rejected", map[string]interface{}{
		"action_id": action.ID,
		"email_id":  action.EmailID,
	})

	return action, nil
}

// transition applies updates to the action only if its status still
// equals expected (compare-and-swap against concurrent callers). A
// failed swap is reported as ErrInvalidTransition naming the current
// status, never as a silent no-op.
func (s *ActionService) transition(id uint, expected, target models.ActionStatus, updates map[string]interface{}) (*models.Action, error) {
	result := s.db.Model(&models.Action{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		current, err := s.GetAction(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: action %d is %s, cannot transition to %s",
			ErrInvalidTransition, id, current.Status, target)
	}

	return s.GetAction(id)
}

// Delete removes an action record. Administrative operation; it does not
// undo any side effect an executed action already performed.
func (s *ActionService) Delete(id uint) error {
	result := s.db.Delete(&models.Action{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrActionNotFound, id)
	}
	return nil
}

// ActionStats summarizes actions by status.
type ActionStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Executed int64 `json:"executed"`
	Failed   int64 `json:"failed"`
}

// Stats returns action counts by status.
func (s *ActionService) Stats() (*ActionStats, error) {
	stats := &ActionStats{}
	if err := s.db.Model(&models.Action{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	counts := []struct {
		status models.ActionStatus
		dest   *int64
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusApproved, &stats.Approved},
		{models.StatusRejected, &stats.Rejected},
		{models.StatusExecuted, &stats.Executed},
		{models.StatusFailed, &stats.Failed},
	}
	for _, c := range counts {
		if err := s.db.Model(&models.Action{}).Where("status = ?", c.status).Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	return stats, nil
}
