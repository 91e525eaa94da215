package services

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

// Executor performs the side-effecting part of an approved action
// against the mail provider and finalizes the ledger entry. When the
// agent configuration enables dry-run mode, the executor logs the intent
// and performs no provider call, but still finalizes the action.
type Executor struct {
	db         *gorm.DB
	provider   mail.Provider
	actions    *ActionService
	configs    *ConfigService
	logService *LogService
}

// NewExecutor creates a new Executor instance
func NewExecutor(db *gorm.DB, provider mail.Provider, actions *ActionService, configs *ConfigService, logService *LogService) *Executor {
	return &Executor{
		db:         db,
		provider:   provider,
		actions:    actions,
		configs:    configs,
		logService: logService,
	}
}

// rePrefix matches one or more leading "Re:" markers on a subject.
var rePrefix = regexp.MustCompile(`(?i)^(re:\s*)+`)

// ReplySubject collapses any existing Re: prefixes and adds a single one.
func ReplySubject(subject string) string {
	return "Re: " + rePrefix.ReplaceAllString(subject, "")
}

// Execute performs one approved action and returns the finalized ledger
// entry. Only actions in approved can be executed; anything else fails
// with ErrInvalidTransition naming the current status. A provider
// failure is recorded on the action (status failed, error detail set)
// and returned as data, not as an error; the email's processed flag is
// left unchanged so it can be retried.
func (e *Executor) Execute(actionID uint) (*models.Action, error) {
	action, err := e.actions.GetAction(actionID)
	if err != nil {
		return nil, err
	}

	var email models.Email
	if err := e.db.Where("id = ?", action.EmailID).First(&email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrEmailNotFound, action.EmailID)
		}
		return nil, err
	}

	config, err := e.configs.GetConfig()
	if err != nil {
		return nil, err
	}

	// Resolve the content to send before claiming: the edited reply if
	// the approver supplied one, else the agent's suggestion.
	actualReply := action.ActualReply
	if actualReply == "" {
		actualReply = action.SuggestedReply
	}

	// Claim the action with a conditional update on approved. After the
	// swap succeeds this executor is the sole owner; a concurrent
	// execute attempt loses the swap and gets ErrInvalidTransition, so
	// the side effect below runs at most once.
	now := time.Now()
	claimUpdates := map[string]interface{}{
		"status":       models.StatusExecuted,
		"processed_at": &now,
	}
	if action.Kind == models.ActionReply {
		claimUpdates["actual_reply"] = actualReply
	}
	action, err = e.actions.transition(actionID, models.StatusApproved, models.StatusExecuted, claimUpdates)
	if err != nil {
		return nil, err
	}

	if sideEffectErr := e.performSideEffect(action, &email, actualReply, config.DryRunMode); sideEffectErr != nil {
		return e.markFailed(action, sideEffectErr)
	}

	// Terminal success: the email is handled
	if err := e.db.Model(&models.Email{}).Where("id = ?", email.ID).Update("processed", true).Error; err != nil {
		e.logService.LogWarn(models.LogModuleAction, "execute", "Failed to mark email processed", map[string]interface{}{
			"action_id": action.ID,
			"email_id":  email.ID,
			"error":     err.Error(),
		})
	}

	e.logService.LogInfo(models.LogModuleAction, "execute", "Action executed", map[string]interface{}{
		"action_id": action.ID,
		"email_id":  email.ID,
		"kind":      action.Kind,
		"dry_run":   config.DryRunMode,
	})

	return action, nil
}

// performSideEffect dispatches on the action kind. Notify and skip are
// local-only; reply and archive reach the mail provider unless dry-run
// is enabled.
func (e *Executor) performSideEffect(action *models.Action, email *models.Email, actualReply string, dryRun bool) error {
	switch action.Kind {
	case models.ActionReply:
		if dryRun {
			log.Printf("[Executor] Dry-run: would reply to %s on %q", email.FromAddr, email.Subject)
			return nil
		}
		sent, err := e.provider.Send(email.FromAddr, ReplySubject(email.Subject), actualReply, email.ThreadID)
		if err != nil {
			return err
		}
		e.recordSentEmail(sent, email, actualReply)
		return nil

	case models.ActionArchive:
		if dryRun {
			log.Printf("[Executor] Dry-run: would archive %s", email.ID)
			return nil
		}
		return e.provider.Archive(email.ID)

	case models.ActionNotify, models.ActionSkip:
		// Surfacing to the user happens through the review UI; nothing
		// to do against the provider.
		return nil

	default:
		return fmt.Errorf("unknown action kind: %s", action.Kind)
	}
}

// recordSentEmail persists the outgoing reply so thread views include
// it. A failure here is logged but does not fail the execution; the
// reply has already been sent.
func (e *Executor) recordSentEmail(sent mail.SentMessage, original *models.Email, body string) {
	threadID := sent.ThreadID
	if threadID == "" {
		threadID = original.ThreadID
	}

	record := &models.Email{
		ID:             sent.ID,
		ThreadID:       threadID,
		FromAddr:       e.provider.Address(),
		ToAddr:         original.FromAddr,
		Subject:        ReplySubject(original.Subject),
		Snippet:        snippetOf(body),
		Body:           body,
		Classification: models.ClassificationSent,
		Processed:      true,
	}
	if err := e.db.Create(record).Error; err != nil {
		e.logService.LogWarn(models.LogModuleEmail, "record_sent", "Failed to save sent email", map[string]interface{}{
			"email_id": sent.ID,
			"error":    err.Error(),
		})
	}
}

// markFailed downgrades a claimed action to failed with the provider
// error recorded. The claim made this executor the sole writer, so a
// direct update is safe here.
func (e *Executor) markFailed(action *models.Action, cause error) (*models.Action, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.StatusFailed,
		"error_detail": cause.Error(),
		"processed_at": &now,
	}
	if err := e.db.Model(&models.Action{}).Where("id = ?", action.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	e.logService.LogError(models.LogModuleAction, "execute", "Action execution failed", map[string]interface{}{
		"action_id": action.ID,
		"email_id":  action.EmailID,
		"kind":      action.Kind,
		"error":     cause.Error(),
	})

	return e.actions.GetAction(action.ID)
}

// snippetOf derives a short preview for stored outgoing mail, cutting
// on a rune boundary so multi-byte text stays valid UTF-8.
func snippetOf(body string) string {
	if len(body) <= 200 {
		return body
	}
	cut := 200
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
