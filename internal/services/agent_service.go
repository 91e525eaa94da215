package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

// maxCandidatesPerCycle caps how many unread messages one triage cycle
// will look at.
const maxCandidatesPerCycle = 50

// AgentService runs the background triage loop: it polls the mail
// provider for unread messages, classifies them, applies the decision
// policy and records pending actions for the user to review. Nothing in
// this service touches the outside world beyond reading mail; all
// side effects go through the Executor after approval.
type AgentService struct {
	db         *gorm.DB
	provider   mail.Provider
	classifier Classifier
	responder  Responder
	actions    *ActionService
	configs    *ConfigService
	logService *LogService

	stopChan chan struct{}
	running  bool
	mu       sync.Mutex
	triaging sync.Mutex // 防止触发周期重叠

	seen   map[string]struct{}
	seenMu sync.Mutex
}

// NewAgentService creates a new AgentService instance
func NewAgentService(db *gorm.DB, provider mail.Provider, classifier Classifier, responder Responder, actions *ActionService, configs *ConfigService, logService *LogService) *AgentService {
	return &AgentService{
		db:         db,
		provider:   provider,
		classifier: classifier,
		responder:  responder,
		actions:    actions,
		configs:    configs,
		logService: logService,
		seen:       make(map[string]struct{}),
	}
}

// Start launches the background triage loop. The check interval is
// re-read from the agent configuration before every cycle, so interval
// changes take effect without a restart.
func (s *AgentService) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAgentAlreadyRunning
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stopChan := s.stopChan
	s.mu.Unlock()

	log.Println("[Agent] Starting triage loop")
	s.logService.LogInfo(models.LogModuleAgent, "start", "Agent started", nil)

	go func() {
		for {
			if _, err := s.RunCycle(); err != nil {
				log.Printf("[Agent] Triage cycle failed: %v", err)
			}

			interval := s.currentInterval()
			select {
			case <-time.After(interval):
			case <-stopChan:
				log.Println("[Agent] Stopping triage loop")
				return
			}
		}
	}()

	return nil
}

// Stop signals the triage loop to exit. A cycle already in flight runs
// to completion.
func (s *AgentService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrAgentNotRunning
	}

	close(s.stopChan)
	s.running = false
	s.logService.LogInfo(models.LogModuleAgent, "stop", "Agent stopped", nil)
	return nil
}

// IsRunning reports whether the triage loop is active.
func (s *AgentService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// currentInterval reads the check interval from the stored agent
// configuration, falling back to the default when the read fails or
// the stored value is non-positive.
func (s *AgentService) currentInterval() time.Duration {
	config, err := s.configs.GetConfig()
	if err != nil {
		log.Printf("[Agent] Failed to read config, using default interval: %v", err)
		return time.Duration(models.DefaultCheckInterval) * time.Second
	}
	if config.CheckInterval <= 0 {
		log.Printf("[Agent] Stored interval %d is invalid, using default", config.CheckInterval)
		return time.Duration(models.DefaultCheckInterval) * time.Second
	}
	return time.Duration(config.CheckInterval) * time.Second
}

// RunCycle performs one triage pass and returns how many new proposals
// it recorded. Listing failures are retried with backoff before the
// cycle is abandoned; a failure on one message is logged and does not
// stop the rest of the batch.
func (s *AgentService) RunCycle() (int, error) {
	// 防止周期重叠：上一轮还没结束就跳过本轮
	if !s.triaging.TryLock() {
		log.Println("[Agent] Previous cycle still running, skipping")
		return 0, nil
	}
	defer s.triaging.Unlock()

	config, err := s.configs.GetConfig()
	if err != nil {
		return 0, err
	}

	ids, err := s.listWithRetry()
	if err != nil {
		s.logService.LogWarn(models.LogModuleAgent, "triage", "Failed to list new messages", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}

	proposed := 0
	for _, id := range ids {
		created, err := s.triageOne(id, config)
		if err != nil {
			log.Printf("[Agent] Failed to triage message %s: %v", id, err)
			s.logService.LogWarn(models.LogModuleAgent, "triage", "Failed to triage message", map[string]interface{}{
				"message_id": id,
				"error":      err.Error(),
			})
			continue
		}
		if created {
			proposed++
		}
	}

	if proposed > 0 {
		log.Printf("[Agent] Triage cycle completed: %d new proposals", proposed)
		s.logService.LogInfo(models.LogModuleAgent, "triage", "Triage cycle completed", map[string]interface{}{
			"proposed": proposed,
			"scanned":  len(ids),
		})
	}
	return proposed, nil
}

// listWithRetry lists unread messages with up to two retries, backing
// off exponentially between attempts.
func (s *AgentService) listWithRetry() ([]string, error) {
	const maxRetries = 2
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("[Agent] List retry %d/%d after %v", attempt, maxRetries, backoff)
			time.Sleep(backoff)
		}

		ids, err := s.provider.ListNew(maxCandidatesPerCycle)
		if err == nil {
			return ids, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Propose triages a single message by its provider ID, outside the
// regular loop. Used by the manual trigger endpoint; it bypasses the
// in-memory seen set but still honors the ledger dedup, so a message
// with an outstanding action gets no second proposal.
func (s *AgentService) Propose(messageID string) (*models.Action, error) {
	config, err := s.configs.GetConfig()
	if err != nil {
		return nil, err
	}

	outstanding, err := s.actions.HasOutstanding(messageID)
	if err != nil {
		return nil, err
	}
	if outstanding {
		return nil, fmt.Errorf("message %s already has an outstanding action", messageID)
	}

	msg, err := s.fetchNormalized(messageID)
	if err != nil {
		return nil, err
	}

	email, err := s.upsertEmail(msg)
	if err != nil {
		return nil, err
	}

	return s.propose(email, msg, config)
}

// triageOne handles one candidate message. Returns true when a new
// proposal was recorded, false when the message was deduplicated.
func (s *AgentService) triageOne(id string, config *models.AgentConfig) (bool, error) {
	if s.wasSeen(id) {
		return false, nil
	}

	// The ledger is the authoritative dedup; the seen set only saves
	// repeat work within a process lifetime.
	var existing models.Email
	err := s.db.Where("id = ?", id).First(&existing).Error
	if err == nil {
		if existing.Processed {
			s.markSeen(id)
			return false, nil
		}
		outstanding, err := s.actions.HasOutstanding(id)
		if err != nil {
			return false, err
		}
		if outstanding {
			s.markSeen(id)
			return false, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	msg, err := s.fetchNormalized(id)
	if err != nil {
		return false, err
	}

	email, err := s.upsertEmail(msg)
	if err != nil {
		return false, err
	}

	if _, err := s.propose(email, msg, config); err != nil {
		return false, err
	}

	s.markSeen(id)
	return true, nil
}

// fetchNormalized fetches one message and converts it to the shared
// value type.
func (s *AgentService) fetchNormalized(id string) (mail.NormalizedMessage, error) {
	raw, err := s.provider.Fetch(id)
	if err != nil {
		return mail.NormalizedMessage{}, err
	}
	return s.provider.Normalize(raw)
}

// upsertEmail stores the message if it is not already in the database
// and returns the stored row.
func (s *AgentService) upsertEmail(msg mail.NormalizedMessage) (*models.Email, error) {
	email := &models.Email{
		ID:       msg.ID,
		ThreadID: msg.ThreadID,
		FromAddr: msg.From,
		FromName: msg.FromName,
		FromRaw:  msg.FromRaw,
		ToAddr:   msg.To,
		Subject:  msg.Subject,
		Snippet:  msg.Snippet,
		Body:     msg.Body,
	}
	if err := s.db.Where("id = ?", msg.ID).FirstOrCreate(email).Error; err != nil {
		return nil, err
	}
	return email, nil
}

// propose classifies the message, applies the decision policy and
// records a pending action. A classification failure is not fatal:
// the message is surfaced to the user as a notify with the failure
// recorded in the reason, so nothing silently disappears.
func (s *AgentService) propose(email *models.Email, msg mail.NormalizedMessage, config *models.AgentConfig) (*models.Action, error) {
	var decision Decision

	classification, err := s.classifier.Classify(msg)
	if err != nil {
		failure := fmt.Errorf("%w: %v", ErrClassifyFailed, err)
		s.logService.LogWarn(models.LogModuleAgent, "classify", "Classification failed", map[string]interface{}{
			"email_id": email.ID,
			"error":    failure.Error(),
		})
		decision = Decision{
			Kind:   models.ActionNotify,
			Reason: fmt.Sprintf("Surfaced for review (%v)", failure),
		}
	} else {
		if classification == models.ClassificationSpam && !config.EnableSpamFilter {
			// Spam filter off: surface it like ordinary mail
			classification = models.ClassificationRoutine
		}
		if err := s.db.Model(&models.Email{}).Where("id = ?", email.ID).
			Update("classification", classification).Error; err != nil {
			return nil, err
		}
		email.Classification = classification
		decision = Decide(msg.From, classification, config.GetWhitelist(), config.GetBlacklist())
	}

	if decision.Kind == models.ActionReply && !config.EnableAutoReply {
		decision = Decision{
			Kind:   models.ActionNotify,
			Reason: decision.Reason + " (auto-reply disabled)",
		}
	}

	suggestedReply := ""
	if decision.Kind == models.ActionReply {
		reply, err := s.responder.DraftReply(msg, DefaultTone, "")
		if err != nil {
			decision = decision.DegradeToNotify(fmt.Errorf("%w: %v", ErrDraftFailed, err))
		} else {
			suggestedReply = reply
		}
	}

	action, err := s.actions.CreateProposal(email.ID, decision.Kind, suggestedReply, decision.Reason)
	if err != nil {
		return nil, err
	}

	log.Printf("[Agent] Proposed %s for %s (%s): %s", decision.Kind, email.FromAddr, email.Classification, decision.Reason)
	s.logService.LogInfo(models.LogModuleAgent, "propose", "Action proposed", map[string]interface{}{
		"email_id":       email.ID,
		"action_id":      action.ID,
		"kind":           action.Kind,
		"classification": email.Classification,
	})
	return action, nil
}

func (s *AgentService) wasSeen(id string) bool {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	_, ok := s.seen[id]
	return ok
}

func (s *AgentService) markSeen(id string) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()
	s.seen[id] = struct{}{}
}
