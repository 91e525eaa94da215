package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

// stubClassifier labels messages by sender address; unknown senders are
// routine.
type stubClassifier struct {
	labels map[string]string
	err    error
}

func (c *stubClassifier) Classify(msg mail.NormalizedMessage) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if label, ok := c.labels[msg.From]; ok {
		return label, nil
	}
	return models.ClassificationRoutine, nil
}

type stubResponder struct {
	reply string
	err   error
}

func (r *stubResponder) DraftReply(msg mail.NormalizedMessage, tone, instructions string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.reply, nil
}

func newAgentFixture(t *testing.T, db *gorm.DB, provider mail.Provider, classifier Classifier, responder Responder) (*AgentService, *ConfigService, *ActionService) {
	logService := NewLogService(db)
	configService := NewConfigService(db, logService)
	actionService := NewActionService(db, logService)
	agent := NewAgentService(db, provider, classifier, responder, actionService, configService, logService)
	return agent, configService, actionService
}

func actionsForEmail(t *testing.T, db *gorm.DB, emailID string) []models.Action {
	var actions []models.Action
	if err := db.Where("email_id = ?", emailID).Find(&actions).Error; err != nil {
		t.Fatalf("load actions: %v", err)
	}
	return actions
}

func TestTriageCycleUrgentNotify(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	classifier := &stubClassifier{labels: map[string]string{
		"stranger@example.com": models.ClassificationUrgent,
	}}
	agent, _, _ := newAgentFixture(t, db, provider, classifier, &stubResponder{})

	id := provider.SimulateIncoming("stranger@example.com", "Stranger", "Server down", "Production is on fire")

	proposed, err := agent.RunCycle()
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if proposed != 1 {
		t.Fatalf("expected 1 proposal, got %d", proposed)
	}

	actions := actionsForEmail(t, db, id)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("urgent mail from a stranger should notify, got %s", actions[0].Kind)
	}
	if actions[0].Status != models.StatusPending {
		t.Errorf("proposals start pending, got %s", actions[0].Status)
	}

	var email models.Email
	if err := db.First(&email, "id = ?", id).Error; err != nil {
		t.Fatalf("email not persisted: %v", err)
	}
	if email.Classification != models.ClassificationUrgent {
		t.Errorf("classification not stored, got %q", email.Classification)
	}
}

func TestTriageCycleWhitelistedReply(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	responder := &stubResponder{reply: "Thanks, I will look into it."}
	agent, configs, _ := newAgentFixture(t, db, provider, &stubClassifier{}, responder)

	whitelist := "friend@example.com"
	if _, err := configs.UpdateConfig(ConfigUpdate{AutoReplyWhitelist: &whitelist}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	id := provider.SimulateIncoming("friend@example.com", "Friend", "Lunch?", "Are you free on Friday?")

	if _, err := agent.RunCycle(); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	actions := actionsForEmail(t, db, id)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Kind != models.ActionReply {
		t.Fatalf("whitelisted routine mail should get a reply proposal, got %s", actions[0].Kind)
	}
	if actions[0].SuggestedReply != "Thanks, I will look into it." {
		t.Errorf("draft not attached, got %q", actions[0].SuggestedReply)
	}
	if len(provider.Sent()) != 0 {
		t.Error("a proposal must not send anything")
	}
}

func TestTriageCycleBlacklistWins(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, configs, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{reply: "draft"})

	// Same sender on both lists
	whitelist := "dual@example.com"
	blacklist := "dual@example.com"
	if _, err := configs.UpdateConfig(ConfigUpdate{AutoReplyWhitelist: &whitelist, AutoReplyBlacklist: &blacklist}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	id := provider.SimulateIncoming("dual@example.com", "Dual", "Hi", "body")

	if _, err := agent.RunCycle(); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	actions := actionsForEmail(t, db, id)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("blacklist must override whitelist, got %s", actions[0].Kind)
	}
	if !strings.Contains(actions[0].Reason, "Blacklisted") {
		t.Errorf("reason should name the blacklist, got %q", actions[0].Reason)
	}
}

func TestTriageCycleDedup(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, _, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{})

	id := provider.SimulateIncoming("someone@example.com", "Someone", "Hi", "body")

	first, err := agent.RunCycle()
	if err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}
	if first != 1 {
		t.Fatalf("first cycle should propose 1, got %d", first)
	}

	// The message is still unread on the provider, but the outstanding
	// action suppresses a second proposal.
	second, err := agent.RunCycle()
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}
	if second != 0 {
		t.Errorf("second cycle should propose nothing, got %d", second)
	}
	if got := len(actionsForEmail(t, db, id)); got != 1 {
		t.Errorf("expected exactly 1 action, got %d", got)
	}
}

func TestTriageClassifierFailure(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	classifier := &stubClassifier{err: errors.New("model timeout")}
	agent, _, _ := newAgentFixture(t, db, provider, classifier, &stubResponder{})

	id := provider.SimulateIncoming("someone@example.com", "Someone", "Hi", "body")

	proposed, err := agent.RunCycle()
	if err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}
	if proposed != 1 {
		t.Fatalf("a classification failure still yields a proposal, got %d", proposed)
	}

	actions := actionsForEmail(t, db, id)
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("failed classification degrades to notify, got %s", actions[0].Kind)
	}
	if !strings.Contains(actions[0].Reason, ErrClassifyFailed.Error()) {
		t.Errorf("reason should record the failure, got %q", actions[0].Reason)
	}
	if !strings.Contains(actions[0].Reason, "model timeout") {
		t.Errorf("reason should carry the underlying cause, got %q", actions[0].Reason)
	}
}

func TestTriageResponderFailure(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	responder := &stubResponder{err: errors.New("model timeout")}
	agent, configs, _ := newAgentFixture(t, db, provider, &stubClassifier{}, responder)

	whitelist := "friend@example.com"
	if _, err := configs.UpdateConfig(ConfigUpdate{AutoReplyWhitelist: &whitelist}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	id := provider.SimulateIncoming("friend@example.com", "Friend", "Hi", "body")

	if _, err := agent.RunCycle(); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	actions := actionsForEmail(t, db, id)
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("a failed draft degrades to notify, got %s", actions[0].Kind)
	}
	if !strings.Contains(actions[0].Reason, ErrDraftFailed.Error()) {
		t.Errorf("reason should record the draft failure, got %q", actions[0].Reason)
	}
	if !strings.Contains(actions[0].Reason, "model timeout") {
		t.Errorf("reason should carry the underlying cause, got %q", actions[0].Reason)
	}
	if actions[0].SuggestedReply != "" {
		t.Errorf("no draft content should be stored, got %q", actions[0].SuggestedReply)
	}
}

func TestTriageAutoReplyDisabled(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, configs, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{reply: "draft"})

	whitelist := "friend@example.com"
	enabled := false
	if _, err := configs.UpdateConfig(ConfigUpdate{AutoReplyWhitelist: &whitelist, EnableAutoReply: &enabled}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	id := provider.SimulateIncoming("friend@example.com", "Friend", "Hi", "body")

	if _, err := agent.RunCycle(); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	actions := actionsForEmail(t, db, id)
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("disabled auto-reply downgrades to notify, got %s", actions[0].Kind)
	}
	if !strings.Contains(actions[0].Reason, "auto-reply disabled") {
		t.Errorf("reason should say why, got %q", actions[0].Reason)
	}
}

func TestTriageSpamFilterDisabled(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	classifier := &stubClassifier{labels: map[string]string{
		"spammer@example.com": models.ClassificationSpam,
	}}
	agent, configs, _ := newAgentFixture(t, db, provider, classifier, &stubResponder{})

	enabled := false
	if _, err := configs.UpdateConfig(ConfigUpdate{EnableSpamFilter: &enabled}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	id := provider.SimulateIncoming("spammer@example.com", "Spammer", "Deal", "body")

	if _, err := agent.RunCycle(); err != nil {
		t.Fatalf("RunCycle failed: %v", err)
	}

	// With the filter off, spam is treated as routine mail
	actions := actionsForEmail(t, db, id)
	if actions[0].Kind != models.ActionNotify {
		t.Errorf("spam filter off must not propose archive, got %s", actions[0].Kind)
	}

	var email models.Email
	if err := db.First(&email, "id = ?", id).Error; err != nil {
		t.Fatalf("email not persisted: %v", err)
	}
	if email.Classification != models.ClassificationRoutine {
		t.Errorf("spam should be stored as routine with the filter off, got %q", email.Classification)
	}
}

func TestProposeManualTrigger(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, _, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{})

	id := provider.SimulateIncoming("someone@example.com", "Someone", "Hi", "body")

	action, err := agent.Propose(id)
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if action.Status != models.StatusPending {
		t.Errorf("manual proposal starts pending, got %s", action.Status)
	}

	if _, err := agent.Propose(id); err == nil {
		t.Error("second Propose on an outstanding message must fail")
	}
}

func TestAgentStartStop(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, _, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{})

	if err := agent.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !agent.IsRunning() {
		t.Error("agent should report running after Start")
	}
	if err := agent.Start(); !errors.Is(err, ErrAgentAlreadyRunning) {
		t.Errorf("double Start should fail, got %v", err)
	}

	if err := agent.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if agent.IsRunning() {
		t.Error("agent should report stopped after Stop")
	}
	if err := agent.Stop(); !errors.Is(err, ErrAgentNotRunning) {
		t.Errorf("double Stop should fail, got %v", err)
	}

	// The loop can be restarted after a stop
	if err := agent.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if err := agent.Stop(); err != nil {
		t.Fatalf("Stop after restart failed: %v", err)
	}
}

func TestCurrentIntervalClampsInvalid(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	provider := mail.NewDemoProvider("assistant@momail.com")
	agent, configs, _ := newAgentFixture(t, db, provider, &stubClassifier{}, &stubResponder{})

	if _, err := configs.GetConfig(); err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	want := time.Duration(models.DefaultCheckInterval) * time.Second
	if got := agent.currentInterval(); got != want {
		t.Fatalf("default interval = %v, want %v", got, want)
	}

	// A row written past the update validation must not yield a zero
	// wait between cycles
	for _, bad := range []int{0, -30} {
		err := db.Model(&models.AgentConfig{}).
			Where("id = ?", models.AgentConfigID).
			Update("check_interval", bad).Error
		if err != nil {
			t.Fatalf("write interval %d: %v", bad, err)
		}
		if got := agent.currentInterval(); got != want {
			t.Errorf("interval for stored %d = %v, want default %v", bad, got, want)
		}
	}

	err := db.Model(&models.AgentConfig{}).
		Where("id = ?", models.AgentConfigID).
		Update("check_interval", 120).Error
	if err != nil {
		t.Fatalf("write interval: %v", err)
	}
	if got := agent.currentInterval(); got != 120*time.Second {
		t.Errorf("interval = %v, want 120s", got)
	}
}
