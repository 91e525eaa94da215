package services

import (
	"errors"
	"os"
	"testing"

	"github.com/momo0222/momail-backend/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupActionTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "action_test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	err = db.AutoMigrate(&models.Email{}, &models.Action{}, &models.AgentConfig{}, &models.Log{})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

func seedEmail(t *testing.T, db *gorm.DB, id, from string) *models.Email {
	email := &models.Email{
		ID:       id,
		ThreadID: "thread-" + id,
		FromAddr: from,
		Subject:  "Subject of " + id,
		Body:     "Body of " + id,
	}
	if err := db.Create(email).Error; err != nil {
		t.Fatalf("Failed to seed email: %v", err)
	}
	return email
}

func TestActionLifecycle(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	logService := NewLogService(db)
	actions := NewActionService(db, logService)

	seedEmail(t, db, "msg-1", "alice@example.com")

	action, err := actions.CreateProposal("msg-1", models.ActionReply, "Suggested text", "Whitelisted sender - auto-reply")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if action.Status != models.StatusPending {
		t.Fatalf("new proposal should be pending, got %s", action.Status)
	}
	if action.ProcessedAt != nil {
		t.Error("pending action should have no processed_at")
	}

	// Approving with an edit keeps the suggestion and records the edit
	approved, err := actions.Approve(action.ID, "Edited text")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.StatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}
	if approved.SuggestedReply != "Suggested text" {
		t.Errorf("suggested reply must never be overwritten, got %q", approved.SuggestedReply)
	}
	if approved.ActualReply != "Edited text" {
		t.Errorf("expected edited reply recorded, got %q", approved.ActualReply)
	}

	// A second approve loses the conditional update
	if _, err := actions.Approve(action.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on double approve, got %v", err)
	}

	// Rejecting an approved action is also invalid
	if _, err := actions.Reject(action.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition rejecting approved action, got %v", err)
	}
}

func TestRejectFinalizes(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	actions := NewActionService(db, NewLogService(db))
	seedEmail(t, db, "msg-2", "bob@example.com")

	action, err := actions.CreateProposal("msg-2", models.ActionNotify, "", "Urgent email requiring immediate attention")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	rejected, err := actions.Reject(action.ID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != models.StatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.ProcessedAt == nil {
		t.Error("rejected action should carry processed_at")
	}

	// Terminal: no further transitions
	if _, err := actions.Approve(action.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition approving rejected action, got %v", err)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	actions := NewActionService(db, NewLogService(db))
	seedEmail(t, db, "msg-3", "carol@example.com")

	if _, err := actions.CreateProposal("msg-3", models.ActionKind("forward"), "", "reason"); err == nil {
		t.Error("expected error for unknown action kind")
	}
}

func TestHasOutstanding(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	actions := NewActionService(db, NewLogService(db))
	seedEmail(t, db, "msg-4", "dave@example.com")

	outstanding, err := actions.HasOutstanding("msg-4")
	if err != nil {
		t.Fatalf("HasOutstanding failed: %v", err)
	}
	if outstanding {
		t.Error("fresh email should have no outstanding action")
	}

	action, err := actions.CreateProposal("msg-4", models.ActionArchive, "", "Classified as spam")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	outstanding, _ = actions.HasOutstanding("msg-4")
	if !outstanding {
		t.Error("pending action should count as outstanding")
	}

	if _, err := actions.Approve(action.ID, ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	outstanding, _ = actions.HasOutstanding("msg-4")
	if !outstanding {
		t.Error("approved action should count as outstanding")
	}

	if _, err := actions.Reject(action.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unexpected transition allowed: %v", err)
	}
}

func TestListPendingOldestFirst(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	actions := NewActionService(db, NewLogService(db))
	seedEmail(t, db, "msg-5", "erin@example.com")
	seedEmail(t, db, "msg-6", "frank@example.com")

	first, err := actions.CreateProposal("msg-5", models.ActionNotify, "", "first")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	second, err := actions.CreateProposal("msg-6", models.ActionNotify, "", "second")
	if err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	pending, err := actions.ListPending()
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending actions, got %d", len(pending))
	}
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Error("pending actions should be ordered oldest first")
	}
}

func TestActionStats(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	actions := NewActionService(db, NewLogService(db))
	seedEmail(t, db, "msg-7", "grace@example.com")
	seedEmail(t, db, "msg-8", "heidi@example.com")

	a1, _ := actions.CreateProposal("msg-7", models.ActionNotify, "", "r")
	if _, err := actions.CreateProposal("msg-8", models.ActionNotify, "", "r"); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}
	if _, err := actions.Reject(a1.ID); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	stats, err := actions.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 || stats.Pending != 1 || stats.Rejected != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
