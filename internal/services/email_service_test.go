package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/momo0222/momail-backend/internal/database/models"
	"github.com/momo0222/momail-backend/internal/mail"
	"gorm.io/gorm"
)

func newEmailFixture(t *testing.T, db *gorm.DB) (*EmailService, *mail.DemoProvider) {
	provider := mail.NewDemoProvider("assistant@momail.com")
	return NewEmailService(db, provider, NewLogService(db)), provider
}

func TestListEmailsFiltering(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)

	seedEmail(t, db, "msg-1", "alice@example.com")
	seedEmail(t, db, "msg-2", "bob@example.com")
	spam := seedEmail(t, db, "msg-3", "promo@deals.com")
	db.Model(spam).Update("classification", models.ClassificationSpam)

	all, err := emails.ListEmails(EmailListOptions{})
	if err != nil {
		t.Fatalf("ListEmails failed: %v", err)
	}
	if all.Total != 3 {
		t.Errorf("expected 3 total, got %d", all.Total)
	}
	if all.Page != 1 || all.Limit != 20 {
		t.Errorf("defaults not applied: page=%d limit=%d", all.Page, all.Limit)
	}

	bySender, err := emails.ListEmails(EmailListOptions{Sender: "deals.com"})
	if err != nil {
		t.Fatalf("ListEmails failed: %v", err)
	}
	if bySender.Total != 1 || bySender.Emails[0].ID != "msg-3" {
		t.Errorf("sender filter failed: %+v", bySender)
	}

	byClass, err := emails.ListEmails(EmailListOptions{Classification: models.ClassificationSpam})
	if err != nil {
		t.Fatalf("ListEmails failed: %v", err)
	}
	if byClass.Total != 1 {
		t.Errorf("classification filter failed: got %d", byClass.Total)
	}

	bySearch, err := emails.ListEmails(EmailListOptions{Search: "msg-2"})
	if err != nil {
		t.Fatalf("ListEmails failed: %v", err)
	}
	if bySearch.Total != 1 || bySearch.Emails[0].ID != "msg-2" {
		t.Errorf("search filter failed: %+v", bySearch)
	}
}

func TestListEmailsPagination(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)

	for _, id := range []string{"msg-1", "msg-2", "msg-3", "msg-4", "msg-5"} {
		seedEmail(t, db, id, "sender@example.com")
	}

	page, err := emails.ListEmails(EmailListOptions{Page: 2, Limit: 2, SortOrder: "asc"})
	if err != nil {
		t.Fatalf("ListEmails failed: %v", err)
	}
	if page.Total != 5 {
		t.Errorf("total should span all pages, got %d", page.Total)
	}
	if len(page.Emails) != 2 {
		t.Errorf("expected 2 on page 2, got %d", len(page.Emails))
	}
}

func TestGetEmailNotFound(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)

	if _, err := emails.GetEmail("no-such-id"); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("expected ErrEmailNotFound, got %v", err)
	}
}

func TestSendReplyRecordsAndResolves(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, provider := newEmailFixture(t, db)

	original := seedEmail(t, db, "msg-1", "alice@example.com")

	record, err := emails.SendReply(original.ID, "Sounds good, see you then.")
	if err != nil {
		t.Fatalf("SendReply failed: %v", err)
	}
	if record.Classification != models.ClassificationSent {
		t.Errorf("outgoing record classification: %q", record.Classification)
	}
	if !strings.HasPrefix(record.Subject, "Re: ") {
		t.Errorf("reply subject should carry the Re: prefix, got %q", record.Subject)
	}
	if record.ThreadID != original.ThreadID {
		t.Error("manual reply should stay on the thread")
	}
	if len(provider.Sent()) != 1 {
		t.Fatalf("expected 1 sent message, got %d", len(provider.Sent()))
	}

	var stored models.Email
	if err := db.First(&stored, "id = ?", original.ID).Error; err != nil {
		t.Fatalf("reload email: %v", err)
	}
	if !stored.Processed {
		t.Error("replied-to email should be processed")
	}

	// Both sides of the exchange show up in the thread, oldest first
	thread, err := emails.GetThread(original.ThreadID)
	if err != nil {
		t.Fatalf("GetThread failed: %v", err)
	}
	if len(thread) != 2 {
		t.Fatalf("expected 2 messages in thread, got %d", len(thread))
	}
	if thread[0].ID != original.ID {
		t.Error("thread should be in arrival order")
	}
}

func TestComposeStartsNewThread(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, provider := newEmailFixture(t, db)

	record, err := emails.Compose("bob@example.com", "Quick question", "Do you have the report?")
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if record.ThreadID == "" {
		t.Error("composed mail should get a thread ID")
	}
	if record.FromAddr != provider.Address() {
		t.Errorf("outgoing mail should come from the mailbox address, got %q", record.FromAddr)
	}
	if len(provider.Sent()) != 1 {
		t.Errorf("expected 1 sent message, got %d", len(provider.Sent()))
	}
}

func TestResolveThread(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)

	first := seedEmail(t, db, "msg-1", "alice@example.com")
	db.Model(&models.Email{}).Where("id = ?", "msg-1").Update("thread_id", "thread-a")
	second := seedEmail(t, db, "msg-2", "alice@example.com")
	db.Model(&models.Email{}).Where("id = ?", "msg-2").Update("thread_id", "thread-a")
	other := seedEmail(t, db, "msg-3", "bob@example.com")

	threads, err := emails.ListThreads(0)
	if err != nil {
		t.Fatalf("ListThreads failed: %v", err)
	}
	for _, thread := range threads {
		if thread.ThreadID == "thread-a" && thread.Unread != 2 {
			t.Errorf("expected 2 unread on thread-a, got %d", thread.Unread)
		}
	}

	if err := emails.ResolveThread("thread-a"); err != nil {
		t.Fatalf("ResolveThread failed: %v", err)
	}

	for _, id := range []string{first.ID, second.ID} {
		var stored models.Email
		if err := db.First(&stored, "id = ?", id).Error; err != nil {
			t.Fatalf("reload email: %v", err)
		}
		if !stored.Processed {
			t.Errorf("%s should be resolved with the thread", id)
		}
	}

	var untouched models.Email
	if err := db.First(&untouched, "id = ?", other.ID).Error; err != nil {
		t.Fatalf("reload email: %v", err)
	}
	if untouched.Processed {
		t.Error("other threads must not be touched")
	}

	// Idempotent
	if err := emails.ResolveThread("thread-a"); err != nil {
		t.Errorf("repeated resolve should be a no-op, got %v", err)
	}
}

func TestDeleteEmailRemovesActions(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)
	actions := NewActionService(db, NewLogService(db))

	email := seedEmail(t, db, "msg-1", "alice@example.com")
	if _, err := actions.CreateProposal(email.ID, models.ActionNotify, "", "reason"); err != nil {
		t.Fatalf("CreateProposal failed: %v", err)
	}

	if err := emails.DeleteEmail(email.ID); err != nil {
		t.Fatalf("DeleteEmail failed: %v", err)
	}

	if _, err := emails.GetEmail(email.ID); !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("email should be gone, got %v", err)
	}
	var count int64
	db.Model(&models.Action{}).Where("email_id = ?", email.ID).Count(&count)
	if count != 0 {
		t.Errorf("orphaned actions left behind: %d", count)
	}
}

func TestStats(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	emails, _ := newEmailFixture(t, db)

	seedEmail(t, db, "msg-1", "alice@example.com")
	urgent := seedEmail(t, db, "msg-2", "boss@company.com")
	db.Model(urgent).Updates(map[string]interface{}{
		"classification": models.ClassificationUrgent,
		"processed":      true,
	})

	stats, err := emails.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total: got %d", stats.Total)
	}
	if stats.Unprocessed != 1 {
		t.Errorf("unprocessed: got %d", stats.Unprocessed)
	}
	if stats.ByClassification["unclassified"] != 1 {
		t.Errorf("unclassified bucket missing: %v", stats.ByClassification)
	}
	if stats.ByClassification[models.ClassificationUrgent] != 1 {
		t.Errorf("urgent bucket missing: %v", stats.ByClassification)
	}
	if len(stats.TopSenders) != 2 {
		t.Errorf("expected 2 senders, got %d", len(stats.TopSenders))
	}
}
