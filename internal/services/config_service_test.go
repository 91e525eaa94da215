package services

import (
	"reflect"
	"testing"

	"github.com/momo0222/momail-backend/internal/database/models"
)

func TestGetConfigCreatesDefaults(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	configs := NewConfigService(db, NewLogService(db))

	config, err := configs.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if config.CheckInterval != models.DefaultCheckInterval {
		t.Errorf("default interval: got %d", config.CheckInterval)
	}
	if config.AutoReplyBlacklist != models.DefaultBlacklist {
		t.Errorf("default blacklist: got %q", config.AutoReplyBlacklist)
	}
	if !config.EnableAutoReply || !config.EnableSpamFilter {
		t.Error("auto-reply and spam filter default to enabled")
	}
	if config.DryRunMode {
		t.Error("dry-run defaults to off")
	}

	// The row is persisted, not recreated per read
	again, err := configs.GetConfig()
	if err != nil {
		t.Fatalf("second GetConfig failed: %v", err)
	}
	if again.ID != config.ID {
		t.Error("expected the same singleton row")
	}
}

func TestUpdateConfigPartial(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	configs := NewConfigService(db, NewLogService(db))

	whitelist := "boss@company.com, Team@Company.com"
	if _, err := configs.UpdateConfig(ConfigUpdate{AutoReplyWhitelist: &whitelist}); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	interval := 120
	updated, err := configs.UpdateConfig(ConfigUpdate{CheckInterval: &interval})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	// The second update must not clobber the first
	if updated.AutoReplyWhitelist != whitelist {
		t.Errorf("whitelist lost on partial update: %q", updated.AutoReplyWhitelist)
	}
	if updated.CheckInterval != 120 {
		t.Errorf("interval not applied: %d", updated.CheckInterval)
	}
	if updated.AutoReplyBlacklist != models.DefaultBlacklist {
		t.Errorf("blacklist lost on partial update: %q", updated.AutoReplyBlacklist)
	}
}

func TestUpdateConfigRejectsBadInterval(t *testing.T) {
	db, cleanup := setupActionTestDB(t)
	defer cleanup()

	configs := NewConfigService(db, NewLogService(db))

	for _, bad := range []int{0, -1, -60} {
		interval := bad
		if _, err := configs.UpdateConfig(ConfigUpdate{CheckInterval: &interval}); err == nil {
			t.Errorf("interval %d should be rejected", bad)
		}
	}

	config, err := configs.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if config.CheckInterval != models.DefaultCheckInterval {
		t.Errorf("rejected update must not change the stored interval, got %d", config.CheckInterval)
	}
}

func TestSenderListNormalization(t *testing.T) {
	config := &models.AgentConfig{
		AutoReplyWhitelist: " Boss@Company.com ,, team@company.com,  ",
		AutoReplyBlacklist: "",
	}

	want := []string{"boss@company.com", "team@company.com"}
	if got := config.GetWhitelist(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetWhitelist() = %v, want %v", got, want)
	}
	if got := config.GetBlacklist(); got != nil {
		t.Errorf("empty list should parse to nil, got %v", got)
	}
}
