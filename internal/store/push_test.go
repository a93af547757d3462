package store

import (
	"testing"

	"github.com/vetcontrol/companion/internal/database"
	"github.com/vetcontrol/companion/internal/model"
)

func setupPushTestDB(t *testing.T) *PushStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db)
}

func TestCreateSubscription(t *testing.T) {
	ps := setupPushTestDB(t)

	sub, err := ps.CreateSubscription("https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Pixel 8")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q, want %q", sub.Endpoint, "https://push.example.com/sub1")
	}
	if sub.DeviceName != "Pixel 8" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Pixel 8")
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	ps := setupPushTestDB(t)

	sub1, _ := ps.CreateSubscription("https://push.example.com/sub1", "key1", "auth1", "Device A")
	sub2, err := ps.CreateSubscription("https://push.example.com/sub1", "key2", "auth2", "Device B")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}

	// Should be same subscription, updated keys
	if sub2.ID != sub1.ID {
		t.Errorf("expected same ID on upsert, got %d != %d", sub2.ID, sub1.ID)
	}
	if sub2.P256dhKey != "key2" {
		t.Errorf("p256dh = %q, want %q", sub2.P256dhKey, "key2")
	}
}

func TestListSubscriptions(t *testing.T) {
	ps := setupPushTestDB(t)

	ps.CreateSubscription("https://push.example.com/1", "k1", "a1", "Device 1")
	ps.CreateSubscription("https://push.example.com/2", "k2", "a2", "Device 2")

	subs, err := ps.ListSubscriptions()
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("len = %d, want 2", len(subs))
	}
}

func TestDeleteSubscriptionByEndpoint(t *testing.T) {
	ps := setupPushTestDB(t)

	ps.CreateSubscription("https://push.example.com/1", "k1", "a1", "Device 1")
	if err := ps.DeleteSubscriptionByEndpoint("https://push.example.com/1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	subs, _ := ps.ListSubscriptions()
	if len(subs) != 0 {
		t.Errorf("len = %d, want 0", len(subs))
	}
}

func TestPreferenceDefaultEnabled(t *testing.T) {
	ps := setupPushTestDB(t)

	enabled, err := ps.IsPreferenceEnabled(model.NotifTypeReminderDue)
	if err != nil {
		t.Fatalf("check preference: %v", err)
	}
	if !enabled {
		t.Error("expected default enabled when no record exists")
	}
}

func TestSetPreference(t *testing.T) {
	ps := setupPushTestDB(t)

	if err := ps.SetPreference(model.NotifTypeReminderDue, false); err != nil {
		t.Fatalf("set preference: %v", err)
	}

	enabled, _ := ps.IsPreferenceEnabled(model.NotifTypeReminderDue)
	if enabled {
		t.Error("expected disabled after SetPreference(false)")
	}

	// Upsert back on
	if err := ps.SetPreference(model.NotifTypeReminderDue, true); err != nil {
		t.Fatalf("re-set preference: %v", err)
	}
	enabled, _ = ps.IsPreferenceEnabled(model.NotifTypeReminderDue)
	if !enabled {
		t.Error("expected enabled after SetPreference(true)")
	}

	prefs, err := ps.GetPreferences()
	if err != nil {
		t.Fatalf("get preferences: %v", err)
	}
	if len(prefs) != 1 {
		t.Errorf("len = %d, want 1", len(prefs))
	}
}
