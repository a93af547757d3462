package store

import (
	"testing"

	"github.com/vetcontrol/companion/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsGetMissingReturnsEmpty(t *testing.T) {
	ss := setupSettingsTestDB(t)

	val, err := ss.Get("nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "" {
		t.Errorf("value = %q, want empty", val)
	}
}

func TestSettingsSetAndGet(t *testing.T) {
	ss := setupSettingsTestDB(t)

	if err := ss.Set("notify_channel_color", "#3B82F6"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, err := ss.Get("notify_channel_color")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "#3B82F6" {
		t.Errorf("value = %q, want #3B82F6", val)
	}

	// Overwrite
	if err := ss.Set("notify_channel_color", "#000000"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	val, _ = ss.Get("notify_channel_color")
	if val != "#000000" {
		t.Errorf("value = %q, want #000000", val)
	}
}

func TestSettingsGetAll(t *testing.T) {
	ss := setupSettingsTestDB(t)

	ss.Set("a", "1")
	ss.Set("b", "2")

	all, err := ss.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 2 || all["a"] != "1" || all["b"] != "2" {
		t.Errorf("all = %v", all)
	}
}

func TestSettingsDelete(t *testing.T) {
	ss := setupSettingsTestDB(t)

	ss.Set("key", "value")
	if err := ss.Delete("key"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	val, _ := ss.Get("key")
	if val != "" {
		t.Errorf("value after delete = %q, want empty", val)
	}
}
