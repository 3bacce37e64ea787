package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := Connect(config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "switchboard.db"),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func TestDSN(t *testing.T) {
	got := DSN(config.StoreConfig{
		User:     "sb",
		Password: "secret",
		Host:     "10.0.0.5",
		Port:     3307,
		Database: "switchboard",
	})
	want := "sb:secret@tcp(10.0.0.5:3307)/switchboard?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestDSN_NoPassword(t *testing.T) {
	got := DSN(config.StoreConfig{
		User:     "root",
		Host:     "127.0.0.1",
		Port:     3306,
		Database: "switchboard",
	})
	want := "root@tcp(127.0.0.1:3306)/switchboard?parseTime=true"
	if got != want {
		t.Errorf("DSN = %q, want %q", got, want)
	}
}

func TestConnect_UnknownDriver(t *testing.T) {
	if _, err := Connect(config.StoreConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gormDB := openTestDB(t)
	for _, m := range AllModels() {
		if !gormDB.Migrator().HasTable(m) {
			t.Errorf("missing table for %T", m)
		}
	}
}

func TestPrune(t *testing.T) {
	gormDB := openTestDB(t)

	now := time.Now()
	old := now.Add(-48 * time.Hour)
	cutoff := now.Add(-24 * time.Hour)

	rows := []models.Session{
		{ID: "sess-old00001", Status: models.SessionCompleted, StartedAt: old},
		{ID: "sess-old00002", Status: models.SessionCrashed, StartedAt: old},
		{ID: "sess-stuck001", Status: models.SessionRunning, StartedAt: old},
		{ID: "sess-fresh001", Status: models.SessionCompleted, StartedAt: now},
	}
	for _, s := range rows {
		if err := gormDB.Create(&s).Error; err != nil {
			t.Fatalf("create session %s: %v", s.ID, err)
		}
	}
	if err := gormDB.Create(&models.SlotEvent{SlotID: 0, ToState: "idle", CreatedAt: old}).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	if err := gormDB.Create(&models.SessionLog{SessionID: "sess-old00001", Direction: "out", Content: "x", CreatedAt: old}).Error; err != nil {
		t.Fatalf("create log: %v", err)
	}

	res, err := Prune(gormDB, cutoff)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Sessions != 2 {
		t.Errorf("pruned sessions = %d, want 2", res.Sessions)
	}
	if res.SlotEvents != 1 {
		t.Errorf("pruned events = %d, want 1", res.SlotEvents)
	}
	if res.Logs != 1 {
		t.Errorf("pruned logs = %d, want 1", res.Logs)
	}

	var remaining []models.Session
	if err := gormDB.Find(&remaining).Error; err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	left := map[string]bool{}
	for _, s := range remaining {
		left[s.ID] = true
	}
	if !left["sess-stuck001"] {
		t.Error("running session was pruned; running sessions must survive any age")
	}
	if !left["sess-fresh001"] {
		t.Error("fresh session was pruned")
	}
	if left["sess-old00001"] || left["sess-old00002"] {
		t.Errorf("expired sessions survived: %v", left)
	}
}

func TestPrune_EmptyStore(t *testing.T) {
	gormDB := openTestDB(t)
	res, err := Prune(gormDB, time.Now())
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if res.Sessions != 0 || res.SlotEvents != 0 || res.Logs != 0 {
		t.Errorf("prune of empty store removed rows: %+v", res)
	}
}
