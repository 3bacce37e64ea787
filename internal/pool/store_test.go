package pool

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

func openStore(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Connect(config.StoreConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "switchboard.db"),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func TestRoute_RecordsSessionRow(t *testing.T) {
	launcher := &fakeLauncher{}
	gormDB := openStore(t)

	s, err := New(Opts{
		Config:    testPoolConfig(1),
		Transport: "webrtc",
		Launcher:  launcher,
		DB:        gormDB,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sess, err := s.Route(Request{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	var rec models.Session
	if err := gormDB.First(&rec, "id = ?", sess.ID).Error; err != nil {
		t.Fatalf("load session row: %v", err)
	}
	if rec.Status != models.SessionRunning {
		t.Errorf("Status = %q, want running", rec.Status)
	}
	if rec.PID != sess.PID {
		t.Errorf("PID = %d, want %d", rec.PID, sess.PID)
	}
	if rec.Transport != "webrtc" {
		t.Errorf("Transport = %q, want webrtc", rec.Transport)
	}

	launcher.proc(0).exit(nil)
	waitResult(t, sess)

	if err := gormDB.First(&rec, "id = ?", sess.ID).Error; err != nil {
		t.Fatalf("reload session row: %v", err)
	}
	if rec.Status != models.SessionCompleted {
		t.Errorf("final Status = %q, want completed", rec.Status)
	}
	if rec.EndedAt == nil {
		t.Error("EndedAt not set on finished session")
	}
}

func TestRoute_RecordsSlotEvents(t *testing.T) {
	launcher := &fakeLauncher{}
	gormDB := openStore(t)

	s, err := New(Opts{
		Config:    testPoolConfig(1),
		Transport: "webrtc",
		Launcher:  launcher,
		DB:        gormDB,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sess, err := s.Route(Request{})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	launcher.proc(0).exit(errors.New("segfault"))
	waitResult(t, sess)

	var events []models.SlotEvent
	if err := gormDB.Order("id ASC").Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}

	var transitions []string
	for _, e := range events {
		transitions = append(transitions, e.FromState+">"+e.ToState)
		if e.SlotID != 0 {
			t.Errorf("event slot = %d, want 0", e.SlotID)
		}
	}
	want := []string{
		"idle>assigned",
		"assigned>running",
		"running>crashed",
		"crashed>restarting",
		"restarting>idle",
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %q, want %q", i, transitions[i], want[i])
		}
	}

	// Events recorded while the session was bound carry its ID.
	for _, e := range events[:4] {
		if e.SessionID != sess.ID {
			t.Errorf("event %s>%s SessionID = %q, want %q", e.FromState, e.ToState, e.SessionID, sess.ID)
		}
	}
}
