package store

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestSaverDebouncesBursts(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "serpmine.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	var collects atomic.Int32
	sv := NewSaver(s, func() *Workspace {
		collects.Add(1)
		return &Workspace{ActiveTaskID: "burst"}
	}, 30*time.Millisecond)
	defer sv.Close()

	for i := 0; i < 20; i++ {
		sv.Request()
	}

	deadline := time.Now().Add(2 * time.Second)
	for collects.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// The burst collapses into one write, maybe two if a timer fires at
	// the boundary. Twenty writes would mean no debouncing at all.
	if n := collects.Load(); n == 0 || n > 2 {
		t.Fatalf("expected 1-2 collects, got %d", n)
	}

	ws, err := s.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if ws == nil || ws.ActiveTaskID != "burst" {
		t.Fatalf("workspace not persisted: %+v", ws)
	}
}

func TestSaverCloseFlushesPending(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "serpmine.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	// Long delay so the timer cannot fire before Close.
	sv := NewSaver(s, func() *Workspace {
		return &Workspace{ActiveTaskID: "flushed"}
	}, time.Hour)

	sv.Request()
	sv.Close()

	ws, err := s.LoadWorkspace()
	if err != nil {
		t.Fatalf("LoadWorkspace: %v", err)
	}
	if ws == nil || ws.ActiveTaskID != "flushed" {
		t.Fatalf("pending save not flushed on close: %+v", ws)
	}
}

func TestSaverRequestAfterCloseIgnored(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "serpmine.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	var collects atomic.Int32
	sv := NewSaver(s, func() *Workspace {
		collects.Add(1)
		return nil
	}, 10*time.Millisecond)
	sv.Close()

	sv.Request()
	time.Sleep(50 * time.Millisecond)
	if collects.Load() != 0 {
		t.Fatalf("collect ran after close")
	}
}
