package store

import (
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadTurns(t *testing.T) {
	s := openTest(t)
	s.EnsureSession("s1")
	s.SaveTurn("s1", "draft an intro", 3, "--- before\n+++ after\n")
	s.SaveTurn("s1", "tighten line 2", 4, "")
	s.SaveTurn("other", "unrelated", 1, "")

	turns, err := s.Turns("s1")
	if err != nil {
		t.Fatalf("turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Prompt != "draft an intro" || turns[0].Revision != 3 {
		t.Errorf("first turn: %+v", turns[0])
	}
	if turns[0].Diff == "" {
		t.Errorf("diff not persisted: %+v", turns[0])
	}
	if turns[1].Prompt != "tighten line 2" {
		t.Errorf("turn order wrong: %+v", turns)
	}
}

func TestEnsureSessionIsIdempotent(t *testing.T) {
	s := openTest(t)
	s.EnsureSession("s1")
	s.EnsureSession("s1")
	s.EnsureSession("s2")

	ids, err := s.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 sessions, got %v", ids)
	}
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	s.EnsureSession("s1")
	s.SaveTurn("s1", "p", 1, "")
	if turns, err := s.Turns("s1"); err != nil || turns != nil {
		t.Errorf("nil store turns: %v, %v", turns, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store close: %v", err)
	}
}

func TestPurgeSession(t *testing.T) {
	s := openTest(t)
	s.EnsureSession("s1")
	s.SaveTurn("s1", "p1", 1, "")
	s.EnsureSession("s2")
	s.SaveTurn("s2", "p2", 1, "")

	s.PurgeSession("s1")

	if turns, err := s.Turns("s1"); err != nil || len(turns) != 0 {
		t.Errorf("purged session turns: %v, %v", turns, err)
	}
	ids, err := s.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != "s2" {
		t.Errorf("sessions after purge = %v, want [s2]", ids)
	}

	var nilStore *Store
	nilStore.PurgeSession("s1")
}
