package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"daysched/internal/service"
)

func TestLoad_NoSession(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "session"))
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestSaveLoadClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	want := service.Session{Username: "ada", Token: "tok-1"}

	if err := Open(dir).Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store reads what the first one wrote.
	got, err := Open(dir).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}

	info, err := os.Stat(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("session file mode = %v", info.Mode().Perm())
	}

	s := Open(dir)
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("after Clear: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear: %v", err)
	}
}

func TestSave_RejectsIncompleteSession(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "session"))
	err := s.Save(service.Session{Username: "ada"})
	if !errors.Is(err, service.ErrMissingSession) {
		t.Fatalf("expected ErrMissingSession, got %v", err)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, key), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	_, err := Open(dir).Load()
	if err == nil || errors.Is(err, ErrNoSession) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
