package persistence

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestInt64FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nonce")
	f := NewInt64File(path)

	if _, err := f.Load(); !errors.Is(err, ErrNotExists) {
		t.Fatalf("missing file: got err=%v want ErrNotExists", err)
	}
	if err := f.Save(1765985400123); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "1765985400123" {
		t.Fatalf("file content got=%q", string(raw))
	}
	v, err := f.Load()
	if err != nil || v != 1765985400123 {
		t.Fatalf("Load got=%d err=%v", v, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away, stat err=%v", err)
	}
}

func TestInt64FileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonce")
	if err := os.WriteFile(path, []byte("not-a-number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewInt64File(path).Load(); err == nil || errors.Is(err, ErrNotExists) {
		t.Fatalf("expected parse error, got %v", err)
	}

	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewInt64File(path).Load(); !errors.Is(err, ErrNotExists) {
		t.Fatalf("blank file: got %v want ErrNotExists", err)
	}
}
