package db

import (
	"path/filepath"
	"testing"
)

func TestTryAcquireLock_Exclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	first, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}

	if _, ok, err := TryAcquireLock(path); err != nil || ok {
		t.Fatalf("try acquire while held = (%v, %v), want (false, nil)", ok, err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	second, ok, err := TryAcquireLock(path)
	if err != nil || !ok {
		t.Fatalf("try acquire after release = (%v, %v), want (true, nil)", ok, err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}
