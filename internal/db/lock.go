package db

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock serializes writers of one history database across processes.
type Lock struct {
	file *os.File
}

// AcquireLock blocks until it holds the lock file next to the database at
// dbPath.
func AcquireLock(dbPath string) (*Lock, error) {
	file, err := openLockFile(dbPath)
	if err != nil {
		return nil, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lock history: %w", err)
	}
	return &Lock{file: file}, nil
}

// TryAcquireLock attempts to take the lock without blocking.
func TryAcquireLock(dbPath string) (*Lock, bool, error) {
	file, err := openLockFile(dbPath)
	if err != nil {
		return nil, false, err
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = file.Close()
		return nil, false, nil
	}
	return &Lock{file: file}, true, nil
}

func openLockFile(dbPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	file, err := os.OpenFile(dbPath+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return file, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return err
	}
	return l.file.Close()
}
