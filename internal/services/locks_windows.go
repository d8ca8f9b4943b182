//go:build windows

package services

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"unsafe"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = kernel32.NewProc("LockFileEx")
	procUnlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const (
	LOCKFILE_FAIL_IMMEDIATELY = 0x00000001
	LOCKFILE_EXCLUSIVE_LOCK   = 0x00000002
	ERROR_LOCK_VIOLATION      = syscall.Errno(33) // File is locked by another process
)

// AcquireSourceLock attempts to acquire an exclusive lock over a source's
// download tree (Windows implementation).
func AcquireSourceLock(basePath string, profile models.SourceProfile, logger *lib.Logger) (*SourceLock, error) {
	lockPath := sourceLockPath(basePath, profile)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create source directory: %w", err)
	}

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	handle := syscall.Handle(lockFile.Fd())
	overlapped := syscall.Overlapped{}

	// LockFileEx with FAIL_IMMEDIATELY flag for non-blocking behavior
	r1, _, err := procLockFileEx.Call(
		uintptr(handle),
		uintptr(LOCKFILE_EXCLUSIVE_LOCK|LOCKFILE_FAIL_IMMEDIATELY),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)

	if r1 == 0 {
		_ = lockFile.Close()
		if err == ERROR_LOCK_VIOLATION {
			return nil, fmt.Errorf("source %s is locked by another process", profile.Name)
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}

	lock := &SourceLock{
		source:   profile.Name,
		lockFile: lockFile,
		lockPath: lockPath,
		logger:   logger,
	}

	if err := lock.writeLockInfo(); err != nil {
		logger.Warn("Failed to write lock info", "source", profile.Name, "error", err)
	}

	logger.Debug("Acquired source lock", "source", profile.Name, "pid", os.Getpid())

	return lock, nil
}

// Release releases the source lock (Windows implementation).
func (sl *SourceLock) Release() error {
	if sl.lockFile == nil {
		return nil
	}

	handle := syscall.Handle(sl.lockFile.Fd())
	overlapped := syscall.Overlapped{}

	_, _, err := procUnlockFileEx.Call(
		uintptr(handle),
		0,
		uintptr(1),
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)

	if err != syscall.Errno(0) {
		sl.logger.Warn("Failed to release lock", "source", sl.source, "error", err)
	}

	if err := sl.lockFile.Close(); err != nil {
		sl.logger.Warn("Failed to close lock file", "source", sl.source, "error", err)
		return err
	}

	sl.logger.Debug("Released source lock", "source", sl.source, "pid", os.Getpid())
	sl.lockFile = nil

	return nil
}
