//go:build unix

package services

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

// AcquireSourceLock attempts to acquire an exclusive lock over a source's
// download tree (Unix implementation). Returns an error if another process
// already holds it. The lock is released when the process exits.
func AcquireSourceLock(basePath string, profile models.SourceProfile, logger *lib.Logger) (*SourceLock, error) {
	lockPath := sourceLockPath(basePath, profile)

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create source directory: %w", err)
	}

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	// flock() is advisory - cooperating processes must check the lock
	err = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		_ = lockFile.Close()
		if err == syscall.EWOULDBLOCK {
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

// Release releases the source lock (Unix implementation).
func (sl *SourceLock) Release() error {
	if sl.lockFile == nil {
		return nil
	}

	err := syscall.Flock(int(sl.lockFile.Fd()), syscall.LOCK_UN)
	if err != nil {
		sl.logger.Warn("Failed to release flock", "source", sl.source, "error", err)
	}

	if err := sl.lockFile.Close(); err != nil {
		sl.logger.Warn("Failed to close lock file", "source", sl.source, "error", err)
		return err
	}

	sl.logger.Debug("Released source lock", "source", sl.source, "pid", os.Getpid())
	sl.lockFile = nil

	return nil
}
