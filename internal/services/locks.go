package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
)

// SourceLock is a file lock over one source's download tree. It keeps two
// fetcher processes from polling and writing the same source concurrently.
type SourceLock struct {
	source   string
	lockFile *os.File
	lockPath string
	logger   *lib.Logger
}

func sourceLockPath(basePath string, profile models.SourceProfile) string {
	return filepath.Join(basePath, profile.Name, ".lock")
}

// writeLockInfo writes debug information to the lock file
func (sl *SourceLock) writeLockInfo() error {
	lockInfo := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	_ = sl.lockFile.Truncate(0)
	_, _ = sl.lockFile.Seek(0, 0)
	_, _ = sl.lockFile.WriteString(lockInfo)
	return sl.lockFile.Sync()
}
