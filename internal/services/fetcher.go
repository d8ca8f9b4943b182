package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"nwpfetch/internal/lib"
	"nwpfetch/internal/models"
	"nwpfetch/internal/ui"
)

// TempPrefix marks in-progress downloads. Temp files live next to their
// final path so the finishing rename stays on one filesystem.
const TempPrefix = ".tmp_"

// Fetcher downloads ready file targets to local storage. Fetches are
// idempotent against already-downloaded files and atomic via
// temp-then-rename placement.
type Fetcher struct {
	client       *HTTPClient
	endpoints    Endpoints
	basePath     string
	chunkSizeKB  int
	showProgress bool
	logger       *lib.Logger
}

// NewFetcher creates a fetcher rooted at the local base path.
func NewFetcher(client *HTTPClient, endpoints Endpoints, basePath string, chunkSizeKB int, showProgress bool, logger *lib.Logger) *Fetcher {
	return &Fetcher{
		client:       client,
		endpoints:    endpoints,
		basePath:     basePath,
		chunkSizeKB:  chunkSizeKB,
		showProgress: showProgress,
		logger:       logger,
	}
}

// Fetch downloads one target and returns its local path. If the final path
// already exists no network access happens. A failed attempt is retried
// from scratch under the shared retry policy; the partial temp file is
// overwritten by the next attempt.
func (f *Fetcher) Fetch(ctx context.Context, target models.FileTarget) (string, error) {
	destPath := target.LocalPath(f.basePath)

	if _, err := os.Stat(destPath); err == nil {
		f.logger.Debug("File already fetched", "path", destPath)
		return destPath, nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	url := f.endpoints.RetrieveURL(target)
	tmpPath := filepath.Join(filepath.Dir(destPath), TempPrefix+filepath.Base(destPath))

	f.logger.Info("Getting file", "target", target.String())

	err := lib.ExecuteWithRetry(ctx, func() error {
		return f.downloadOnce(ctx, url, tmpPath, target)
	}, f.client.RetryConfig(), func(err error) bool {
		return ctx.Err() == nil
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		return "", lib.ErrDownloadFailed(url, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to place downloaded file: %w", err)
	}

	f.logger.Debug("Successfully saved", "path", destPath)
	return destPath, nil
}

// downloadOnce performs a single whole-file attempt into the temp path,
// truncating whatever a previous attempt left behind.
func (f *Fetcher) downloadOnce(ctx context.Context, url, tmpPath string, target models.FileTarget) error {
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err := tmpFile.Close(); err != nil {
			f.logger.Error("Failed to close temp file", "error", err)
		}
	}()

	var progress func(int64)
	if f.showProgress {
		bar := ui.NewDownloadBar(target.String())
		defer func() { _ = bar.Finish() }()
		progress = func(total int64) { bar.SetBytes(total) }
	}

	bytes, err := f.client.Download(ctx, url, tmpFile, f.chunkSizeKB, progress)
	if err != nil {
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	f.logger.Debug("Download attempt completed", "target", target.String(), "bytes", bytes)
	return nil
}
