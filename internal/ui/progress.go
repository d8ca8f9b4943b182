package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// DownloadBar wraps the progressbar library for downloads whose total size
// is unknown (the subsetting endpoint does not send Content-Length).
// Throughput and running byte count are displayed instead of a percentage.
type DownloadBar struct {
	bar       *progressbar.ProgressBar
	startTime time.Time
}

// NewDownloadBar creates a byte-counting progress bar for one download.
func NewDownloadBar(description string) *DownloadBar {
	return newDownloadBar(description, os.Stderr)
}

// NewDownloadBarWithWriter creates a download bar writing to a specific
// writer. Useful for testing with mock writers.
func NewDownloadBarWithWriter(description string, writer io.Writer) *DownloadBar {
	return newDownloadBar(description, writer)
}

func newDownloadBar(description string, writer io.Writer) *DownloadBar {
	bar := progressbar.NewOptions64(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(500*time.Millisecond),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionEnableColorCodes(false),
	)
	return &DownloadBar{
		bar:       bar,
		startTime: time.Now(),
	}
}

// SetBytes sets the running byte count.
func (d *DownloadBar) SetBytes(total int64) {
	_ = d.bar.Set64(total)
}

// Finish completes and clears the bar.
func (d *DownloadBar) Finish() error {
	return d.bar.Finish()
}

// GetElapsedTime returns time elapsed since the bar was created.
func (d *DownloadBar) GetElapsedTime() time.Duration {
	return time.Since(d.startTime)
}

// Spinner provides visual feedback for operations with unknown duration,
// like waiting for an external conversion to finish.
type Spinner struct {
	description string
	startTime   time.Time
	active      bool
}

// NewSpinner creates a spinner for unknown-duration operations
func NewSpinner(description string) *Spinner {
	return &Spinner{
		description: description,
		startTime:   time.Now(),
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.active = true
	s.startTime = time.Now()
	fmt.Printf("%s...\n", s.description)
}

// Stop ends the spinner animation
func (s *Spinner) Stop(success bool) {
	s.active = false
	elapsed := time.Since(s.startTime)

	if success {
		fmt.Printf("✓ %s (completed in %v)\n", s.description, elapsed.Round(time.Millisecond))
	} else {
		fmt.Printf("✗ %s (failed after %v)\n", s.description, elapsed.Round(time.Millisecond))
	}
}

// IsActive returns whether the spinner is currently running
func (s *Spinner) IsActive() bool {
	return s.active
}
